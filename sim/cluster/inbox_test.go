package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/aika/sim"
)

func remote(planet int, seq uint64, send, delay sim.Time) sim.Message {
	return sim.Message{FromPlanet: planet, Seq: seq, SendTime: send, Delay: delay}
}

func TestInbox_OrdersByDeliveryPlanetSeq(t *testing.T) {
	var b inbox
	b.add(remote(2, 1, 5, 0))
	b.add(remote(1, 7, 3, 2))
	b.add(remote(1, 2, 1, 4))
	b.add(remote(0, 9, 9, 0))

	got := b.Take(5)

	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 1, 2}, []int{got[0].FromPlanet, got[1].FromPlanet, got[2].FromPlanet})
	assert.Equal(t, []uint64{2, 7, 1}, []uint64{got[0].Seq, got[1].Seq, got[2].Seq})
	assert.Equal(t, 4, b.len(), "Take does not consume")
}

func TestInbox_Next(t *testing.T) {
	var b inbox
	_, ok := b.Next(0)
	assert.False(t, ok)

	b.add(remote(0, 1, 4, 0))
	b.add(remote(0, 2, 9, 0))

	next, ok := b.Next(0)
	assert.True(t, ok)
	assert.Equal(t, sim.Time(4), next)
	next, _ = b.Next(5)
	assert.Equal(t, sim.Time(9), next)
	_, ok = b.Next(10)
	assert.False(t, ok)
}

func TestInbox_RemoveAndPrune(t *testing.T) {
	var b inbox
	for i, at := range []sim.Time{2, 4, 6, 8} {
		b.add(remote(0, uint64(i), at, 0))
	}

	assert.True(t, b.remove(remote(0, 1, 4, 0)))
	assert.False(t, b.remove(remote(0, 1, 4, 0)))
	assert.Empty(t, b.Take(4))

	b.prune(7)
	assert.Equal(t, 1, b.len())
	next, _ := b.Next(0)
	assert.Equal(t, sim.Time(8), next)
}
