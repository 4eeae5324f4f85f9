package cluster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/aika/sim"
)

func TestLinks_FullMailbox_IsCapacityError(t *testing.T) {
	l := newLinks(2, 1)
	require.NoError(t, l.send(0, 1, remote(0, 1, 0, 0)))

	err := l.send(0, 1, remote(0, 2, 0, 0))

	require.Error(t, err)
	assert.True(t, sim.IsCapacityExceeded(err))
	var ce *sim.CapacityExceededError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "mailbox 0->1", ce.Resource)
	assert.Equal(t, 1, l.pending())

	got := l.drain(0)
	assert.Equal(t, []routed{{dst: 1, msg: remote(0, 1, 0, 0)}}, got)
	assert.Equal(t, 0, l.pending())
}

func newOutbox(t *testing.T, id, planets int) (*outbox, *Planet) {
	t.Helper()
	p := newTestPlanet(t, id, testWorldConfig(), 4)
	o := &outbox{
		planet: p,
		links:  newLinks(planets, 8),
		owner:  map[sim.AgentID]int{0: 0, 1: 1, 2: 2},
		total:  planets,
	}
	return o, p
}

func TestOutbox_RoutesToOwner(t *testing.T) {
	o, _ := newOutbox(t, 0, 3)
	msg := sim.Message{To: 2, FromPlanet: 0, Seq: 1, Delay: 1}

	require.NoError(t, o.Route(msg))

	assert.Equal(t, []routed{{dst: 2, msg: msg}}, o.links.drain(0))
}

func TestOutbox_BroadcastAll_SkipsSender(t *testing.T) {
	o, _ := newOutbox(t, 1, 3)
	msg := sim.Message{To: sim.BroadcastAll, FromPlanet: 1, Seq: 4, Delay: 1}

	require.NoError(t, o.Route(msg))

	got := o.links.drain(1)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].dst)
	assert.Equal(t, 2, got[1].dst)
}

func TestOutbox_UnknownAgent(t *testing.T) {
	o, _ := newOutbox(t, 0, 3)
	err := o.Route(sim.Message{To: 42, Delay: 1})
	assert.True(t, sim.IsUnknownAgent(err))
}

func TestOutbox_ZeroDelay_Rejected(t *testing.T) {
	o, _ := newOutbox(t, 0, 3)
	err := o.Route(sim.Message{To: 1, SendTime: 4})
	assert.ErrorIs(t, err, ErrZeroLookahead)
	assert.Equal(t, 0, o.links.pending())
}

func TestOutbox_ReplayBeforeFloor_Suppressed(t *testing.T) {
	// GIVEN a planet replaying ticks before the round's starting GVT
	o, p := newOutbox(t, 0, 3)
	p.floor = 10

	// WHEN it re-sends a message from t=6
	err := o.Route(sim.Message{To: 1, SendTime: 6, Seq: 3})

	// THEN nothing is routed and the duplicate is counted
	require.NoError(t, err)
	assert.Equal(t, 0, o.links.pending())
	assert.Equal(t, int64(1), p.Stats().DuplicatesSuppressed)

	require.NoError(t, o.Route(sim.Message{To: 1, SendTime: 10, Seq: 4, Delay: 1}))
	assert.Equal(t, 1, o.links.pending())
}

// pending counts messages sitting in channels.
func (l *links) pending() int {
	n := 0
	for _, row := range l.chans {
		for _, ch := range row {
			n += len(ch)
		}
	}
	return n
}
