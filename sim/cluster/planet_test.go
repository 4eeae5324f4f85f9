package cluster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/aika/sim"
	"github.com/inference-sim/aika/sim/internal/testutil"
)

func straggler() sim.Message {
	return sim.Message{From: 7, To: 0, FromPlanet: 0, SendTime: 2, Seq: 1, Payload: uint64(99)}
}

// newBusyPlanet returns planet 1 holding a single self-pinging agent 0 that
// ticks every tick.
func newBusyPlanet(t *testing.T, logging bool) *Planet {
	t.Helper()
	cfg := testWorldConfig()
	cfg.Logging = logging
	p := newTestPlanet(t, 1, cfg, 2)
	require.NoError(t, p.world.SpawnAs(0, testutil.NewPinger(0, 1, 1, 2, 42)))
	require.NoError(t, p.world.Schedule(0, 0, testutil.KindStart))
	return p
}

func TestPlanet_StragglerRollsBackAndReplays(t *testing.T) {
	// GIVEN planet B that has already executed up to LVT 7
	b := newBusyPlanet(t, true)
	require.NoError(t, b.Checkpoint())
	require.NoError(t, b.RunUntil(7))
	require.Equal(t, sim.Time(7), b.LVT())

	// WHEN a message sent at t=2 arrives
	msg := straggler()
	require.True(t, b.Receive(msg), "a message due in the executed past is a straggler")
	at, err := b.RollbackTo(msg.DeliverAt())
	require.NoError(t, err)

	// THEN B restores a checkpoint at or before 2 and replays up to 2
	assert.LessOrEqual(t, at, sim.Time(2))
	assert.Equal(t, sim.Time(2), b.LVT())
	assert.Equal(t, AwaitingSync, b.State())

	// AND running on to 7 matches a planet that had the message from the start
	require.NoError(t, b.RunUntil(7))
	ref := newBusyPlanet(t, true)
	ref.Receive(msg)
	require.NoError(t, ref.Checkpoint())
	require.NoError(t, ref.RunUntil(7))

	got, _ := b.world.Agent(0)
	want, _ := ref.world.Agent(0)
	assert.Equal(t, want, got)
	assert.Equal(t, ref.world.Stats(), b.world.Stats())
	assert.Equal(t, ref.world.Trace().Records(), b.world.Trace().Records())

	stats := b.Stats()
	assert.Equal(t, 1, stats.Rollbacks)
	assert.Equal(t, int64(5), stats.EventsRolledBack, "ticks 2..6 were undone")
}

func TestPlanet_ReceiveInFuture_NoRollback(t *testing.T) {
	// GIVEN a planet with events at every tick up to 9, run up to 3
	p := newTestPlanet(t, 0, testWorldConfig(), 2)
	require.NoError(t, p.world.SpawnAs(0, &testutil.Tally{}))
	for tick := sim.Time(0); tick < 10; tick++ {
		require.NoError(t, p.world.Schedule(tick, 0, testutil.KindTick))
	}
	require.NoError(t, p.Checkpoint())
	require.NoError(t, p.RunUntil(3))

	// WHEN a message due at 7 arrives
	msg := sim.Message{From: 3, To: 0, FromPlanet: 1, SendTime: 2, Delay: 5, Seq: 1, Payload: 5}
	straggled := p.Receive(msg)
	require.NoError(t, p.RunUntil(10))

	// THEN no rollback is needed and the message is delivered at 7
	assert.False(t, straggled)
	a, _ := p.world.Agent(0)
	tally := a.(*testutil.Tally)
	assert.Equal(t, 10, tally.Events)
	assert.Equal(t, 5, tally.Sum)
	assert.Equal(t, []sim.Time{7}, tally.Seen)
	assert.Equal(t, 0, p.Stats().Rollbacks)
}

func TestPlanet_Withdraw(t *testing.T) {
	b := newBusyPlanet(t, false)
	require.NoError(t, b.Checkpoint())
	msg := straggler()
	msg.Delay = 10

	assert.False(t, b.Withdraw(msg), "unknown message")
	b.Receive(msg)
	require.NoError(t, b.RunUntil(20))
	assert.True(t, b.Withdraw(msg), "withdrawing a processed message requires a rollback")
	assert.Equal(t, 0, b.inbox.len())
}

func TestPlanet_RollbackBeforeOldestCheckpoint_Fails(t *testing.T) {
	// GIVEN checkpoints pruned up to t=8
	b := newBusyPlanet(t, false)
	require.NoError(t, b.Checkpoint())
	require.NoError(t, b.RunUntil(10))
	b.Prune(8)
	oldest, ok := b.journal.oldest()
	require.True(t, ok)
	require.Equal(t, sim.Time(8), oldest)

	// WHEN rolling back to t=1
	_, err := b.RollbackTo(1)

	// THEN it is a rollback failure naming the oldest checkpoint
	require.Error(t, err)
	assert.True(t, IsRollbackFailure(err))
	var rb *RollbackError
	require.True(t, errors.As(err, &rb))
	assert.Equal(t, 1, rb.Planet)
	assert.Equal(t, sim.Time(1), rb.Target)
	assert.Equal(t, sim.Time(8), rb.Oldest)
	assert.Equal(t, Halted, b.State())
}

func TestPlanet_CheckpointsEveryInterval(t *testing.T) {
	b := newBusyPlanet(t, false)
	require.NoError(t, b.Checkpoint())

	require.NoError(t, b.RunUntil(9))

	// t=0 from the explicit checkpoint, then 2, 4, 6 and 8
	var at []sim.Time
	for _, cp := range b.journal.entries {
		at = append(at, cp.at)
	}
	assert.Equal(t, []sim.Time{0, 2, 4, 6, 8}, at)
	assert.Equal(t, 5, b.Stats().Checkpoints)
}

func TestPlanetState_String(t *testing.T) {
	assert.Equal(t, "AwaitingSync", AwaitingSync.String())
	assert.Equal(t, "PlanetState(9)", PlanetState(9).String())
}
