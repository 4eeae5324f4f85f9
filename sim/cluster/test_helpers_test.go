package cluster

import (
	"errors"
	"io"
	"math"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/aika/sim"
	"github.com/inference-sim/aika/sim/internal/testutil"
)

var errBoom = errors.New("boom")

// sender sends Payload to To, Delay ticks after each of its events.
type sender struct {
	To      sim.AgentID
	Delay   sim.Time
	Payload any
}

func (s *sender) OnEvent(now sim.Time, ev sim.Event) (sim.Effects, error) {
	var fx sim.Effects
	fx.Send(sim.To(s.To, s.Delay, s.Payload))
	return fx, nil
}

func (s *sender) OnMessage(now sim.Time, msg sim.Message) (sim.Effects, error) {
	return sim.None, nil
}

func (s *sender) Snapshot() sim.Agent {
	cp := *s
	return &cp
}

// bouncer returns every message to Peer one tick later.
type bouncer struct {
	Peer sim.AgentID
	Got  int
}

func (b *bouncer) OnEvent(now sim.Time, ev sim.Event) (sim.Effects, error) {
	var fx sim.Effects
	fx.Send(sim.To(b.Peer, 1, 0))
	return fx, nil
}

func (b *bouncer) OnMessage(now sim.Time, msg sim.Message) (sim.Effects, error) {
	b.Got++
	var fx sim.Effects
	fx.Send(sim.To(b.Peer, 1, 0))
	return fx, nil
}

func (b *bouncer) Snapshot() sim.Agent {
	cp := *b
	return &cp
}

// reading is a payload that reflect.DeepEqual never finds equal to itself
// once it holds NaN.
type reading struct{ V float64 }

func (r reading) Equal(other any) bool {
	o, ok := other.(reading)
	return ok && (o.V == r.V || math.IsNaN(o.V) && math.IsNaN(r.V))
}

// failer ticks every tick and fails at At.
type failer struct {
	ID sim.AgentID
	At sim.Time
}

func (f *failer) OnEvent(now sim.Time, ev sim.Event) (sim.Effects, error) {
	if now == f.At {
		return sim.None, errBoom
	}
	var fx sim.Effects
	fx.Schedule(sim.After(now, 1, f.ID, testutil.KindTick))
	return fx, nil
}

func (f *failer) OnMessage(now sim.Time, msg sim.Message) (sim.Effects, error) {
	return sim.None, nil
}

func (f *failer) Snapshot() sim.Agent {
	cp := *f
	return &cp
}

// plain is an agent without Snapshot.
type plain struct{}

func (plain) OnEvent(sim.Time, sim.Event) (sim.Effects, error)     { return sim.None, nil }
func (plain) OnMessage(sim.Time, sim.Message) (sim.Effects, error) { return sim.None, nil }

func testWorldConfig() sim.WorldConfig {
	cfg := sim.DefaultWorldConfig()
	cfg.Slots = 8
	cfg.Height = 2
	cfg.ArenaCapacity = 16
	cfg.Terminal = 200
	return cfg
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.World = testWorldConfig()
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) *HybridEngine {
	t.Helper()
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func newTestPlanet(t *testing.T, id int, cfg sim.WorldConfig, interval sim.Time) *Planet {
	t.Helper()
	p, err := newPlanet(id, cfg, interval)
	require.NoError(t, err)
	return p
}

// spawnPingers places n pingers round-robin and starts each at t=0.
func spawnPingers(t *testing.T, e *HybridEngine, n int, period, maxDelay sim.Time, seed int64) {
	t.Helper()
	for i := 0; i < n; i++ {
		id, err := e.SpawnBalanced(testutil.NewPinger(sim.AgentID(i), n, period, maxDelay, seed))
		require.NoError(t, err)
		require.Equal(t, sim.AgentID(i), id)
		require.NoError(t, e.Schedule(0, id, testutil.KindStart))
	}
}

// pingers returns the current agents 0..n-1 of e.
func pingers(t *testing.T, e *HybridEngine, n int) []*testutil.Pinger {
	t.Helper()
	out := make([]*testutil.Pinger, n)
	for i := range out {
		a, ok := e.Agent(sim.AgentID(i))
		require.True(t, ok)
		out[i] = a.(*testutil.Pinger)
	}
	return out
}

// captureRounds enables debug logging for the test and returns a hook that
// sees every log entry.
func captureRounds(t *testing.T) *test.Hook {
	t.Helper()
	level := logrus.GetLevel()
	logrus.SetLevel(logrus.DebugLevel)
	logrus.SetOutput(io.Discard)
	hook := test.NewGlobal()
	t.Cleanup(func() {
		logrus.SetLevel(level)
		logrus.SetOutput(os.Stderr)
		logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	})
	return hook
}

// roundGVTs returns the GVT logged at the end of every round, in order.
func roundGVTs(hook *test.Hook) []sim.Time {
	var out []sim.Time
	for _, entry := range hook.AllEntries() {
		if gvt, ok := entry.Data["gvt"].(sim.Time); ok {
			out = append(out, gvt)
		}
	}
	return out
}
