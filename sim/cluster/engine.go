package cluster

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/inference-sim/aika/sim"
	"github.com/inference-sim/aika/sim/trace"
)

// HybridEngine runs one World per planet in parallel under Clustered Time
// Warp: planets execute optimistically up to GVT plus the throttle window,
// exchange messages at a barrier and roll back any planet that received a
// message in its executed past.
//
// Agents are spawned on a chosen planet before Run; their ids are global.
// Every agent must implement sim.Snapshotter.
type HybridEngine struct {
	cfg      Config
	terminal sim.Time
	runID    string
	log      *logrus.Entry

	planets []*Planet
	links   *links // nil when messaging is disabled
	owner   map[sim.AgentID]int
	nextID  sim.AgentID

	gvt     sim.Time
	started bool

	// Barrier bookkeeping for the current round.
	sent      [][]routed               // per sender, in send order
	delivered []map[msgKey]sim.Message // per receiver, currently in its inbox

	rounds      int
	passes      int
	routedCount int64
}

// New creates an engine with cfg.NumPlanets empty planets.
func New(cfg Config) (*HybridEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	runID := uuid.NewString()
	e := &HybridEngine{
		cfg:       cfg,
		terminal:  cfg.World.TerminalTick(),
		runID:     runID,
		log:       logrus.WithField("run", runID),
		owner:     make(map[sim.AgentID]int),
		sent:      make([][]routed, cfg.NumPlanets),
		delivered: make([]map[msgKey]sim.Message, cfg.NumPlanets),
	}
	if cfg.World.Messaging {
		e.links = newLinks(cfg.NumPlanets, cfg.MailboxCapacity)
	}
	for i := 0; i < cfg.NumPlanets; i++ {
		p, err := newPlanet(i, cfg.WorldFor(i), cfg.CheckpointInterval)
		if err != nil {
			return nil, err
		}
		if e.links != nil {
			p.world.SetRouter(&outbox{planet: p, links: e.links, owner: e.owner, total: cfg.NumPlanets})
		}
		e.planets = append(e.planets, p)
		e.delivered[i] = make(map[msgKey]sim.Message)
	}
	return e, nil
}

// RunID returns the identifier stamped on this engine's logs and stats.
func (e *HybridEngine) RunID() string { return e.runID }

// Config returns the engine configuration.
func (e *HybridEngine) Config() Config { return e.cfg }

// NumPlanets returns the planet count.
func (e *HybridEngine) NumPlanets() int { return len(e.planets) }

// Planet returns planet i, or nil when out of range.
func (e *HybridEngine) Planet(i int) *Planet {
	if i < 0 || i >= len(e.planets) {
		return nil
	}
	return e.planets[i]
}

// GVT returns the global virtual time reached so far.
func (e *HybridEngine) GVT() sim.Time { return e.gvt }

// Owner returns the planet an agent lives on.
func (e *HybridEngine) Owner(id sim.AgentID) (int, bool) {
	p, ok := e.owner[id]
	return p, ok
}

// Agent returns the agent registered under id, wherever it lives.
func (e *HybridEngine) Agent(id sim.AgentID) (sim.Agent, bool) {
	planet, ok := e.owner[id]
	if !ok {
		return nil, false
	}
	return e.planets[planet].world.Agent(id)
}

// Spawn places agent on planet and returns its global id.
func (e *HybridEngine) Spawn(planet int, agent sim.Agent) (sim.AgentID, error) {
	if e.started {
		return 0, errors.New("cannot spawn agents after Run")
	}
	p := e.Planet(planet)
	if p == nil {
		return 0, fmt.Errorf("planet %d out of range [0, %d)", planet, len(e.planets))
	}
	if _, ok := agent.(sim.Snapshotter); !ok {
		return 0, fmt.Errorf("agent %T: %w", agent, sim.ErrNotSnapshottable)
	}
	id := e.nextID
	if err := p.world.SpawnAs(id, agent); err != nil {
		return 0, &PlanetError{Planet: planet, Err: err}
	}
	e.owner[id] = planet
	e.nextID++
	return id, nil
}

// SpawnBalanced places agent on the planet with the fewest agents, lowest
// index first, skipping planets whose arena is full.
func (e *HybridEngine) SpawnBalanced(agent sim.Agent) (sim.AgentID, error) {
	best := -1
	for i, p := range e.planets {
		n := len(p.world.Agents())
		if n >= p.world.Config().ArenaCapacity {
			continue
		}
		if best < 0 || n < len(e.planets[best].world.Agents()) {
			best = i
		}
	}
	if best < 0 {
		return 0, fmt.Errorf("every planet is full: %w", sim.ErrCapacityExceeded)
	}
	return e.Spawn(best, agent)
}

// Schedule adds an initial event for agent id at due.
func (e *HybridEngine) Schedule(due sim.Time, id sim.AgentID, kind sim.Kind) error {
	planet, ok := e.owner[id]
	if !ok {
		return &sim.UnknownAgentError{ID: id}
	}
	if e.started && due < e.gvt {
		return &sim.PastSchedulingError{Due: due, Now: e.gvt}
	}
	return e.planets[planet].world.Schedule(due, id, kind)
}

// Trace merges every planet's dispatch log by time, then planet.
// Returns nil when logging is disabled.
func (e *HybridEngine) Trace() []trace.Record {
	if !e.cfg.World.Logging {
		return nil
	}
	lists := make([][]trace.Record, 0, len(e.planets))
	for _, p := range e.planets {
		lists = append(lists, p.world.Trace().Records())
	}
	return trace.Merge(lists...)
}

// Run executes rounds until GVT passes the terminal tick, every planet is
// idle, ctx is cancelled or a planet fails. Cancellation is honoured at the
// barrier once the round's rollbacks have completed; the partial stats are
// returned with ctx.Err().
func (e *HybridEngine) Run(ctx context.Context) (*Stats, error) {
	if e.started {
		return nil, errors.New("engine has already run")
	}
	e.started = true
	start := time.Now()

	e.log.Infof("Starting hybrid run: %d planets, %d agents, throttle=%d, checkpoint every %d, terminal tick %d",
		len(e.planets), len(e.owner), e.cfg.ThrottleWindow, e.cfg.CheckpointInterval, e.terminal)

	for _, p := range e.planets {
		if err := p.Checkpoint(); err != nil {
			return e.halt(start, &PlanetError{Planet: p.id, Err: err})
		}
	}

	for {
		limit := windowEnd(e.gvt, e.cfg.ThrottleWindow, e.terminal)
		for _, p := range e.planets {
			p.floor = e.gvt
		}
		if err := e.parallel(e.planets, func(p *Planet) error { return p.RunUntil(limit) }); err != nil {
			return e.halt(start, err)
		}
		if err := e.synchronize(limit); err != nil {
			return e.halt(start, err)
		}

		lvts := make([]sim.Time, len(e.planets))
		for i, p := range e.planets {
			lvts[i] = p.lvt
		}
		// synchronize drains every link before it returns, so no message is
		// in flight at this point and GVT is the minimum LVT.
		gvt := computeGVT(lvts, nil)
		if gvt < e.gvt {
			return e.halt(start, fmt.Errorf("%w: %d -> %d", ErrGVTRegression, e.gvt, gvt))
		}
		e.gvt = gvt
		e.rounds++
		for _, p := range e.planets {
			p.Prune(gvt)
		}
		e.log.WithFields(logrus.Fields{"round": e.rounds, "gvt": gvt}).
			Debugf("round %d: window end %d, GVT %d", e.rounds, limit, gvt)

		if err := ctx.Err(); err != nil {
			e.log.Warnf("Run cancelled at GVT %d", e.gvt)
			return e.halt(start, err)
		}
		if e.gvt > e.terminal {
			break
		}
		next, ok := e.nextPending()
		if !ok || next > e.terminal {
			break
		}
		if next > e.gvt {
			// Nothing can happen before next anywhere.
			e.gvt = next
			for _, p := range e.planets {
				p.lvt = max(p.lvt, next)
			}
		}
	}

	stats, _ := e.halt(start, nil)
	e.log.Infof("Hybrid run finished: GVT %d after %d rounds, %d events committed, %d rolled back",
		stats.FinalGVT, stats.SyncRounds, stats.EventsProcessed, stats.EventsRolledBack)
	return stats, nil
}

// synchronize exchanges the round's cross-planet messages until every
// planet's inbox matches what its senders finally sent. Planets that received
// a message in their executed past roll back; planets that received one
// inside the window ahead of them run on to limit.
func (e *HybridEngine) synchronize(limit sim.Time) error {
	if e.links == nil {
		return nil
	}
	bound := syncBound(e.cfg.MaxSyncPasses, e.gvt, limit)
	e.collect()
	for pass := 1; ; pass++ {
		e.passes++
		targets := e.reconcile()
		var work []*Planet
		for _, p := range e.planets {
			if _, ok := targets[p.id]; ok || p.lvt < limit {
				work = append(work, p)
			}
		}
		if len(work) == 0 {
			break
		}
		if pass > bound {
			return fmt.Errorf("%w after %d passes", ErrSyncDiverged, bound)
		}

		restored := make([]sim.Time, len(e.planets))
		err := e.parallel(work, func(p *Planet) error {
			if t, ok := targets[p.id]; ok {
				at, err := p.RollbackTo(t)
				if err != nil {
					return err
				}
				restored[p.id] = at
			}
			return p.RunUntil(limit)
		})
		if err != nil {
			return err
		}
		// A rolled-back sender resends everything from its checkpoint on.
		for _, p := range work {
			if _, ok := targets[p.id]; !ok {
				continue
			}
			e.sent[p.id] = slices.DeleteFunc(e.sent[p.id], func(r routed) bool {
				return r.msg.SendTime >= restored[p.id]
			})
		}
		e.collect()
	}

	for dst := range e.delivered {
		e.routedCount += int64(len(e.delivered[dst]))
		e.delivered[dst] = make(map[msgKey]sim.Message)
	}
	for src := range e.sent {
		e.sent[src] = nil
	}
	return nil
}

// collect moves everything sitting in the routing channels into the round's
// send lists.
func (e *HybridEngine) collect() {
	for src := range e.planets {
		e.sent[src] = append(e.sent[src], e.links.drain(src)...)
	}
}

// reconcile brings every inbox in line with the current send lists and
// returns, per planet, the earliest time a change touched its executed past.
func (e *HybridEngine) reconcile() map[int]sim.Time {
	want := make([]map[msgKey]sim.Message, len(e.planets))
	for dst := range want {
		want[dst] = make(map[msgKey]sim.Message)
	}
	for src, list := range e.sent {
		for _, r := range list {
			want[r.dst][msgKey{planet: src, seq: r.msg.Seq}] = r.msg
		}
	}

	targets := make(map[int]sim.Time)
	mark := func(dst int, t sim.Time) {
		if cur, ok := targets[dst]; !ok || t < cur {
			targets[dst] = t
		}
	}
	for dst, p := range e.planets {
		have := e.delivered[dst]
		for key, old := range have {
			if m, ok := want[dst][key]; ok && sameMessage(m, old) {
				continue
			}
			if p.Withdraw(old) {
				mark(dst, old.DeliverAt())
			}
		}
		for key, m := range want[dst] {
			if old, ok := have[key]; ok && sameMessage(m, old) {
				continue
			}
			if p.Receive(m) {
				mark(dst, m.DeliverAt())
			}
		}
		e.delivered[dst] = want[dst]
	}
	return targets
}

// sameMessage reports whether a resent message matches the one delivered.
func sameMessage(a, b sim.Message) bool {
	if a.From != b.From || a.To != b.To || a.FromPlanet != b.FromPlanet ||
		a.SendTime != b.SendTime || a.Delay != b.Delay || a.Seq != b.Seq {
		return false
	}
	if eq, ok := a.Payload.(sim.PayloadEqualer); ok {
		return eq.Equal(b.Payload)
	}
	return reflect.DeepEqual(a.Payload, b.Payload)
}

// nextPending returns the earliest pending tick over all planets.
func (e *HybridEngine) nextPending() (sim.Time, bool) {
	var best sim.Time
	found := false
	for _, p := range e.planets {
		if t, ok := p.world.PeekNext(); ok && (!found || t < best) {
			best, found = t, true
		}
	}
	return best, found
}

// parallel runs fn on every planet in ps on its own goroutine and waits for
// all of them. The first error is returned.
func (e *HybridEngine) parallel(ps []*Planet, fn func(*Planet) error) error {
	var g errgroup.Group
	for _, p := range ps {
		g.Go(func() error { return fn(p) })
	}
	return g.Wait()
}

func ctxErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// halt parks every planet and assembles the run's stats.
func (e *HybridEngine) halt(start time.Time, err error) (*Stats, error) {
	planets := make([]PlanetStats, len(e.planets))
	for i, p := range e.planets {
		p.state = Halted
		planets[i] = p.Stats()
	}
	s := newStats(e.runID, planets)
	s.MessagesRouted = e.routedCount
	s.SyncRounds = e.rounds
	s.SyncPasses = e.passes
	s.FinalGVT = e.gvt
	s.Elapsed = time.Since(start)
	if err != nil && ctxErr(err) == nil {
		e.log.Errorf("Hybrid run halted at GVT %d: %v", e.gvt, err)
	}
	return s, err
}
