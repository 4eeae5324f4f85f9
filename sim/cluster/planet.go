package cluster

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/aika/sim"
)

// Planet is one partition of the simulation: a World run optimistically on
// its own goroutine, a checkpoint journal to roll back with, and the inbox of
// messages other planets have sent it.
//
// Thread-safety: a Planet is driven by one goroutine at a time. The engine
// only touches it while it is parked at the barrier.
type Planet struct {
	id       int
	world    *sim.World
	state    PlanetState
	lvt      sim.Time // every tick before lvt has been executed
	floor    sim.Time // GVT at the start of the round
	interval sim.Time

	journal journal
	inbox   inbox

	stats PlanetStats
	log   *logrus.Entry
}

func newPlanet(id int, cfg sim.WorldConfig, interval sim.Time) (*Planet, error) {
	w, err := sim.NewWorld(cfg)
	if err != nil {
		return nil, err
	}
	w.SetPlanet(id)
	p := &Planet{
		id:       id,
		world:    w,
		state:    AwaitingSync,
		interval: interval,
		log:      logrus.WithField("planet", id),
	}
	w.SetSource(&p.inbox)
	return p, nil
}

// ID returns the planet index.
func (p *Planet) ID() int { return p.id }

// State returns the synchronization state.
func (p *Planet) State() PlanetState { return p.state }

// LVT returns the local virtual time.
func (p *Planet) LVT() sim.Time { return p.lvt }

// World exposes the planet's World. Not safe while the engine is running.
func (p *Planet) World() *sim.World { return p.world }

// Checkpoints returns the number of checkpoints held.
func (p *Planet) Checkpoints() int { return p.journal.len() }

// Checkpoint captures the World at the current LVT.
func (p *Planet) Checkpoint() error {
	return p.checkpointAt(p.lvt)
}

func (p *Planet) checkpointAt(at sim.Time) error {
	snap, err := p.world.Checkpoint()
	if err != nil {
		return err
	}
	p.journal.append(checkpoint{at: at, snap: snap})
	p.stats.Checkpoints++
	return nil
}

// RunUntil executes every tick before limit, checkpointing whenever the
// interval has passed since the last checkpoint, and sets LVT to limit.
func (p *Planet) RunUntil(limit sim.Time) error {
	p.state = Running
	if err := p.runTo(limit); err != nil {
		p.state = Halted
		return &PlanetError{Planet: p.id, Err: err}
	}
	p.state = AwaitingSync
	return nil
}

func (p *Planet) runTo(limit sim.Time) error {
	for {
		t, ok := p.world.PeekNext()
		if !ok || t >= limit {
			break
		}
		if last, ok := p.journal.last(); !ok || t >= last+p.interval {
			if err := p.checkpointAt(t); err != nil {
				return err
			}
		}
		if err := p.world.RunUntil(t + 1); err != nil {
			return err
		}
		if next, ok := p.world.PeekNext(); ok && next == t {
			// The terminal tick stops the World before it drains.
			break
		}
	}
	if limit > p.lvt {
		p.lvt = limit
	}
	return nil
}

// RollbackTo restores the newest checkpoint at or before t, discards every
// later checkpoint and replays strictly up to t. It returns the time of the
// restored checkpoint.
func (p *Planet) RollbackTo(t sim.Time) (sim.Time, error) {
	p.state = RollingBack
	cp, ok := p.journal.rewind(t)
	if !ok {
		p.state = Halted
		oldest, _ := p.journal.oldest()
		return 0, &RollbackError{Planet: p.id, Target: t, Oldest: oldest}
	}
	undone := p.world.Stats().EventsProcessed - cp.snap.Stats().EventsProcessed
	if err := p.world.Restore(cp.snap); err != nil {
		p.state = Halted
		return 0, &PlanetError{Planet: p.id, Err: err}
	}
	p.stats.Rollbacks++
	p.stats.EventsRolledBack += undone
	p.log.Debugf("rolled back to t=%d for straggler at t=%d, %d events undone", cp.at, t, undone)

	p.lvt = cp.at
	if err := p.runTo(t); err != nil {
		p.state = Halted
		return 0, &PlanetError{Planet: p.id, Err: err}
	}
	p.state = AwaitingSync
	return cp.at, nil
}

// straggles reports whether a message due at t would land in this planet's
// executed past.
func (p *Planet) straggles(t sim.Time) bool {
	done, ok := p.world.Processed()
	return ok && t <= done
}

// Receive adds a remote message to the inbox and reports whether it is a
// straggler that requires a rollback. A message due inside the window that
// has not been reached yet pulls LVT back to its delivery time.
func (p *Planet) Receive(msg sim.Message) bool {
	p.inbox.add(msg)
	at := msg.DeliverAt()
	if p.straggles(at) {
		return true
	}
	p.lvt = min(p.lvt, at)
	return false
}

// Withdraw removes a previously received message and reports whether its
// removal requires a rollback.
func (p *Planet) Withdraw(msg sim.Message) bool {
	if !p.inbox.remove(msg) {
		return false
	}
	return p.straggles(msg.DeliverAt())
}

// Prune drops checkpoints no rollback can need once GVT has reached gvt, and
// inbox messages older than the oldest remaining checkpoint.
func (p *Planet) Prune(gvt sim.Time) {
	p.journal.prune(gvt)
	if oldest, ok := p.journal.oldest(); ok {
		p.inbox.prune(oldest)
	}
}

// Stats returns the planet's counters. World counters cover committed work.
func (p *Planet) Stats() PlanetStats {
	ws := p.world.Stats()
	s := p.stats
	s.ID = p.id
	s.State = p.state
	s.Agents = len(p.world.Agents())
	s.LVT = p.lvt
	s.EventsProcessed = ws.EventsProcessed
	s.MessagesSent = ws.MessagesSent
	s.MessagesDelivered = ws.MessagesDelivered
	return s
}

// Idle reports whether the planet has no pending work at all.
func (p *Planet) Idle() bool {
	_, ok := p.world.PeekNext()
	return !ok
}

func (p *Planet) String() string {
	return fmt.Sprintf("planet %d [%s] lvt=%d checkpoints=%d", p.id, p.state, p.lvt, p.journal.len())
}
