package sim

import (
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/aika/sim/clock"
	"github.com/inference-sim/aika/sim/trace"
)

// World is the single-threaded event loop. It owns its agents, an event wheel
// and, when messaging is enabled, a mail wheel for local messages.
//
// Each tick is processed in two phases: due events in sequence order, then due
// messages (local mail and the external Source) in message order. Work produced
// for the current tick is picked up by a further pass at the same tick.
type World struct {
	cfg      WorldConfig
	planet   int
	terminal Time

	events *clock.Wheel[Event]
	mail   *clock.Wheel[Message] // nil when messaging is disabled

	agents []Agent // spawn order
	ids    []AgentID
	index  map[AgentID]int
	nextID AgentID

	now      Time
	eventSeq uint64
	msgSeq   uint64
	cursor   Time // first tick not yet taken from source
	stepped  bool // at least one tick has been processed

	router   Router
	source   Source
	recorder *trace.Recorder // nil when logging is disabled

	stats Stats
}

// NewWorld creates an empty World at time 0.
func NewWorld(cfg WorldConfig) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid world config: %w", err)
	}
	events, err := clock.New[Event](cfg.Slots, cfg.Height)
	if err != nil {
		return nil, err
	}
	w := &World{
		cfg:      cfg,
		terminal: cfg.TerminalTick(),
		events:   events,
		index:    make(map[AgentID]int),
	}
	if cfg.Messaging {
		w.mail, err = clock.New[Message](cfg.Slots, cfg.Height)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Logging {
		w.recorder = trace.NewRecorder()
	}
	return w, nil
}

// SetPlanet stamps outgoing messages and trace records with a planet id.
func (w *World) SetPlanet(id int) { w.planet = id }

// SetRouter installs the sink for messages addressed outside this World.
func (w *World) SetRouter(r Router) { w.router = r }

// SetSource installs an external message source.
func (w *World) SetSource(s Source) { w.source = s }

// Config returns the World's configuration.
func (w *World) Config() WorldConfig { return w.cfg }

// Now returns the tick being (or last) processed.
func (w *World) Now() Time { return w.now }

// Processed returns the last tick that has been processed, and false if
// no tick has been processed yet.
func (w *World) Processed() (Time, bool) { return w.now, w.stepped }

// Stats returns the World's counters.
func (w *World) Stats() Stats {
	s := w.stats
	s.FinalTime = w.now
	return s
}

// Trace returns the dispatch log, or nil when logging is disabled.
func (w *World) Trace() *trace.Recorder { return w.recorder }

// Spawn registers agent under the next free id.
func (w *World) Spawn(agent Agent) (AgentID, error) {
	id := w.nextID
	if err := w.SpawnAs(id, agent); err != nil {
		return 0, err
	}
	return id, nil
}

// SpawnAs registers agent under a caller-chosen id.
func (w *World) SpawnAs(id AgentID, agent Agent) error {
	if id < 0 {
		return fmt.Errorf("agent id %d is reserved", id)
	}
	if _, dup := w.index[id]; dup {
		return fmt.Errorf("agent %d already exists", id)
	}
	if len(w.agents) >= w.cfg.ArenaCapacity {
		return &CapacityExceededError{Resource: "arena", Limit: w.cfg.ArenaCapacity}
	}
	w.index[id] = len(w.agents)
	w.agents = append(w.agents, agent)
	w.ids = append(w.ids, id)
	if id >= w.nextID {
		w.nextID = id + 1
	}
	return nil
}

// Agent returns the agent registered under id.
func (w *World) Agent(id AgentID) (Agent, bool) {
	i, ok := w.index[id]
	if !ok {
		return nil, false
	}
	return w.agents[i], true
}

// Agents returns every registered id in spawn order.
func (w *World) Agents() []AgentID { return slices.Clone(w.ids) }

// Owns reports whether id is registered here.
func (w *World) Owns(id AgentID) bool {
	_, ok := w.index[id]
	return ok
}

// Schedule adds an event for target at due.
func (w *World) Schedule(due Time, target AgentID, kind Kind) error {
	return w.scheduleEvent(Event{Time: due, Target: target, Kind: kind})
}

func (w *World) scheduleEvent(ev Event) error {
	if ev.Time < w.now {
		return &PastSchedulingError{Due: ev.Time, Now: w.now}
	}
	if !w.Owns(ev.Target) {
		return &UnknownAgentError{ID: ev.Target}
	}
	w.eventSeq++
	ev.Seq = w.eventSeq
	ev.Commit = w.now
	return w.events.Schedule(ev)
}

// send stamps and routes a message produced by from.
func (w *World) send(from AgentID, msg Message) error {
	if w.mail == nil {
		return ErrMessagingDisabled
	}
	w.msgSeq++
	msg.From = from
	msg.FromPlanet = w.planet
	msg.SendTime = w.now
	msg.Seq = w.msgSeq
	w.stats.MessagesSent++

	switch {
	case msg.To == Broadcast || msg.To == BroadcastAll:
		if err := w.mail.Schedule(msg); err != nil {
			return err
		}
		if msg.To == BroadcastAll && w.router != nil {
			return w.router.Route(msg)
		}
		return nil
	case w.Owns(msg.To):
		return w.mail.Schedule(msg)
	case w.router != nil:
		return w.router.Route(msg)
	}
	return &UnknownAgentError{ID: msg.To}
}

// PeekNext returns the earliest tick with pending work.
func (w *World) PeekNext() (Time, bool) {
	best, found := w.events.PeekNext()
	if w.mail != nil {
		if t, ok := w.mail.PeekNext(); ok && (!found || t < best) {
			best, found = t, true
		}
	}
	if w.source != nil {
		if t, ok := w.source.Next(w.cursor); ok && (!found || t < best) {
			best, found = t, true
		}
	}
	return best, found
}

// Run processes ticks until no work is left, the terminal tick has passed,
// ctx is cancelled or a handler fails.
func (w *World) Run(ctx context.Context) (Stats, error) {
	logrus.Infof("World starting: %d agents, terminal tick %d", len(w.agents), w.terminal)
	for {
		if err := ctx.Err(); err != nil {
			return w.Stats(), err
		}
		t, ok := w.PeekNext()
		if !ok || t > w.terminal {
			break
		}
		if err := w.step(t); err != nil {
			return w.Stats(), err
		}
	}
	logrus.Infof("World finished at t=%d: %d events, %d messages delivered",
		w.now, w.stats.EventsProcessed, w.stats.MessagesDelivered)
	return w.Stats(), nil
}

// RunUntil processes every tick strictly before limit (and not past the
// terminal tick), including zero-delay work produced along the way.
func (w *World) RunUntil(limit Time) error {
	for {
		t, ok := w.PeekNext()
		if !ok || t >= limit || t > w.terminal {
			return nil
		}
		if err := w.step(t); err != nil {
			return err
		}
	}
}

// step runs one pass of tick t.
func (w *World) step(t Time) error {
	w.now = t
	w.stepped = true

	if due, ok := w.events.PeekNext(); ok && due == t {
		_, batch, _ := w.events.Advance()
		for _, ev := range batch {
			if err := w.dispatchEvent(ev); err != nil {
				return err
			}
		}
	}

	var msgs []Message
	if w.mail != nil {
		if due, ok := w.mail.PeekNext(); ok && due == t {
			_, msgs, _ = w.mail.Advance()
		}
	}
	if w.source != nil && w.cursor <= t {
		msgs = append(msgs, w.source.Take(t)...)
		w.cursor = t + 1
	}
	slices.SortFunc(msgs, func(a, b Message) int {
		switch {
		case MessageLess(a, b):
			return -1
		case MessageLess(b, a):
			return 1
		}
		return 0
	})
	for _, msg := range msgs {
		if err := w.deliver(msg); err != nil {
			return err
		}
	}
	return nil
}

func (w *World) dispatchEvent(ev Event) error {
	agent, ok := w.Agent(ev.Target)
	if !ok {
		return &UnknownAgentError{ID: ev.Target}
	}
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		logrus.Debugf("[tick %07d] event kind=%d -> agent %d", w.now, ev.Kind, ev.Target)
	}
	fx, err := agent.OnEvent(w.now, ev)
	if err != nil {
		return &AgentError{Agent: ev.Target, Time: w.now, Err: err}
	}
	w.stats.EventsProcessed++
	w.record(trace.Record{Phase: trace.PhaseEvent, Agent: int(ev.Target), From: int(ev.Target), Kind: uint16(ev.Kind), Seq: ev.Seq}, agent)
	return w.apply(ev.Target, fx)
}

func (w *World) deliver(msg Message) error {
	if msg.To == Broadcast || msg.To == BroadcastAll {
		for i := range w.agents {
			if err := w.deliverTo(w.ids[i], w.agents[i], msg); err != nil {
				return err
			}
		}
		return nil
	}
	agent, ok := w.Agent(msg.To)
	if !ok {
		return &UnknownAgentError{ID: msg.To}
	}
	return w.deliverTo(msg.To, agent, msg)
}

func (w *World) deliverTo(id AgentID, agent Agent, msg Message) error {
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		logrus.Debugf("[tick %07d] message %d:%d -> agent %d", w.now, msg.FromPlanet, msg.From, id)
	}
	fx, err := agent.OnMessage(w.now, msg)
	if err != nil {
		return &AgentError{Agent: id, Time: w.now, Err: err}
	}
	w.stats.MessagesDelivered++
	w.record(trace.Record{Phase: trace.PhaseMessage, Agent: int(id), From: int(msg.From), Seq: msg.Seq}, agent)
	return w.apply(id, fx)
}

// apply schedules a handler's effects on behalf of self.
func (w *World) apply(self AgentID, fx Effects) error {
	for _, ev := range fx.Events {
		if err := w.scheduleEvent(ev); err != nil {
			return fmt.Errorf("agent %d at t=%d: %w", self, w.now, err)
		}
	}
	for _, msg := range fx.Messages {
		if err := w.send(self, msg); err != nil {
			return fmt.Errorf("agent %d at t=%d: %w", self, w.now, err)
		}
	}
	return nil
}

func (w *World) record(rec trace.Record, agent Agent) {
	if w.recorder == nil {
		return
	}
	rec.Time = uint64(w.now)
	rec.Planet = w.planet
	if s, ok := agent.(fmt.Stringer); ok {
		rec.State = s.String()
	}
	w.recorder.Record(rec)
}
