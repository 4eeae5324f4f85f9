package sim

// Agent is a simulated entity. Handlers run on the World's goroutine, receive
// the current tick and return the work they produce. An error from a handler
// is fatal for the run.
//
// Agents must be deterministic: the same sequence of calls produces the same
// results and the same internal state.
type Agent interface {
	OnEvent(now Time, ev Event) (Effects, error)
	OnMessage(now Time, msg Message) (Effects, error)
}

// Snapshotter is implemented by agents that can be checkpointed.
// Snapshot returns a deep copy that shares no mutable state with the receiver.
type Snapshotter interface {
	Snapshot() Agent
}

// Effects is what a handler asks the World to do next.
type Effects struct {
	Events   []Event
	Messages []Message
}

// Schedule appends events.
func (fx *Effects) Schedule(evs ...Event) {
	fx.Events = append(fx.Events, evs...)
}

// Send appends messages.
func (fx *Effects) Send(msgs ...Message) {
	fx.Messages = append(fx.Messages, msgs...)
}

// None is the empty result.
var None = Effects{}

// Router takes messages whose receiver is not owned by the sending World.
type Router interface {
	Route(msg Message) error
}

// Source supplies messages produced outside the World, such as mail from
// other planets. Take is called at most once per tick, in tick order.
type Source interface {
	// Next returns the earliest pending delivery time at or after from.
	Next(from Time) (Time, bool)
	// Take returns the messages due at t.
	Take(t Time) []Message
}
