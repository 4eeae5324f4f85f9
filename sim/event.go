package sim

import (
	"github.com/inference-sim/aika/sim/clock"
)

// Time is a simulation timestamp in ticks.
type Time = clock.Time

// AgentID identifies an agent. IDs are unique across every World of a run.
type AgentID int

const (
	// Broadcast addresses every agent of the World that handles the message.
	Broadcast AgentID = -1
	// BroadcastAll addresses every agent on every planet.
	BroadcastAll AgentID = -2
)

// Kind is an agent-defined event tag.
type Kind uint16

// Event is a unit of work due for one agent at one tick.
// Ordering: Time → Seq.
type Event struct {
	Time   Time    // Due time
	Target AgentID // Agent the event is dispatched to
	Kind   Kind
	Seq    uint64 // Assigned by the World when scheduled
	Commit Time   // World time at which the event was scheduled
}

// DueTime implements clock.Item
func (e Event) DueTime() Time { return e.Time }

// Sequence implements clock.Item
func (e Event) Sequence() uint64 { return e.Seq }

// At returns an event for target due at t.
func At(t Time, target AgentID, kind Kind) Event {
	return Event{Time: t, Target: target, Kind: kind}
}

// After returns an event for target due d ticks after now.
func After(now, d Time, target AgentID, kind Kind) Event {
	return Event{Time: now + d, Target: target, Kind: kind}
}

// Message is agent-to-agent communication. From, FromPlanet, SendTime and Seq
// are stamped by the sending World. Payload must be treated as immutable.
// Ordering within a tick: FromPlanet → Seq.
//
// Cross-planet payloads are compared after every rollback pass, with
// reflect.DeepEqual unless the payload implements PayloadEqualer. A payload
// that never equals itself under DeepEqual (a func, a NaN float) must
// implement PayloadEqualer or the barrier cannot settle.
type Message struct {
	From       AgentID
	To         AgentID // Receiver, Broadcast or BroadcastAll
	FromPlanet int
	SendTime   Time
	Delay      Time // Delivery happens at SendTime+Delay
	Seq        uint64
	Payload    any
}

// PayloadEqualer is implemented by payloads that define their own equality.
type PayloadEqualer interface {
	Equal(other any) bool
}

// DeliverAt returns the tick at which the message is handled.
func (m Message) DeliverAt() Time { return m.SendTime + m.Delay }

// DueTime implements clock.Item
func (m Message) DueTime() Time { return m.DeliverAt() }

// Sequence implements clock.Item
func (m Message) Sequence() uint64 { return m.Seq }

// To returns a message for receiver delivered delay ticks after it is sent.
func To(receiver AgentID, delay Time, payload any) Message {
	return Message{To: receiver, Delay: delay, Payload: payload}
}

// MessageLess orders messages due at the same tick.
func MessageLess(a, b Message) bool {
	if a.DeliverAt() != b.DeliverAt() {
		return a.DeliverAt() < b.DeliverAt()
	}
	if a.FromPlanet != b.FromPlanet {
		return a.FromPlanet < b.FromPlanet
	}
	return a.Seq < b.Seq
}
