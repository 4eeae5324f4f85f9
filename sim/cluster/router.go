package cluster

import (
	"fmt"

	"github.com/inference-sim/aika/sim"
)

// routed is a cross-planet message tagged with its destination planet.
type routed struct {
	dst int
	msg sim.Message
}

// links is the routing fabric: one bounded channel per (sender, receiver)
// planet pair. Senders never block; a full channel is a capacity error.
type links struct {
	capacity int
	chans    [][]chan sim.Message // chans[src][dst], nil on the diagonal
}

func newLinks(planets, capacity int) *links {
	l := &links{capacity: capacity, chans: make([][]chan sim.Message, planets)}
	for src := range l.chans {
		l.chans[src] = make([]chan sim.Message, planets)
		for dst := range l.chans[src] {
			if src != dst {
				l.chans[src][dst] = make(chan sim.Message, capacity)
			}
		}
	}
	return l
}

func (l *links) send(src, dst int, msg sim.Message) error {
	select {
	case l.chans[src][dst] <- msg:
		return nil
	default:
		return &sim.CapacityExceededError{Resource: fmt.Sprintf("mailbox %d->%d", src, dst), Limit: l.capacity}
	}
}

// drain empties every channel sent from src, in destination order.
// Only called while all planets are parked.
func (l *links) drain(src int) []routed {
	var out []routed
	for dst, ch := range l.chans[src] {
		if ch == nil {
			continue
		}
		for len(ch) > 0 {
			out = append(out, routed{dst: dst, msg: <-ch})
		}
	}
	return out
}

// outbox is the sim.Router of one planet.
type outbox struct {
	planet *Planet
	links  *links
	owner  map[sim.AgentID]int // read-only while planets run
	total  int
}

// Route implements sim.Router
func (o *outbox) Route(msg sim.Message) error {
	p := o.planet
	if msg.SendTime < p.floor {
		// Sent and delivered in an earlier round; this is a replay.
		p.stats.DuplicatesSuppressed++
		return nil
	}
	if msg.Delay == 0 {
		return fmt.Errorf("message from agent %d to %d at t=%d: %w", msg.From, msg.To, msg.SendTime, ErrZeroLookahead)
	}
	if msg.To == sim.BroadcastAll {
		for dst := 0; dst < o.total; dst++ {
			if dst == p.id {
				continue
			}
			if err := o.links.send(p.id, dst, msg); err != nil {
				return err
			}
		}
		return nil
	}
	dst, ok := o.owner[msg.To]
	if !ok {
		return &sim.UnknownAgentError{ID: msg.To}
	}
	return o.links.send(p.id, dst, msg)
}
