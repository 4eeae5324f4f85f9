package cluster

import (
	"slices"

	"github.com/inference-sim/aika/sim"
)

// inbox holds the remote messages delivered to one planet, ordered by
// (DeliverAt, FromPlanet, Seq). It is not part of planet checkpoints: after a
// rollback the World takes messages from it again starting at the restored time.
type inbox struct {
	msgs []sim.Message
}

func compareMessages(a, b sim.Message) int {
	switch {
	case sim.MessageLess(a, b):
		return -1
	case sim.MessageLess(b, a):
		return 1
	}
	return 0
}

func (b *inbox) add(m sim.Message) {
	i, _ := slices.BinarySearchFunc(b.msgs, m, compareMessages)
	b.msgs = slices.Insert(b.msgs, i, m)
}

// remove deletes the message with the same key and delivery time.
func (b *inbox) remove(m sim.Message) bool {
	i, found := slices.BinarySearchFunc(b.msgs, m, compareMessages)
	if !found {
		return false
	}
	b.msgs = slices.Delete(b.msgs, i, i+1)
	return true
}

func (b *inbox) len() int { return len(b.msgs) }

// firstAt returns the index of the first message due at or after t.
func (b *inbox) firstAt(t sim.Time) int {
	i, _ := slices.BinarySearchFunc(b.msgs, t, func(m sim.Message, t sim.Time) int {
		switch {
		case m.DeliverAt() < t:
			return -1
		case m.DeliverAt() > t:
			return 1
		}
		return 0
	})
	return i
}

// Next implements sim.Source
func (b *inbox) Next(from sim.Time) (sim.Time, bool) {
	i := b.firstAt(from)
	if i == len(b.msgs) {
		return 0, false
	}
	return b.msgs[i].DeliverAt(), true
}

// Take implements sim.Source
func (b *inbox) Take(t sim.Time) []sim.Message {
	i := b.firstAt(t)
	j := i
	for j < len(b.msgs) && b.msgs[j].DeliverAt() == t {
		j++
	}
	return slices.Clone(b.msgs[i:j])
}

// prune drops messages due before t.
func (b *inbox) prune(t sim.Time) {
	i := b.firstAt(t)
	if i > 0 {
		b.msgs = slices.Delete(b.msgs, 0, i)
	}
}
