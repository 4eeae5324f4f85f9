package sim

import (
	"fmt"

	"github.com/inference-sim/aika/sim/clock"
)

// Snapshot is a captured World state. A Snapshot can be restored any number
// of times; restoring never hands out the captured agents themselves.
type Snapshot struct {
	now      Time
	events   *clock.Wheel[Event]
	mail     *clock.Wheel[Message]
	agents   []Agent
	eventSeq uint64
	msgSeq   uint64
	cursor   Time
	stepped  bool
	stats    Stats
	traceLen int
}

// Now returns the World time at capture.
func (s *Snapshot) Now() Time { return s.now }

// Stats returns the World counters at capture.
func (s *Snapshot) Stats() Stats { return s.stats }

// Checkpoint captures the World. Every agent must implement Snapshotter.
func (w *World) Checkpoint() (*Snapshot, error) {
	agents := make([]Agent, len(w.agents))
	for i, a := range w.agents {
		s, ok := a.(Snapshotter)
		if !ok {
			return nil, fmt.Errorf("agent %d: %w", w.ids[i], ErrNotSnapshottable)
		}
		agents[i] = s.Snapshot()
	}
	snap := &Snapshot{
		now:      w.now,
		events:   w.events.Clone(),
		agents:   agents,
		eventSeq: w.eventSeq,
		msgSeq:   w.msgSeq,
		cursor:   w.cursor,
		stepped:  w.stepped,
		stats:    w.stats,
		traceLen: w.recorder.Len(),
	}
	if w.mail != nil {
		snap.mail = w.mail.Clone()
	}
	return snap, nil
}

// Restore rewinds the World to snap. The agent set must not have changed
// since the snapshot was taken.
func (w *World) Restore(snap *Snapshot) error {
	if len(snap.agents) != len(w.agents) {
		return fmt.Errorf("snapshot holds %d agents, world has %d", len(snap.agents), len(w.agents))
	}
	for i, a := range snap.agents {
		w.agents[i] = a.(Snapshotter).Snapshot()
	}
	w.now = snap.now
	w.events = snap.events.Clone()
	if snap.mail != nil {
		w.mail = snap.mail.Clone()
	}
	w.eventSeq = snap.eventSeq
	w.msgSeq = snap.msgSeq
	w.cursor = snap.cursor
	w.stepped = snap.stepped
	w.stats = snap.stats
	w.recorder.Truncate(snap.traceLen)
	return nil
}
