// Package trace records dispatches for offline inspection.
// This package has no dependencies on sim/ or sim/cluster/ — it stores pure data types.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"slices"
)

// Phase tells whether a record is an event or a message dispatch.
type Phase uint8

const (
	PhaseEvent Phase = iota
	PhaseMessage
)

func (p Phase) String() string {
	switch p {
	case PhaseEvent:
		return "event"
	case PhaseMessage:
		return "message"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Record captures a single dispatch.
type Record struct {
	Time   uint64
	Planet int
	Phase  Phase
	Agent  int    // receiving agent
	From   int    // sending agent; equals Agent for events
	Kind   uint16 // event kind; 0 for messages
	Seq    uint64
	State  string // agent state after the handler, empty if the agent does not describe itself
}

// Recorder accumulates records in dispatch order.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	records []Record
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends rec.
func (r *Recorder) Record(rec Record) {
	if r == nil {
		return
	}
	r.records = append(r.records, rec)
}

// Len returns the number of records.
func (r *Recorder) Len() int {
	if r == nil {
		return 0
	}
	return len(r.records)
}

// Truncate drops every record after the first n.
func (r *Recorder) Truncate(n int) {
	if r == nil || n >= len(r.records) {
		return
	}
	clear(r.records[n:])
	r.records = r.records[:n]
}

// Records returns a copy of the records.
func (r *Recorder) Records() []Record {
	if r == nil {
		return nil
	}
	return slices.Clone(r.records)
}

// Merge interleaves per-planet record lists by (Time, Planet), keeping each
// list's own order within a tick.
func Merge(lists ...[]Record) []Record {
	var out []Record
	for _, l := range lists {
		out = append(out, l...)
	}
	slices.SortStableFunc(out, func(a, b Record) int {
		switch {
		case a.Time != b.Time:
			if a.Time < b.Time {
				return -1
			}
			return 1
		case a.Planet != b.Planet:
			return a.Planet - b.Planet
		}
		return 0
	})
	return out
}

// Write renders records one per line.
func Write(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		fmt.Fprintf(bw, "t=%d planet=%d %s agent=%d", rec.Time, rec.Planet, rec.Phase, rec.Agent)
		if rec.Phase == PhaseEvent {
			fmt.Fprintf(bw, " kind=%d", rec.Kind)
		} else {
			fmt.Fprintf(bw, " from=%d", rec.From)
		}
		fmt.Fprintf(bw, " seq=%d", rec.Seq)
		if rec.State != "" {
			fmt.Fprintf(bw, " state=%s", rec.State)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
