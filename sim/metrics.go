package sim

import (
	"fmt"
	"io"
)

// Stats aggregates counters of a World run for final reporting.
type Stats struct {
	EventsProcessed   int64 // Event handlers invoked
	MessagesSent      int64 // Messages stamped by this World, remote ones included
	MessagesDelivered int64 // Message handlers invoked; a broadcast counts once per receiver
	FinalTime         Time  // Last tick processed
}

// Add returns the element-wise sum of s and o. FinalTime is the later of the two.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		EventsProcessed:   s.EventsProcessed + o.EventsProcessed,
		MessagesSent:      s.MessagesSent + o.MessagesSent,
		MessagesDelivered: s.MessagesDelivered + o.MessagesDelivered,
		FinalTime:         max(s.FinalTime, o.FinalTime),
	}
}

// Print writes the counters in the CLI's report format.
func (s Stats) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Events Processed     : %d\n", s.EventsProcessed)
	fmt.Fprintf(w, "Messages Sent        : %d\n", s.MessagesSent)
	fmt.Fprintf(w, "Messages Delivered   : %d\n", s.MessagesDelivered)
	fmt.Fprintf(w, "Final Time           : %d ticks\n", s.FinalTime)
}
