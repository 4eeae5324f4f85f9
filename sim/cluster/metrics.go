package cluster

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/inference-sim/aika/sim"
)

// Distribution captures statistical summary of a metric.
type Distribution struct {
	Mean   float64
	StdDev float64
	P50    float64
	P95    float64
	Min    float64
	Max    float64
	Count  int
}

// NewDistribution computes a Distribution from raw values.
// Returns zero-value Distribution for empty input.
func NewDistribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	d := Distribution{
		Mean:  stat.Mean(sorted, nil),
		P50:   percentile(sorted, 50),
		P95:   percentile(sorted, 95),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Count: len(sorted),
	}
	if len(sorted) > 1 {
		d.StdDev = stat.PopStdDev(sorted, nil)
	}
	return d
}

// percentile computes the p-th percentile using linear interpolation.
// Input must be sorted.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// PlanetStats holds per-planet counters. Event and message counts cover
// committed work only; rolled-back work is reported separately.
type PlanetStats struct {
	ID                   int
	State                PlanetState
	Agents               int
	LVT                  sim.Time
	EventsProcessed      int64
	MessagesSent         int64
	MessagesDelivered    int64
	Rollbacks            int
	EventsRolledBack     int64
	DuplicatesSuppressed int64
	Checkpoints          int // checkpoints taken over the run
}

// Stats holds engine-level results aggregated after a run.
type Stats struct {
	RunID   string
	Planets []PlanetStats

	EventsProcessed      int64
	MessagesSent         int64
	MessagesDelivered    int64
	MessagesRouted       int64 // cross-planet deliveries committed at barriers
	Rollbacks            int
	EventsRolledBack     int64
	DuplicatesSuppressed int64

	SyncRounds int
	SyncPasses int
	FinalGVT   sim.Time
	Elapsed    time.Duration

	EventsPerPlanet Distribution
	LoadImbalance   float64 // coefficient of variation of committed events per planet
}

func newStats(runID string, planets []PlanetStats) *Stats {
	s := &Stats{RunID: runID, Planets: planets}
	perPlanet := make([]float64, 0, len(planets))
	for _, p := range planets {
		s.EventsProcessed += p.EventsProcessed
		s.MessagesSent += p.MessagesSent
		s.MessagesDelivered += p.MessagesDelivered
		s.Rollbacks += p.Rollbacks
		s.EventsRolledBack += p.EventsRolledBack
		s.DuplicatesSuppressed += p.DuplicatesSuppressed
		perPlanet = append(perPlanet, float64(p.EventsProcessed))
	}
	s.EventsPerPlanet = NewDistribution(perPlanet)
	if s.EventsPerPlanet.Mean > 0 {
		s.LoadImbalance = s.EventsPerPlanet.StdDev / s.EventsPerPlanet.Mean
	}
	return s
}

// Print writes the report. Wall-clock fields are left out when
// deterministic is set so that outputs can be compared byte for byte.
func (s *Stats) Print(w io.Writer, deterministic bool) {
	fmt.Fprintln(w, "=== Hybrid Simulation Metrics ===")
	if !deterministic {
		fmt.Fprintf(w, "Run ID               : %s\n", s.RunID)
		fmt.Fprintf(w, "Elapsed              : %s\n", s.Elapsed)
	}
	fmt.Fprintf(w, "Planets              : %d\n", len(s.Planets))
	fmt.Fprintf(w, "Events Processed     : %d\n", s.EventsProcessed)
	fmt.Fprintf(w, "Messages Sent        : %d\n", s.MessagesSent)
	fmt.Fprintf(w, "Messages Delivered   : %d\n", s.MessagesDelivered)
	fmt.Fprintf(w, "Messages Routed      : %d\n", s.MessagesRouted)
	fmt.Fprintf(w, "Rollbacks            : %d\n", s.Rollbacks)
	fmt.Fprintf(w, "Events Rolled Back   : %d\n", s.EventsRolledBack)
	fmt.Fprintf(w, "Sync Rounds          : %d\n", s.SyncRounds)
	fmt.Fprintf(w, "Final GVT            : %d\n", s.FinalGVT)
	fmt.Fprintf(w, "Load Imbalance       : %.4f\n", s.LoadImbalance)
	for _, p := range s.Planets {
		fmt.Fprintf(w, "  planet %-3d agents=%d events=%d rollbacks=%d lvt=%d state=%s\n",
			p.ID, p.Agents, p.EventsProcessed, p.Rollbacks, p.LVT, p.State)
	}
}
