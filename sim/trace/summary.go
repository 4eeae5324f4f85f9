package trace

// Summary aggregates statistics from a list of records.
type Summary struct {
	Total     int
	Events    int
	Messages  int
	FirstTime uint64
	LastTime  uint64
	PerAgent  map[int]int // agent ID → dispatches received
}

// Summarize computes aggregate statistics from records.
// Safe for nil or empty input (returns zero-value fields).
func Summarize(records []Record) *Summary {
	summary := &Summary{
		PerAgent: make(map[int]int),
	}
	for i, rec := range records {
		if i == 0 || rec.Time < summary.FirstTime {
			summary.FirstTime = rec.Time
		}
		if rec.Time > summary.LastTime {
			summary.LastTime = rec.Time
		}
		switch rec.Phase {
		case PhaseEvent:
			summary.Events++
		case PhaseMessage:
			summary.Messages++
		}
		summary.PerAgent[rec.Agent]++
	}
	summary.Total = len(records)
	return summary
}
