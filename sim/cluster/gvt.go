package cluster

import (
	"math"

	"github.com/inference-sim/aika/sim"
)

// computeGVT returns the global virtual time: the minimum over every planet's
// LVT and the send time of every message still in flight. No rollback can
// ever target a time before it.
func computeGVT(lvts []sim.Time, inFlight []sim.Message) sim.Time {
	gvt := sim.Time(math.MaxUint64)
	for _, t := range lvts {
		gvt = min(gvt, t)
	}
	for _, m := range inFlight {
		gvt = min(gvt, m.SendTime)
	}
	return gvt
}

// windowEnd returns the first tick planets may not execute in a round that
// starts at gvt.
func windowEnd(gvt, throttle, terminal sim.Time) sim.Time {
	end := gvt + throttle
	if end < gvt {
		end = math.MaxUint64
	}
	if terminal < math.MaxUint64 {
		end = min(end, terminal+1)
	}
	return end
}

// syncBound returns the number of reconciliation passes a round over
// [gvt, limit) may take. With at least one tick of lookahead every pass
// settles one more tick, so a round never needs more than limit-gvt+1.
func syncBound(minPasses int, gvt, limit sim.Time) int {
	span := limit - gvt
	if span >= sim.Time(math.MaxInt) {
		return math.MaxInt
	}
	return max(minPasses, int(span)+1)
}
