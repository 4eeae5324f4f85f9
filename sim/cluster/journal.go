package cluster

import (
	"github.com/inference-sim/aika/sim"
)

// checkpoint is a World snapshot labelled with the planet time it covers:
// every tick before at has been processed, none at or after.
type checkpoint struct {
	at   sim.Time
	snap *sim.Snapshot
}

// journal is a planet's checkpoint list, oldest first.
type journal struct {
	entries []checkpoint
}

func (j *journal) append(cp checkpoint) {
	j.entries = append(j.entries, cp)
}

func (j *journal) len() int { return len(j.entries) }

// last returns the newest checkpoint time.
func (j *journal) last() (sim.Time, bool) {
	if len(j.entries) == 0 {
		return 0, false
	}
	return j.entries[len(j.entries)-1].at, true
}

// oldest returns the oldest checkpoint time.
func (j *journal) oldest() (sim.Time, bool) {
	if len(j.entries) == 0 {
		return 0, false
	}
	return j.entries[0].at, true
}

// rewind returns the newest checkpoint at or before t and drops everything
// after it.
func (j *journal) rewind(t sim.Time) (checkpoint, bool) {
	i := j.latestAtOrBefore(t)
	if i < 0 {
		return checkpoint{}, false
	}
	clear(j.entries[i+1:])
	j.entries = j.entries[:i+1]
	return j.entries[i], true
}

// prune drops every checkpoint older than the newest one at or before gvt.
func (j *journal) prune(gvt sim.Time) int {
	i := j.latestAtOrBefore(gvt)
	if i <= 0 {
		return 0
	}
	n := copy(j.entries, j.entries[i:])
	clear(j.entries[n:])
	j.entries = j.entries[:n]
	return i
}

func (j *journal) latestAtOrBefore(t sim.Time) int {
	for i := len(j.entries) - 1; i >= 0; i-- {
		if j.entries[i].at <= t {
			return i
		}
	}
	return -1
}
