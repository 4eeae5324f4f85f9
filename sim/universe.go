package sim

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Universe is an ensemble of independent Worlds, such as the replicas of a
// Monte Carlo study. Its Worlds never exchange messages and each one runs on
// its own goroutine.
type Universe struct {
	worlds []*World
	limit  int // concurrent Worlds; <= 0 means no limit
}

// WorldResult is the outcome of one World in a parallel run.
type WorldResult struct {
	Stats Stats
	Err   error
}

// NewUniverse creates an empty Universe.
func NewUniverse() *Universe {
	return &Universe{}
}

// AddWorld adds w and returns its index.
func (u *Universe) AddWorld(w *World) int {
	u.worlds = append(u.worlds, w)
	return len(u.worlds) - 1
}

// World returns the World at index i.
func (u *Universe) World(i int) *World { return u.worlds[i] }

// Len returns the number of Worlds.
func (u *Universe) Len() int { return len(u.worlds) }

// SetParallelism bounds how many Worlds run at once.
func (u *Universe) SetParallelism(n int) { u.limit = n }

// RunParallel runs every World to completion and returns their results in
// the order the Worlds were added. A failing World does not stop the others.
func (u *Universe) RunParallel(ctx context.Context) []WorldResult {
	results := make([]WorldResult, len(u.worlds))
	var g errgroup.Group
	if u.limit > 0 {
		g.SetLimit(u.limit)
	}
	for i, w := range u.worlds {
		g.Go(func() error {
			stats, err := w.Run(ctx)
			results[i] = WorldResult{Stats: stats, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	logrus.Infof("Universe finished: %d worlds, %d failed", len(results), failed)
	return results
}

// Total sums the stats of every result, failed Worlds included.
func Total(results []WorldResult) Stats {
	var total Stats
	for _, r := range results {
		total = total.Add(r.Stats)
	}
	return total
}
