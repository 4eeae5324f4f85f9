package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/aika/sim"
	"github.com/inference-sim/aika/sim/cluster"
	"github.com/inference-sim/aika/sim/trace"
)

// runSequential executes the model in a single World and prints its metrics.
func runSequential(ctx context.Context, out io.Writer, cfg RunConfig) (sim.Stats, []trace.Record, error) {
	w, err := sim.NewWorld(cfg.Engine.World)
	if err != nil {
		return sim.Stats{}, nil, err
	}
	agents, starts := cfg.Model.build()
	for i, a := range agents {
		if err := w.SpawnAs(sim.AgentID(i), a); err != nil {
			return sim.Stats{}, nil, err
		}
	}
	for _, s := range starts {
		if err := w.Schedule(s.at, s.agent, kindStart); err != nil {
			return sim.Stats{}, nil, err
		}
	}
	stats, err := w.Run(ctx)
	if err != nil {
		return stats, nil, err
	}
	stats.Print(out)
	return stats, w.Trace().Records(), nil
}

// runHybrid executes the model on the hybrid engine and prints its metrics.
func runHybrid(ctx context.Context, out io.Writer, cfg RunConfig, deterministic bool) (*cluster.Stats, []trace.Record, error) {
	e, err := cluster.New(cfg.Engine)
	if err != nil {
		return nil, nil, err
	}
	agents, starts := cfg.Model.build()
	for _, a := range agents {
		if _, err := e.SpawnBalanced(a); err != nil {
			return nil, nil, err
		}
	}
	for _, s := range starts {
		if err := e.Schedule(s.at, s.agent, kindStart); err != nil {
			return nil, nil, err
		}
	}
	stats, err := e.Run(ctx)
	if err != nil {
		return stats, nil, err
	}
	stats.Print(out, deterministic)
	return stats, e.Trace(), nil
}

// writeTrace writes records to path, or does nothing when path is empty.
func writeTrace(path string, records []trace.Record) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trace file: %w", err)
	}
	if err := trace.Write(f, records); err != nil {
		_ = f.Close()
		return err
	}
	sum := trace.Summarize(records)
	logrus.Infof("Wrote %d trace records to %s: %d events, %d messages over t=%d..%d, %d agents",
		sum.Total, path, sum.Events, sum.Messages, sum.FirstTime, sum.LastTime, len(sum.PerAgent))
	return f.Close()
}
