package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/aika/sim"
)

var (
	configPath    string // YAML configuration file
	logLevel      string // Log verbosity level
	tracePath     string // File to write the dispatch trace to
	deterministic bool   // Omit wall-clock fields from the report

	// Overrides for the configuration file
	numPlanets         int     // Number of planets
	throttleWindow     uint64  // Ticks a planet may run past GVT
	checkpointInterval uint64  // Ticks between checkpoints
	terminal           float64 // Terminal time in simulation units
	timestep           float64 // Simulation units per tick
	modelName          string  // Demo model
	numAgents          int     // Number of agents
	delay              uint64  // Message delay of the demo model
	seed               int64   // Seed for per-agent random streams
	arrivalProcess     string  // Gossip inter-arrival process
	arrivalCV          float64 // Coefficient of variation for weibull gaps
	sequential         bool    // Use a single World

	benchPlanets []int // Planet counts swept by bench
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "aika",
	Short: "Hybrid discrete-event simulation kernel",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
		return nil
	},
	SilenceUsage: true,
}

// loadConfig reads --config (if any) and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (RunConfig, error) {
	cfg := DefaultRunConfig()
	if configPath != "" {
		var err error
		if cfg, err = LoadRunConfig(configPath); err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("planets") {
		cfg.Engine.NumPlanets = numPlanets
	}
	if flags.Changed("throttle") {
		cfg.Engine.ThrottleWindow = sim.Time(throttleWindow)
	}
	if flags.Changed("checkpoint") {
		cfg.Engine.CheckpointInterval = sim.Time(checkpointInterval)
	}
	if flags.Changed("terminal") {
		cfg.Engine.World.Terminal = terminal
	}
	if flags.Changed("timestep") {
		cfg.Engine.World.Timestep = timestep
	}
	if flags.Changed("model") {
		cfg.Model.Name = modelName
	}
	if flags.Changed("agents") {
		cfg.Model.Agents = numAgents
	}
	if flags.Changed("delay") {
		cfg.Model.Delay = sim.Time(delay)
	}
	if flags.Changed("seed") {
		cfg.Model.Seed = seed
	}
	if flags.Changed("arrival") {
		cfg.Model.Arrival.Process = arrivalProcess
	}
	if flags.Changed("arrival-cv") {
		cfg.Model.Arrival.CV = arrivalCV
	}
	if flags.Changed("sequential") {
		cfg.Sequential = sequential
	}
	if tracePath != "" {
		cfg.Engine.World.Logging = true
	}
	return cfg, cfg.Validate()
}

// runCmd executes one simulation
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a demo model on the hybrid engine or a single World",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		out := cmd.OutOrStdout()
		if cfg.Sequential {
			logrus.Infof("Starting sequential run: model=%s, %d agents", cfg.Model.Name, cfg.Model.Agents)
			_, records, err := runSequential(ctx, out, cfg)
			if err != nil {
				return err
			}
			return writeTrace(tracePath, records)
		}
		logrus.Infof("Starting hybrid run: model=%s, %d agents, %d planets", cfg.Model.Name, cfg.Model.Agents, cfg.Engine.NumPlanets)
		_, records, err := runHybrid(ctx, out, cfg, deterministic)
		if err != nil {
			return err
		}
		logrus.Info("Simulation complete.")
		return writeTrace(tracePath, records)
	},
}

// benchCmd sweeps planet counts and reports throughput
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure engine throughput across planet counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		begin := time.Now()
		seq, _, err := runSequential(ctx, io.Discard, cfg)
		if err != nil {
			return err
		}
		report(out, "sequential", seq.EventsProcessed, 0, time.Since(begin))

		for _, n := range benchPlanets {
			cfg.Engine.NumPlanets = n
			stats, _, err := runHybrid(ctx, io.Discard, cfg, true)
			if err != nil {
				return fmt.Errorf("planets=%d: %w", n, err)
			}
			if stats.EventsProcessed != seq.EventsProcessed {
				logrus.Warnf("planets=%d committed %d events, sequential run %d", n, stats.EventsProcessed, seq.EventsProcessed)
			}
			report(out, fmt.Sprintf("planets=%d", n), stats.EventsProcessed, stats.Rollbacks, stats.Elapsed)
		}
		return nil
	},
}

// validateCmd checks a configuration without running it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file and flags",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config OK: model=%s agents=%d planets=%d terminal tick %d\n",
			cfg.Model.Name, cfg.Model.Agents, cfg.Engine.NumPlanets, cfg.Engine.World.TerminalTick())
		return nil
	},
}

func report(w io.Writer, label string, events int64, rollbacks int, elapsed time.Duration) {
	rate := 0.0
	if elapsed > 0 {
		rate = float64(events) / elapsed.Seconds()
	}
	fmt.Fprintf(w, "%-12s events=%-10d rollbacks=%-6d elapsed=%-12s events/s=%.0f\n", label, events, rollbacks, elapsed.Round(time.Microsecond), rate)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	for _, c := range []*cobra.Command{runCmd, benchCmd, validateCmd} {
		c.Flags().IntVar(&numPlanets, "planets", 4, "Number of planets")
		c.Flags().Uint64Var(&throttleWindow, "throttle", 16, "Ticks a planet may run past GVT per round")
		c.Flags().Uint64Var(&checkpointInterval, "checkpoint", 8, "Ticks between checkpoints")
		c.Flags().Float64Var(&terminal, "terminal", 1000, "Terminal time in simulation units")
		c.Flags().Float64Var(&timestep, "timestep", 1, "Simulation units per tick")
		c.Flags().StringVar(&modelName, "model", "gossip", "Demo model (ring, gossip)")
		c.Flags().IntVar(&numAgents, "agents", 64, "Number of agents")
		c.Flags().Uint64Var(&delay, "delay", 8, "Ring hop delay or gossip maximum delay, in ticks")
		c.Flags().Int64Var(&seed, "seed", 42, "Seed for per-agent random streams")
		c.Flags().StringVar(&arrivalProcess, "arrival", "constant", "Gossip gap process (constant, poisson, weibull)")
		c.Flags().Float64Var(&arrivalCV, "arrival-cv", 1, "Coefficient of variation for weibull gaps")
		c.Flags().BoolVar(&sequential, "sequential", false, "Run a single World instead of the hybrid engine")
	}
	runCmd.Flags().StringVar(&tracePath, "trace", "", "Write the dispatch trace to this file")
	runCmd.Flags().BoolVar(&deterministic, "deterministic", false, "Omit run id and wall-clock time from the report")
	benchCmd.Flags().IntSliceVar(&benchPlanets, "planet-counts", []int{1, 2, 4, 8}, "Planet counts to sweep")

	rootCmd.AddCommand(runCmd, benchCmd, validateCmd)
}
