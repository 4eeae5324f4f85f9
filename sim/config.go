package sim

import (
	"fmt"
	"math"
)

// WorldConfig groups the parameters of a single World.
type WorldConfig struct {
	Slots         int     `yaml:"slots"`          // buckets per wheel layer (must be >= 2)
	Height        int     `yaml:"height"`         // number of wheel layers (must be >= 1)
	ArenaCapacity int     `yaml:"arena_capacity"` // max agents per World (must be > 0)
	Terminal      float64 `yaml:"terminal"`       // end of simulated time, in simulation units
	Timestep      float64 `yaml:"timestep"`       // simulation units per tick
	Messaging     bool    `yaml:"messaging"`      // false = no mail wheel, sends fail
	Logging       bool    `yaml:"logging"`        // true = record every dispatch into a trace
}

// DefaultWorldConfig returns a 64x4 wheel, 1024 agents, 1000 ticks of one unit each.
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Slots:         64,
		Height:        4,
		ArenaCapacity: 1024,
		Terminal:      1000,
		Timestep:      1,
		Messaging:     true,
	}
}

// Validate reports the first invalid field.
func (c WorldConfig) Validate() error {
	switch {
	case c.Slots < 2:
		return fmt.Errorf("slots must be >= 2, got %d", c.Slots)
	case c.Height < 1:
		return fmt.Errorf("height must be >= 1, got %d", c.Height)
	case c.ArenaCapacity <= 0:
		return fmt.Errorf("arena capacity must be > 0, got %d", c.ArenaCapacity)
	case !(c.Terminal > 0) || math.IsInf(c.Terminal, 0):
		return fmt.Errorf("terminal must be a positive finite number, got %v", c.Terminal)
	case !(c.Timestep > 0) || math.IsInf(c.Timestep, 0):
		return fmt.Errorf("timestep must be a positive finite number, got %v", c.Timestep)
	}
	return nil
}

// TerminalTick returns the last tick that is processed.
func (c WorldConfig) TerminalTick() Time {
	ticks := math.Floor(c.Terminal/c.Timestep + 1e-9)
	if ticks >= math.MaxUint64 {
		return math.MaxUint64
	}
	return Time(ticks)
}
