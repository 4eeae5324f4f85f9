package cluster

import (
	"fmt"
	"maps"
	"slices"

	"github.com/inference-sim/aika/sim"
)

// Config groups the parameters of a HybridEngine.
type Config struct {
	NumPlanets         int             `yaml:"num_planets"`         // planets, one goroutine each (must be >= 1)
	World              sim.WorldConfig `yaml:"world"`               // applied to every planet's World
	ThrottleWindow     sim.Time        `yaml:"throttle_window"`     // ticks a planet may run past GVT per round (must be > 0)
	CheckpointInterval sim.Time        `yaml:"checkpoint_interval"` // ticks between checkpoints (must be > 0)
	MailboxCapacity    int             `yaml:"mailbox_capacity"`    // per (sender, receiver) buffer bound (must be > 0 with messaging)
	MaxSyncPasses      int             `yaml:"max_sync_passes"`     // minimum reconciliation passes allowed per barrier, raised to window width + 1 (must be > 0)

	// Arenas overrides World.ArenaCapacity for individual planets.
	Arenas map[int]int `yaml:"arenas"`
}

// DefaultConfig returns a 4-planet engine over the default World.
func DefaultConfig() Config {
	return Config{
		NumPlanets:         4,
		World:              sim.DefaultWorldConfig(),
		ThrottleWindow:     16,
		CheckpointInterval: 8,
		MailboxCapacity:    4096,
		MaxSyncPasses:      1024,
	}
}

// WithTimeBounds sets the terminal time and timestep, both in simulation units.
func (c Config) WithTimeBounds(terminal, timestep float64) Config {
	c.World.Terminal = terminal
	c.World.Timestep = timestep
	return c
}

// WithOptimisticSync sets the throttle window and checkpoint interval.
func (c Config) WithOptimisticSync(throttle, checkpoint sim.Time) Config {
	c.ThrottleWindow = throttle
	c.CheckpointInterval = checkpoint
	return c
}

// WithUniformWorlds sets the planet count and the per-planet arena capacity.
func (c Config) WithUniformWorlds(planets, arena int) Config {
	c.NumPlanets = planets
	c.World.ArenaCapacity = arena
	return c
}

// WithWorld sets the arena capacity of one planet. It fails when planet is
// not below NumPlanets.
func (c Config) WithWorld(planet, arena int) (Config, error) {
	if planet < 0 || planet >= c.NumPlanets {
		return c, fmt.Errorf("planet %d out of range [0, %d)", planet, c.NumPlanets)
	}
	arenas := maps.Clone(c.Arenas)
	if arenas == nil {
		arenas = make(map[int]int)
	}
	arenas[planet] = arena
	c.Arenas = arenas
	return c, nil
}

// WorldFor returns the World configuration of planet i.
func (c Config) WorldFor(i int) sim.WorldConfig {
	w := c.World
	if arena, ok := c.Arenas[i]; ok {
		w.ArenaCapacity = arena
	}
	return w
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.NumPlanets < 1 {
		return fmt.Errorf("num_planets must be >= 1, got %d", c.NumPlanets)
	}
	if err := c.World.Validate(); err != nil {
		return fmt.Errorf("world: %w", err)
	}
	if c.ThrottleWindow == 0 {
		return fmt.Errorf("throttle_window must be > 0")
	}
	if c.CheckpointInterval == 0 {
		return fmt.Errorf("checkpoint_interval must be > 0")
	}
	if c.World.Messaging && c.MailboxCapacity <= 0 {
		return fmt.Errorf("mailbox_capacity must be > 0, got %d", c.MailboxCapacity)
	}
	if c.MaxSyncPasses <= 0 {
		return fmt.Errorf("max_sync_passes must be > 0, got %d", c.MaxSyncPasses)
	}
	for _, i := range slices.Sorted(maps.Keys(c.Arenas)) {
		if i < 0 || i >= c.NumPlanets {
			return fmt.Errorf("arenas: planet %d out of range [0, %d)", i, c.NumPlanets)
		}
		if c.Arenas[i] <= 0 {
			return fmt.Errorf("arenas: planet %d capacity must be > 0, got %d", i, c.Arenas[i])
		}
	}
	return nil
}
