package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "no planets", mutate: func(c *Config) { c.NumPlanets = 0 }, errMsg: "num_planets"},
		{name: "zero throttle", mutate: func(c *Config) { c.ThrottleWindow = 0 }, errMsg: "throttle_window"},
		{name: "zero checkpoint interval", mutate: func(c *Config) { c.CheckpointInterval = 0 }, errMsg: "checkpoint_interval"},
		{name: "zero mailbox", mutate: func(c *Config) { c.MailboxCapacity = 0 }, errMsg: "mailbox_capacity"},
		{name: "zero sync passes", mutate: func(c *Config) { c.MaxSyncPasses = 0 }, errMsg: "max_sync_passes"},
		{name: "bad world", mutate: func(c *Config) { c.World.Slots = 1 }, errMsg: "world"},
		{name: "arena for unknown planet", mutate: func(c *Config) { c.Arenas = map[int]int{4: 8} }, errMsg: "arenas: planet 4 out of range"},
		{name: "zero arena override", mutate: func(c *Config) { c.Arenas = map[int]int{1: 0} }, errMsg: "arenas: planet 1 capacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestConfig_MailboxIgnoredWithoutMessaging(t *testing.T) {
	cfg := DefaultConfig()
	cfg.World.Messaging = false
	cfg.MailboxCapacity = 0
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Builders(t *testing.T) {
	cfg := DefaultConfig().
		WithTimeBounds(50, 0.5).
		WithOptimisticSync(7, 3).
		WithUniformWorlds(6, 32)

	assert.Equal(t, 50.0, cfg.World.Terminal)
	assert.Equal(t, 0.5, cfg.World.Timestep)
	assert.Equal(t, 7, int(cfg.ThrottleWindow))
	assert.Equal(t, 3, int(cfg.CheckpointInterval))
	assert.Equal(t, 6, cfg.NumPlanets)
	assert.Equal(t, 32, cfg.World.ArenaCapacity)
	assert.NoError(t, cfg.Validate())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumPlanets = -1
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestConfig_WithWorld(t *testing.T) {
	base := DefaultConfig().WithUniformWorlds(3, 16)

	cfg, err := base.WithWorld(2, 64)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.WorldFor(0).ArenaCapacity)
	assert.Equal(t, 64, cfg.WorldFor(2).ArenaCapacity)
	assert.NoError(t, cfg.Validate())
	assert.Nil(t, base.Arenas, "builders do not share the override map")

	_, err = base.WithWorld(3, 8)
	assert.ErrorContains(t, err, "planet 3 out of range")
	_, err = base.WithWorld(-1, 8)
	assert.Error(t, err)
}
