package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultWorldConfig_IsValid(t *testing.T) {
	assert.NoError(t, DefaultWorldConfig().Validate())
}

func TestWorldConfig_Validate_RejectsBadFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*WorldConfig)
	}{
		{"one slot", func(c *WorldConfig) { c.Slots = 1 }},
		{"zero height", func(c *WorldConfig) { c.Height = 0 }},
		{"zero arena", func(c *WorldConfig) { c.ArenaCapacity = 0 }},
		{"zero terminal", func(c *WorldConfig) { c.Terminal = 0 }},
		{"nan terminal", func(c *WorldConfig) { c.Terminal = math.NaN() }},
		{"negative timestep", func(c *WorldConfig) { c.Timestep = -1 }},
		{"infinite timestep", func(c *WorldConfig) { c.Timestep = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultWorldConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWorldConfig_TerminalTick(t *testing.T) {
	tests := []struct {
		terminal, timestep float64
		want               Time
	}{
		{1000, 1, 1000},
		{0.3, 0.1, 3},
		{10, 3, 3},
		{1e30, 1, math.MaxUint64},
	}
	for _, tt := range tests {
		cfg := WorldConfig{Terminal: tt.terminal, Timestep: tt.timestep}
		assert.Equal(t, tt.want, cfg.TerminalTick(), "terminal=%v timestep=%v", tt.terminal, tt.timestep)
	}
}

func TestNewWorld_InvalidConfig(t *testing.T) {
	cfg := DefaultWorldConfig()
	cfg.Slots = 0

	_, err := NewWorld(cfg)

	assert.Error(t, err)
}
