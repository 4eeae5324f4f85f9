package sim

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	kindStart Kind = iota
	kindTick
)

// counter reschedules itself every Period ticks and, when Sends is set,
// tells Peer how many events it has seen so far.
type counter struct {
	ID     AgentID
	Peer   AgentID
	Sends  bool
	Period Time
	Delay  Time

	Events int
	Msgs   int
	Sum    int
}

func (c *counter) OnEvent(now Time, ev Event) (Effects, error) {
	c.Events++
	var fx Effects
	fx.Schedule(After(now, c.Period, c.ID, kindTick))
	if c.Sends {
		fx.Send(To(c.Peer, c.Delay, c.Events))
	}
	return fx, nil
}

func (c *counter) OnMessage(now Time, msg Message) (Effects, error) {
	c.Msgs++
	c.Sum += msg.Payload.(int)
	return None, nil
}

func (c *counter) Snapshot() Agent {
	cp := *c
	return &cp
}

func (c *counter) String() string {
	return fmt.Sprintf("events=%d,msgs=%d,sum=%d", c.Events, c.Msgs, c.Sum)
}

// scripted returns canned effects and records what it saw.
type scripted struct {
	seen    []string
	onEvent func(now Time, ev Event) Effects
	onMsg   func(now Time, msg Message) Effects
	fail    error
}

func (s *scripted) OnEvent(now Time, ev Event) (Effects, error) {
	s.seen = append(s.seen, fmt.Sprintf("e%d@%d", ev.Kind, now))
	if s.fail != nil {
		return None, s.fail
	}
	if s.onEvent == nil {
		return None, nil
	}
	return s.onEvent(now, ev), nil
}

func (s *scripted) OnMessage(now Time, msg Message) (Effects, error) {
	s.seen = append(s.seen, fmt.Sprintf("m%v@%d", msg.Payload, now))
	if s.onMsg == nil {
		return None, nil
	}
	return s.onMsg(now, msg), nil
}

var errBoom = errors.New("boom")

func testConfig() WorldConfig {
	cfg := DefaultWorldConfig()
	cfg.Slots = 8
	cfg.Height = 2
	cfg.ArenaCapacity = 16
	cfg.Terminal = 100
	return cfg
}

func newTestWorld(t *testing.T, cfg WorldConfig) *World {
	t.Helper()
	w, err := NewWorld(cfg)
	require.NoError(t, err)
	return w
}
