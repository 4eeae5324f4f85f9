package cmd

import (
	"fmt"

	"github.com/inference-sim/aika/sim"
	"github.com/inference-sim/aika/sim/workload"
)

const (
	kindStart sim.Kind = iota
	kindTick
)

// ModelConfig selects and sizes one of the demo models.
type ModelConfig struct {
	Name   string   `yaml:"name"`   // "ring" or "gossip"
	Agents int      `yaml:"agents"` // number of agents (must be >= 1)
	Delay  sim.Time `yaml:"delay"`  // ring hop delay, gossip maximum delay (must be >= 1)
	Period sim.Time `yaml:"period"` // gossip tick period (must be >= 1 for gossip)
	Tokens int      `yaml:"tokens"` // ring tokens injected at t=0 (1..agents)
	Seed   int64    `yaml:"seed"`   // seed for per-agent random streams

	// Arrival shapes the gaps between gossip ticks around Period.
	Arrival workload.ArrivalSpec `yaml:"arrival"`
}

// Validate reports the first invalid field.
func (m ModelConfig) Validate() error {
	switch {
	case m.Agents < 1:
		return fmt.Errorf("model agents must be >= 1, got %d", m.Agents)
	case m.Delay < 1:
		return fmt.Errorf("model delay must be >= 1, got %d", m.Delay)
	}
	switch m.Name {
	case "ring":
		if m.Tokens < 1 || m.Tokens > m.Agents {
			return fmt.Errorf("ring tokens must be in [1, %d], got %d", m.Agents, m.Tokens)
		}
	case "gossip":
		if m.Period < 1 {
			return fmt.Errorf("gossip period must be >= 1, got %d", m.Period)
		}
		if err := m.Arrival.Validate(); err != nil {
			return fmt.Errorf("gossip: %w", err)
		}
	default:
		return fmt.Errorf("unknown model %q (valid: ring, gossip)", m.Name)
	}
	return nil
}

// start is an initial event.
type start struct {
	at    sim.Time
	agent sim.AgentID
}

// build returns the model's agents, indexed by id, and their initial events.
func (m ModelConfig) build() ([]sim.Agent, []start) {
	agents := make([]sim.Agent, m.Agents)
	var starts []start
	var gaps workload.ArrivalSampler
	if m.Name == "gossip" {
		gaps = workload.NewArrivalSampler(m.Arrival, m.Period)
	}
	for i := range agents {
		id := sim.AgentID(i)
		switch m.Name {
		case "ring":
			agents[i] = &ringNode{ID: id, N: m.Agents, Delay: m.Delay}
			if i < m.Tokens {
				starts = append(starts, start{at: 0, agent: id})
			}
		case "gossip":
			agents[i] = &gossiper{
				ID:       id,
				N:        m.Agents,
				Gaps:     gaps,
				MaxDelay: m.Delay,
				Rng:      sim.NewStream(m.Seed, sim.AgentStreamName(id)),
			}
			starts = append(starts, start{at: 0, agent: id})
		}
	}
	return agents, starts
}

// ringNode passes every token it receives to its successor.
type ringNode struct {
	ID    sim.AgentID
	N     int
	Delay sim.Time
	Hops  int // tokens forwarded
}

func (r *ringNode) next() sim.AgentID { return sim.AgentID((int(r.ID) + 1) % r.N) }

func (r *ringNode) OnEvent(now sim.Time, ev sim.Event) (sim.Effects, error) {
	var fx sim.Effects
	fx.Send(sim.To(r.next(), r.Delay, 1))
	return fx, nil
}

func (r *ringNode) OnMessage(now sim.Time, msg sim.Message) (sim.Effects, error) {
	r.Hops++
	var fx sim.Effects
	fx.Send(sim.To(r.next(), r.Delay, msg.Payload.(int)+1))
	return fx, nil
}

func (r *ringNode) Snapshot() sim.Agent {
	cp := *r
	return &cp
}

func (r *ringNode) String() string { return fmt.Sprintf("hops=%d", r.Hops) }

// gossiper wakes after each sampled gap and tells a random peer what it has
// heard so far.
type gossiper struct {
	ID       sim.AgentID
	N        int
	Gaps     workload.ArrivalSampler // shared, immutable
	MaxDelay sim.Time
	Rng      sim.Stream

	Rumours int
	Heard   int
}

func (g *gossiper) OnEvent(now sim.Time, ev sim.Event) (sim.Effects, error) {
	var fx sim.Effects
	fx.Schedule(sim.After(now, g.Gaps.Next(&g.Rng), g.ID, kindTick))
	peer := sim.AgentID(g.Rng.Intn(g.N))
	delay := 1 + sim.Time(g.Rng.Intn(int(g.MaxDelay)))
	fx.Send(sim.To(peer, delay, g.Heard+1))
	g.Rumours++
	return fx, nil
}

func (g *gossiper) OnMessage(now sim.Time, msg sim.Message) (sim.Effects, error) {
	g.Heard = (g.Heard + msg.Payload.(int)) % 1_000_003
	return sim.None, nil
}

func (g *gossiper) Snapshot() sim.Agent {
	cp := *g
	return &cp
}

func (g *gossiper) String() string {
	return fmt.Sprintf("rumours=%d,heard=%d", g.Rumours, g.Heard)
}
