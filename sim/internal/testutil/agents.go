// Package testutil provides deterministic, snapshot-able agents and assertion
// helpers shared by the sim/cluster test packages.
package testutil

import (
	"fmt"

	"github.com/inference-sim/aika/sim"
)

const (
	KindStart sim.Kind = iota
	KindTick
)

// Pinger ticks every Period and sends a message to a pseudo-randomly chosen
// agent in [0, Peers) with a delay in [1, MaxDelay]. The payload depends only
// on the pinger's own history, so Sum and Msgs are independent of delivery
// order while Hash is not.
type Pinger struct {
	ID       sim.AgentID
	Peers    int
	Period   sim.Time
	MaxDelay sim.Time
	Rng      sim.Stream

	Events int
	Msgs   int
	Sum    uint64
	Hash   uint64
}

// NewPinger creates a pinger with its own random stream.
func NewPinger(id sim.AgentID, peers int, period, maxDelay sim.Time, seed int64) *Pinger {
	return &Pinger{
		ID:       id,
		Peers:    peers,
		Period:   period,
		MaxDelay: maxDelay,
		Rng:      sim.NewStream(seed, sim.AgentStreamName(id)),
	}
}

func (p *Pinger) OnEvent(now sim.Time, ev sim.Event) (sim.Effects, error) {
	p.Events++
	var fx sim.Effects
	fx.Schedule(sim.After(now, p.Period, p.ID, KindTick))
	to := sim.AgentID(p.Rng.Intn(p.Peers))
	delay := 1 + sim.Time(p.Rng.Intn(int(p.MaxDelay)))
	fx.Send(sim.To(to, delay, uint64(p.ID)*1_000_003+uint64(p.Events)))
	return fx, nil
}

func (p *Pinger) OnMessage(now sim.Time, msg sim.Message) (sim.Effects, error) {
	var v uint64
	switch x := msg.Payload.(type) {
	case uint64:
		v = x
	case int:
		v = uint64(x)
	}
	p.Msgs++
	p.Sum += v
	p.Hash = (p.Hash^v^uint64(now))*1099511628211 + 1
	return sim.None, nil
}

func (p *Pinger) Snapshot() sim.Agent {
	cp := *p
	return &cp
}

func (p *Pinger) String() string {
	return fmt.Sprintf("events=%d,msgs=%d,sum=%d", p.Events, p.Msgs, p.Sum)
}

// Relay starts a chain of Hops messages on every event and forwards each
// message it receives to a pseudo-randomly chosen peer until the chain runs
// out. What a relay sends depends on the order its messages arrive in.
type Relay struct {
	ID       sim.AgentID
	Peers    int
	MaxDelay sim.Time
	Hops     int
	Rng      sim.Stream

	Got  int
	Hash uint64
}

// NewRelay creates a relay with its own random stream.
func NewRelay(id sim.AgentID, peers int, maxDelay sim.Time, hops int, seed int64) *Relay {
	return &Relay{
		ID:       id,
		Peers:    peers,
		MaxDelay: maxDelay,
		Hops:     hops,
		Rng:      sim.NewStream(seed, sim.AgentStreamName(id)),
	}
}

func (r *Relay) forward(hops int) sim.Effects {
	var fx sim.Effects
	to := sim.AgentID(r.Rng.Intn(r.Peers))
	delay := 1 + sim.Time(r.Rng.Intn(int(r.MaxDelay)))
	fx.Send(sim.To(to, delay, hops))
	return fx
}

func (r *Relay) OnEvent(now sim.Time, ev sim.Event) (sim.Effects, error) {
	return r.forward(r.Hops), nil
}

func (r *Relay) OnMessage(now sim.Time, msg sim.Message) (sim.Effects, error) {
	hops, _ := msg.Payload.(int)
	r.Got++
	r.Hash = (r.Hash^uint64(hops)^uint64(now)<<8^uint64(msg.From)<<32)*1099511628211 + 1
	if hops <= 1 {
		return sim.None, nil
	}
	return r.forward(hops - 1), nil
}

func (r *Relay) Snapshot() sim.Agent {
	cp := *r
	return &cp
}

func (r *Relay) String() string {
	return fmt.Sprintf("got=%d,hash=%x", r.Got, r.Hash)
}

// Tally counts events and messages and sums integer payloads. It never
// schedules anything on its own.
type Tally struct {
	Events int
	Msgs   int
	Sum    int
	Seen   []sim.Time // delivery time of every message
}

func (t *Tally) OnEvent(now sim.Time, ev sim.Event) (sim.Effects, error) {
	t.Events++
	return sim.None, nil
}

func (t *Tally) OnMessage(now sim.Time, msg sim.Message) (sim.Effects, error) {
	t.Msgs++
	if v, ok := msg.Payload.(int); ok {
		t.Sum += v
	}
	t.Seen = append(t.Seen, now)
	return sim.None, nil
}

func (t *Tally) Snapshot() sim.Agent {
	cp := *t
	cp.Seen = append([]sim.Time(nil), t.Seen...)
	return &cp
}

func (t *Tally) String() string {
	return fmt.Sprintf("events=%d,msgs=%d,sum=%d", t.Events, t.Msgs, t.Sum)
}
