package sim

import (
	"fmt"
	"hash/fnv"
	"math"

	"gonum.org/v1/gonum/mathext/prng"
)

// Stream is a deterministic random stream that lives inside agent state.
//
// Unlike *rand.Rand it is a plain value: copying a Stream copies its position,
// so a checkpointed agent replays the exact same draws after a rollback.
//
// Derivation formula: splitmix64 seeded with seed XOR fnv1a64(name).
type Stream struct {
	src prng.SplitMix64
}

// NewStream derives a stream for the named owner from a master seed.
func NewStream(seed int64, name string) Stream {
	var s Stream
	s.src.Seed(uint64(seed) ^ fnv1a64(name))
	return s
}

// AgentStreamName returns the stream name for agent id.
func AgentStreamName(id AgentID) string {
	return fmt.Sprintf("agent_%d", id)
}

// Uint64 returns the next value.
func (s *Stream) Uint64() uint64 { return s.src.Uint64() }

// Intn returns a value in [0, n). Panics if n <= 0.
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		panic("sim: Stream.Intn called with n <= 0")
	}
	return int(s.Uint64() % uint64(n))
}

// Float64 returns a value in [0, 1).
func (s *Stream) Float64() float64 {
	return float64(s.Uint64()>>11) / (1 << 53)
}

// Exp returns an exponentially distributed value with the given mean.
func (s *Stream) Exp(mean float64) float64 {
	return -mean * math.Log(1-s.Float64())
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
