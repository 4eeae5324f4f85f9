// Package workload provides inter-arrival samplers that pace the demo models.
// Samplers are immutable and draw from the calling agent's sim.Stream, so the
// same stream state always yields the same gap.
package workload

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/aika/sim"
)

// ArrivalSpec describes an inter-arrival process.
type ArrivalSpec struct {
	Process string  `yaml:"process"` // "constant", "poisson" or "weibull"
	CV      float64 `yaml:"cv"`      // coefficient of variation for weibull (default 1)
}

// Validate reports an unknown process.
func (s ArrivalSpec) Validate() error {
	switch s.Process {
	case "", "constant", "poisson", "weibull":
	default:
		return fmt.Errorf("unknown arrival process %q (valid: constant, poisson, weibull)", s.Process)
	}
	if s.CV < 0 {
		return fmt.Errorf("arrival cv must be >= 0, got %g", s.CV)
	}
	return nil
}

// ArrivalSampler generates gaps between an agent's activations.
type ArrivalSampler interface {
	// Next returns the next gap in ticks. Always returns a positive value (>= 1).
	Next(rng *sim.Stream) sim.Time
}

// ConstantSampler always returns the mean.
type ConstantSampler struct {
	period sim.Time
}

func (s *ConstantSampler) Next(_ *sim.Stream) sim.Time { return s.period }

// PoissonSampler generates exponentially-distributed gaps (CV=1).
type PoissonSampler struct {
	mean float64
}

func (s *PoissonSampler) Next(rng *sim.Stream) sim.Time {
	return atLeastOne(rng.Exp(s.mean))
}

// WeibullSampler generates Weibull-distributed gaps.
type WeibullSampler struct {
	shape float64 // Weibull k parameter
	scale float64 // Weibull λ parameter, in ticks
}

func (s *WeibullSampler) Next(rng *sim.Stream) sim.Time {
	// Inverse CDF: scale * (-ln(U))^(1/shape)
	u := rng.Float64()
	if u == 0 {
		u = math.SmallestNonzeroFloat64 // prevent -ln(0) = +Inf
	}
	return atLeastOne(s.scale * math.Pow(-math.Log(u), 1.0/s.shape))
}

func atLeastOne(x float64) sim.Time {
	if x < 1 || math.IsNaN(x) {
		return 1
	}
	if x >= math.MaxUint64 {
		return math.MaxUint64
	}
	return sim.Time(x)
}

// NewArrivalSampler creates an ArrivalSampler for spec with the given mean gap
// in ticks. Unknown processes fall back to constant gaps; call Validate first.
func NewArrivalSampler(spec ArrivalSpec, mean sim.Time) ArrivalSampler {
	if mean < 1 {
		mean = 1
	}
	switch spec.Process {
	case "poisson":
		return &PoissonSampler{mean: float64(mean)}
	case "weibull":
		cv := spec.CV
		if cv <= 0 {
			cv = 1.0
		}
		k := weibullShapeFromCV(cv)
		// scale = mean / Γ(1 + 1/k)
		scale := float64(mean) / math.Gamma(1.0+1.0/k)
		return &WeibullSampler{shape: k, scale: scale}
	default:
		return &ConstantSampler{period: mean}
	}
}

// weibullShapeFromCV finds Weibull shape parameter k such that
// CV² = Γ(1+2/k)/Γ(1+1/k)² - 1, using bisection over k ∈ [0.1, 100].
func weibullShapeFromCV(targetCV float64) float64 {
	lo, hi := 0.1, 100.0
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2.0
		cv := weibullCV(mid)
		if math.Abs(cv-targetCV) < 0.001 {
			return mid
		}
		// CV is monotonically decreasing in k
		if cv > targetCV {
			lo = mid
		} else {
			hi = mid
		}
	}
	logrus.Warnf("weibullShapeFromCV: bisection did not converge for CV=%.3f after 100 iterations; using k=%.3f", targetCV, (lo+hi)/2.0)
	return (lo + hi) / 2.0
}

// weibullCV computes the coefficient of variation for Weibull(k).
func weibullCV(k float64) float64 {
	g1 := math.Gamma(1.0 + 1.0/k)
	g2 := math.Gamma(1.0 + 2.0/k)
	return math.Sqrt(g2/(g1*g1) - 1.0)
}
