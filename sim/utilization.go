// Utilization models describe what fraction of a VM resource (CPU, RAM
// or bandwidth) a cloudlet consumes at a given simulation time.

package sim

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// UtilizationModel maps a simulation time to a resource utilization
// fraction in [0,1].
type UtilizationModel interface {
	Utilization(time float64) float64
}

// UtilizationModelFull always uses 100% of the resource.
type UtilizationModelFull struct{}

func (UtilizationModelFull) Utilization(float64) float64 { return 1.0 }

// UtilizationModelNone never uses the resource.
type UtilizationModelNone struct{}

func (UtilizationModelNone) Utilization(float64) float64 { return 0.0 }

// UtilizationModelDynamic ramps utilization linearly from an initial
// fraction, clamped to 1.
type UtilizationModelDynamic struct {
	initial            float64
	incrementPerSecond float64
}

// NewUtilizationModelDynamic creates a ramp starting at initial and
// growing by incrementPerSecond each simulated second.
func NewUtilizationModelDynamic(initial, incrementPerSecond float64) *UtilizationModelDynamic {
	return &UtilizationModelDynamic{initial: initial, incrementPerSecond: incrementPerSecond}
}

func (u *UtilizationModelDynamic) Utilization(time float64) float64 {
	return math.Min(1.0, u.initial+u.incrementPerSecond*time)
}

// UtilizationModelStochastic draws utilization uniformly at random.
// Samples are memoized per time value so repeated reads inside one tick
// observe the same utilization, and a fixed seed reproduces the same
// trace across runs.
type UtilizationModelStochastic struct {
	dist    distuv.Uniform
	history map[float64]float64
}

func NewUtilizationModelStochastic(seed uint64) *UtilizationModelStochastic {
	return &UtilizationModelStochastic{
		dist: distuv.Uniform{
			Min: 0,
			Max: 1,
			Src: rand.NewPCG(seed, seed),
		},
		history: make(map[float64]float64),
	}
}

func (u *UtilizationModelStochastic) Utilization(time float64) float64 {
	if sample, ok := u.history[time]; ok {
		return sample
	}
	sample := u.dist.Rand()
	u.history[time] = sample
	return sample
}
