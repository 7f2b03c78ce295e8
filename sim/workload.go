// Synthetic workload generation: Poisson cloudlet arrivals spread
// round-robin across the scenario's VMs.

package sim

import (
	"math/rand/v2"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"
)

// GeneratePoissonArrivals schedules spec.Count cloudlet submissions
// with exponentially distributed inter-arrival times (rate arrivals
// per second) and exponentially distributed lengths around LengthMean.
// Arrivals past the simulation horizon are dropped. Deterministic for
// a fixed seed.
func GeneratePoissonArrivals(s *Simulation, vms []*Vm, spec *PoissonSpec) {
	if len(vms) == 0 || spec == nil {
		return
	}
	src := rand.NewPCG(spec.Seed, spec.Seed)
	interArrival := distuv.Exponential{Rate: spec.Rate, Src: src}
	length := distuv.Exponential{Rate: 1 / spec.LengthMean, Src: src}

	t := 0.0
	generated := 0
	for i := 0; i < spec.Count; i++ {
		t += interArrival.Rand()
		if t > s.Horizon {
			break
		}
		l := length.Rand()
		if l < 1 {
			l = 1
		}
		cl := NewCloudlet(s.Broker.NextCloudletID(), l, spec.Pes)
		model := spec.Utilization.buildModel()
		cl.SetUtilizationModels(model, model, model)
		vm := vms[i%len(vms)]
		s.Schedule(NewCloudletSubmitEvent(t, cl, vm, 0))
		generated++
	}
	logrus.Infof("generated %d Poisson arrivals (rate=%.3f, mean length=%.0f)",
		generated, spec.Rate, spec.LengthMean)
}
