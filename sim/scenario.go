// Scenario configuration: a YAML description of hosts, VMs, scaling
// controllers, and the cloudlet workload. Everything is validated up
// front; a scenario that passes Validate builds and runs without
// configuration faults.

package sim

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Scenario is the top-level simulation configuration, loaded from YAML
// via LoadScenario(path).
type Scenario struct {
	Horizon    float64      `yaml:"horizon"`
	CostPerSec float64      `yaml:"cost_per_sec,omitempty"`
	CostPerBw  float64      `yaml:"cost_per_bw,omitempty"`
	Hosts      []HostSpec   `yaml:"hosts"`
	Vms        []VmSpec     `yaml:"vms"`
	Workload   WorkloadSpec `yaml:"workload"`
}

// HostSpec describes one physical host. VmScheduler is space-shared or
// time-shared (space-shared by default); SchedulingInterval is the
// seconds between periodic processing updates; MigrationOverhead is the
// extra CPU fraction charged for migrating VMs.
type HostSpec struct {
	Pes                int     `yaml:"pes"`
	Mips               float64 `yaml:"mips"`
	Ram                float64 `yaml:"ram"`
	Bw                 float64 `yaml:"bw"`
	Storage            float64 `yaml:"storage"`
	VmScheduler        string  `yaml:"vm_scheduler,omitempty"`
	SchedulingInterval float64 `yaml:"scheduling_interval"`
	MigrationOverhead  float64 `yaml:"migration_overhead,omitempty"`
}

// VmSpec describes one virtual machine and its attached scaling.
type VmSpec struct {
	Mips              float64                `yaml:"mips"`
	Pes               int                    `yaml:"pes"`
	Ram               float64                `yaml:"ram"`
	Bw                float64                `yaml:"bw"`
	Storage           float64                `yaml:"storage"`
	CloudletScheduler string                 `yaml:"cloudlet_scheduler,omitempty"`
	VerticalScaling   []VerticalScalingSpec  `yaml:"vertical_scaling,omitempty"`
	HorizontalScaling *HorizontalScalingSpec `yaml:"horizontal_scaling,omitempty"`
}

// VerticalScalingSpec configures one vertical controller. The resource
// drives which utilization the threshold predicates read: PE scaling
// watches CPU usage, RAM and bandwidth watch their containers.
type VerticalScalingSpec struct {
	Resource           string  `yaml:"resource"` // ram, bw, or pes
	ScalingFactor      float64 `yaml:"scaling_factor"`
	OverloadThreshold  float64 `yaml:"overload_threshold"`
	UnderloadThreshold float64 `yaml:"underload_threshold"`
}

// HorizontalScalingSpec configures the horizontal controller: when CPU
// usage crosses the threshold, a clone of the VM is submitted.
type HorizontalScalingSpec struct {
	OverloadThreshold float64 `yaml:"overload_threshold"`
}

// WorkloadSpec lists explicitly placed cloudlets and/or a Poisson
// arrival process.
type WorkloadSpec struct {
	Fixed   []CloudletSpec `yaml:"fixed,omitempty"`
	Poisson *PoissonSpec   `yaml:"poisson,omitempty"`
}

// CloudletSpec describes one cloudlet and where/when it is submitted.
type CloudletSpec struct {
	Length           float64         `yaml:"length"` // million instructions per PE
	Pes              int             `yaml:"pes"`
	FileSize         float64         `yaml:"file_size,omitempty"`
	OutputSize       float64         `yaml:"output_size,omitempty"`
	SubmitTime       float64         `yaml:"submit_time"`
	FileTransferTime float64         `yaml:"file_transfer_time,omitempty"`
	VmIndex          int             `yaml:"vm_index"`
	Utilization      UtilizationSpec `yaml:"utilization,omitempty"`
}

// PoissonSpec configures generated arrivals spread round-robin over
// the scenario's VMs.
type PoissonSpec struct {
	Rate        float64         `yaml:"rate"`  // arrivals per second
	Count       int             `yaml:"count"` // number of cloudlets to generate
	LengthMean  float64         `yaml:"length_mean"`
	Pes         int             `yaml:"pes"`
	Seed        uint64          `yaml:"seed"`
	Utilization UtilizationSpec `yaml:"utilization,omitempty"`
}

// UtilizationSpec selects a utilization model for all three resources
// of a cloudlet.
type UtilizationSpec struct {
	Model     string  `yaml:"model,omitempty"` // full (default), none, dynamic, stochastic
	Initial   float64 `yaml:"initial,omitempty"`
	Increment float64 `yaml:"increment,omitempty"`
	Seed      uint64  `yaml:"seed,omitempty"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading scenario %s", path)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, errors.Wrapf(err, "parsing scenario %s", path)
	}
	if err := sc.Validate(); err != nil {
		return nil, errors.Wrapf(err, "validating scenario %s", path)
	}
	return &sc, nil
}

// Validate rejects every configuration error before any entity joins a
// simulation.
func (sc *Scenario) Validate() error {
	if sc.Horizon <= 0 {
		return errors.New("horizon must be positive")
	}
	if len(sc.Hosts) == 0 {
		return errors.New("at least one host is required")
	}
	for i, h := range sc.Hosts {
		if h.Pes <= 0 {
			return errors.Errorf("host %d: pes must be positive", i)
		}
		if h.Mips <= 0 {
			return errors.Errorf("host %d: mips must be positive", i)
		}
		if h.SchedulingInterval <= 0 {
			return errors.Errorf("host %d: scheduling_interval must be positive", i)
		}
		if h.MigrationOverhead < 0 {
			return errors.Errorf("host %d: migration_overhead must not be negative", i)
		}
		if h.VmScheduler != "" && h.VmScheduler != VmSchedulerPolicySpaceShared && h.VmScheduler != VmSchedulerPolicyTimeShared {
			return errors.Errorf("host %d: unknown vm_scheduler %q", i, h.VmScheduler)
		}
	}
	if len(sc.Vms) == 0 {
		return errors.New("at least one vm is required")
	}
	for i, v := range sc.Vms {
		if v.Pes <= 0 {
			return errors.Errorf("vm %d: pes must be positive", i)
		}
		if v.Mips <= 0 {
			return errors.Errorf("vm %d: mips must be positive", i)
		}
		if v.CloudletScheduler != "" && v.CloudletScheduler != CloudletSchedulerPolicySpaceShared {
			return errors.Errorf("vm %d: unknown cloudlet_scheduler %q", i, v.CloudletScheduler)
		}
		seen := map[string]bool{}
		for _, vs := range v.VerticalScaling {
			if !ValidResourceClass(ResourceClass(vs.Resource)) {
				return errors.Errorf("vm %d: invalid vertical scaling resource %q", i, vs.Resource)
			}
			if vs.ScalingFactor < 0 || vs.ScalingFactor > 1 {
				return errors.Errorf("vm %d: scaling_factor %.2f outside [0,1]", i, vs.ScalingFactor)
			}
			if seen[vs.Resource] {
				return errors.Errorf("vm %d: duplicate vertical scaling for %q", i, vs.Resource)
			}
			seen[vs.Resource] = true
		}
	}
	for i, cs := range sc.Workload.Fixed {
		if cs.Length <= 0 {
			return errors.Errorf("cloudlet %d: length must be positive", i)
		}
		if cs.Pes <= 0 {
			return errors.Errorf("cloudlet %d: pes must be positive", i)
		}
		if cs.VmIndex < 0 || cs.VmIndex >= len(sc.Vms) {
			return errors.Errorf("cloudlet %d: vm_index %d out of range", i, cs.VmIndex)
		}
		if err := cs.Utilization.validate(); err != nil {
			return errors.Wrapf(err, "cloudlet %d", i)
		}
	}
	if p := sc.Workload.Poisson; p != nil {
		if p.Rate <= 0 {
			return errors.New("poisson: rate must be positive")
		}
		if p.Count <= 0 {
			return errors.New("poisson: count must be positive")
		}
		if p.LengthMean <= 0 {
			return errors.New("poisson: length_mean must be positive")
		}
		if p.Pes <= 0 {
			return errors.New("poisson: pes must be positive")
		}
		if err := p.Utilization.validate(); err != nil {
			return errors.Wrap(err, "poisson")
		}
	}
	return nil
}

func (u UtilizationSpec) validate() error {
	switch u.Model {
	case "", "full", "none", "dynamic", "stochastic":
		return nil
	default:
		return errors.Errorf("unknown utilization model %q", u.Model)
	}
}

// buildModel instantiates the configured utilization model.
func (u UtilizationSpec) buildModel() UtilizationModel {
	switch u.Model {
	case "", "full":
		return UtilizationModelFull{}
	case "none":
		return UtilizationModelNone{}
	case "dynamic":
		return NewUtilizationModelDynamic(u.Initial, u.Increment)
	case "stochastic":
		return NewUtilizationModelStochastic(u.Seed)
	default:
		// validate rejects everything else before build
		return UtilizationModelFull{}
	}
}

// Build wires the scenario into a runnable simulation: hosts, VM
// submissions at t=0, the periodic per-host update chain, the fixed
// cloudlet events, and the Poisson arrival stream.
func (sc *Scenario) Build() (*Simulation, error) {
	s := NewSimulation(sc.Horizon)
	if sc.CostPerSec > 0 || sc.CostPerBw > 0 {
		s.Broker.SetCostRates(sc.CostPerSec, sc.CostPerBw)
	}

	for i, hs := range sc.Hosts {
		pes := make([]*Pe, hs.Pes)
		for p := range pes {
			pes[p] = NewPe(p, hs.Mips)
		}
		host := NewHostSimple(i, pes, hs.Ram, hs.Bw, hs.Storage, hs.VmScheduler, hs.SchedulingInterval, hs.MigrationOverhead)
		s.AddHost(host)
		s.Schedule(NewUpdateProcessingEvent(0, host, true))
	}

	vms := make([]*Vm, 0, len(sc.Vms))
	for _, vs := range sc.Vms {
		vm, err := buildVm(s.Broker, vs)
		if err != nil {
			return nil, err
		}
		vms = append(vms, vm)
		s.Schedule(NewVmSubmitEvent(0, vm))
	}

	for _, cs := range sc.Workload.Fixed {
		cl := NewCloudlet(s.Broker.NextCloudletID(), cs.Length, cs.Pes)
		cl.SetFileSizes(cs.FileSize, cs.OutputSize)
		model := cs.Utilization.buildModel()
		cl.SetUtilizationModels(model, model, model)
		s.Schedule(NewCloudletSubmitEvent(cs.SubmitTime, cl, vms[cs.VmIndex], cs.FileTransferTime))
	}

	if sc.Workload.Poisson != nil {
		GeneratePoissonArrivals(s, vms, sc.Workload.Poisson)
	}
	s.Schedule(NewSimulationEndEvent(sc.Horizon))
	return s, nil
}

// buildVm assembles one VM with its scheduler and scaling controllers.
// Controller construction and attachment errors are configuration
// errors and abort the build.
func buildVm(b *SimBroker, vs VmSpec) (*Vm, error) {
	vm := NewVm(b.NextVmID(), vs.Mips, vs.Pes, NewCloudletScheduler(vs.CloudletScheduler))
	vm.SetRam(vs.Ram)
	vm.SetBw(vs.Bw)
	vm.SetStorage(vs.Storage)

	for _, spec := range vs.VerticalScaling {
		class := ResourceClass(spec.Resource)
		overload := thresholdPredicate(class, spec.OverloadThreshold, true)
		underload := thresholdPredicate(class, spec.UnderloadThreshold, false)
		vsc, err := NewVerticalVmScaling(class, spec.ScalingFactor, overload, underload)
		if err != nil {
			return nil, errors.Wrapf(err, "vm %d", vm.ID())
		}
		if err := vm.AddVerticalScaling(vsc); err != nil {
			return nil, errors.Wrapf(err, "vm %d", vm.ID())
		}
	}

	if vs.HorizontalScaling != nil {
		threshold := vs.HorizontalScaling.OverloadThreshold
		supplier := func() *Vm {
			clone := NewVm(NotAssigned, vs.Mips, vs.Pes, NewCloudletScheduler(vs.CloudletScheduler))
			clone.SetRam(vs.Ram)
			clone.SetBw(vs.Bw)
			clone.SetStorage(vs.Storage)
			return clone
		}
		hsc, err := NewHorizontalVmScaling(supplier, func(vm *Vm) bool {
			return vm.CpuPercentUsage() > threshold
		})
		if err != nil {
			return nil, errors.Wrapf(err, "vm %d", vm.ID())
		}
		if err := vm.SetHorizontalScaling(hsc); err != nil {
			return nil, errors.Wrapf(err, "vm %d", vm.ID())
		}
	}
	return vm, nil
}

// thresholdPredicate builds the utilization predicate for a resource
// class: PE scaling watches CPU usage, RAM and bandwidth watch their
// containers.
func thresholdPredicate(class ResourceClass, threshold float64, above bool) VmPredicate {
	read := func(vm *Vm) float64 {
		switch class {
		case ResourceRam:
			return vm.Ram().PercentUtilization()
		case ResourceBandwidth:
			return vm.Bw().PercentUtilization()
		default:
			return vm.CpuPercentUsage()
		}
	}
	if above {
		return func(vm *Vm) bool { return read(vm) > threshold }
	}
	return func(vm *Vm) bool { return read(vm) < threshold }
}
