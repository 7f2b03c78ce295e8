// The broker collaborator owns VM and cloudlet submission, identity
// assignment, placement onto hosts, and the handling of elastic scale
// requests coming back from the controllers.

package sim

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Broker is the boundary through which VMs, cloudlets, and scale
// requests enter the system.
type Broker interface {
	ID() int
	// SubmitVm places a VM onto a suitable host, assigning an identity
	// if the VM has none. Returns false when no host fits.
	SubmitVm(vm *Vm, now float64) bool
	// SubmitCloudlet dispatches a cloudlet to its VM's scheduler.
	// Returns the estimated completion delay (0 when queued).
	SubmitCloudlet(cl *Cloudlet, vm *Vm, fileTransferTime, now float64) float64
	// RequestResourceScaling applies a vertical scale request. Returns
	// false when the request cannot be honored.
	RequestResourceScaling(req VerticalScaleRequest) bool
}

// brokerNull accepts every call as a no-op and answers neutrally. It is
// the default broker of unowned VMs.
type brokerNull struct{}

// BrokerNull is the absent-broker sentinel.
var BrokerNull Broker = brokerNull{}

func (brokerNull) ID() int                                                 { return NotAssigned }
func (brokerNull) SubmitVm(*Vm, float64) bool                              { return false }
func (brokerNull) SubmitCloudlet(*Cloudlet, *Vm, float64, float64) float64 { return 0 }
func (brokerNull) RequestResourceScaling(VerticalScaleRequest) bool        { return false }

// SimBroker is the concrete broker backing a running simulation.
type SimBroker struct {
	sim            *Simulation
	nextVmID       int
	nextCloudletID int
	vms            []*Vm
	cloudlets      []*Cloudlet

	// Charge rates applied to cloudlets as they are assigned here.
	costPerSec float64
	costPerBw  float64

	verticalUpRequests   int
	verticalDownRequests int
	horizontalRequests   int
	failedVmCreations    int
}

// NewSimBroker creates a broker bound to the simulation's clock and
// host list.
func NewSimBroker(s *Simulation) *SimBroker {
	return &SimBroker{sim: s, costPerSec: 3.0, costPerBw: 0.005}
}

func (b *SimBroker) ID() int { return 0 }

// SetCostRates configures the execution and transfer charge rates
// stamped onto submitted cloudlets.
func (b *SimBroker) SetCostRates(costPerSec, costPerBw float64) {
	b.costPerSec = costPerSec
	b.costPerBw = costPerBw
}

func (b *SimBroker) Vms() []*Vm            { return b.vms }
func (b *SimBroker) Cloudlets() []*Cloudlet { return b.cloudlets }

// NextVmID hands out broker-assigned VM identities.
func (b *SimBroker) NextVmID() int {
	id := b.nextVmID
	b.nextVmID++
	return id
}

// NextCloudletID hands out broker-assigned cloudlet identities.
func (b *SimBroker) NextCloudletID() int {
	id := b.nextCloudletID
	b.nextCloudletID++
	return id
}

// SubmitVm tries each host in order and creates the VM on the first
// suitable one. A VM carrying a negative identity gets the next
// broker-assigned one.
func (b *SimBroker) SubmitVm(vm *Vm, now float64) bool {
	if vm.ID() < 0 {
		// Supplier-built VMs (horizontal scaling) arrive without ids;
		// rebuild with a broker identity.
		vm = b.adoptVm(vm)
		b.horizontalRequests++
	}
	vm.SetBroker(b)
	b.vms = append(b.vms, vm)
	for _, host := range b.sim.Hosts {
		if host.IsSuitableForVm(vm) && host.CreateVm(vm, now) {
			return true
		}
	}
	b.failedVmCreations++
	logrus.Warnf("[t=%010.4f] no host can create VM %d", now, vm.ID())
	vm.NotifyCreationFailure(now)
	return false
}

// adoptVm clones an id-less VM under a broker-assigned identity.
func (b *SimBroker) adoptVm(vm *Vm) *Vm {
	adopted := NewVm(b.NextVmID(), vm.Mips(), vm.NumberOfPes(), vm.Scheduler())
	adopted.SetRam(vm.Ram().Capacity())
	adopted.SetBw(vm.Bw().Capacity())
	adopted.SetStorage(vm.Storage().Capacity())
	return adopted
}

// SubmitCloudlet assigns the cloudlet to the VM's hosting site, stamps
// cost and submission bookkeeping, and hands it to the VM's scheduler.
// When the scheduler admits it immediately, a processing update is
// scheduled at the estimated completion time.
func (b *SimBroker) SubmitCloudlet(cl *Cloudlet, vm *Vm, fileTransferTime, now float64) float64 {
	if cl.ID() < 0 {
		cl = NewCloudlet(b.NextCloudletID(), cl.Length(), cl.NumberOfPes())
	}
	b.track(cl)
	cl.SetVmID(vm.ID())
	cl.AssignToSite(vm.Host().ID(), b.costPerSec)
	cl.SetSubmissionTime(now)
	cl.SetCostPerBw(b.costPerBw)
	cl.AddAccumulatedBwCost(b.costPerBw * cl.FileSize())

	// Credit the elapsed interval to the resident cloudlets before the
	// new one joins, or it inherits progress from before its arrival.
	syncProcessing(vm, now)
	delay := vm.Scheduler().Submit(cl, fileTransferTime, now)
	if delay > 0 {
		if host, ok := vm.Host().(*HostSimple); ok {
			b.sim.Schedule(&UpdateProcessingEvent{time: now + delay, Host: host})
		}
	}
	return delay
}

// track registers a cloudlet once; resubmissions (migration) keep the
// original entry.
func (b *SimBroker) track(cl *Cloudlet) {
	for _, known := range b.cloudlets {
		if known == cl {
			return
		}
	}
	b.cloudlets = append(b.cloudlets, cl)
}

// RequestResourceScaling applies a vertical scale request immediately:
// RAM and bandwidth resize their containers; PE scaling renegotiates
// the VM's share with its host's scheduler. A request the host or
// container cannot honor returns false and changes nothing.
func (b *SimBroker) RequestResourceScaling(req VerticalScaleRequest) bool {
	if req.Vm == nil || req.Amount == 0 {
		return false
	}
	if req.Amount > 0 {
		b.verticalUpRequests++
	} else {
		b.verticalDownRequests++
	}
	switch req.Resource {
	case ResourceRam:
		return req.Vm.Ram().SetCapacity(req.Vm.Ram().Capacity() + req.Amount)
	case ResourceBandwidth:
		return req.Vm.Bw().SetCapacity(req.Vm.Bw().Capacity() + req.Amount)
	case ResourcePes:
		return b.scaleVmPes(req)
	default:
		return false
	}
}

// scaleVmPes renegotiates the VM's PE count with the hosting scheduler.
// The old share is restored in full when the new one does not fit.
func (b *SimBroker) scaleVmPes(req VerticalScaleRequest) bool {
	vm := req.Vm
	// Fractional amounts (pes × factor below 1) round away from zero so
	// the request still moves at least one PE.
	delta := int(math.Ceil(math.Abs(req.Amount)))
	if req.Amount < 0 {
		delta = -delta
	}
	newPes := vm.NumberOfPes() + delta
	if newPes < 1 {
		newPes = 1
	}
	if newPes == vm.NumberOfPes() {
		return false
	}
	scheduler := vm.Host().VmScheduler()
	oldPes := vm.NumberOfPes()
	scheduler.Deallocate(vm)
	vm.SetNumberOfPes(newPes)
	if scheduler.Allocate(vm, vm.RequestedMipsShare()) {
		vm.Scheduler().SetCurrentMipsShare(scheduler.AllocatedMipsFor(vm))
		logrus.Infof("[t=%010.4f] VM %d scaled from %d to %d PEs", req.Time, vm.ID(), oldPes, newPes)
		return true
	}
	// Not enough capacity for the new share; put the old one back.
	vm.SetNumberOfPes(oldPes)
	scheduler.Allocate(vm, vm.RequestedMipsShare())
	vm.Scheduler().SetCurrentMipsShare(scheduler.AllocatedMipsFor(vm))
	return false
}
