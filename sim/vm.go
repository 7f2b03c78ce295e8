// The virtual machine entity: per-PE capacity, resource containers,
// the owned cloudlet scheduler, lifecycle flags, listener sets, and the
// attached scaling controllers.

package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Resource is a provisionable VM resource container (RAM, bandwidth or
// storage) tracking capacity and the currently allocated amount.
type Resource struct {
	name      string
	capacity  float64
	allocated float64
}

func NewResource(name string, capacity float64) *Resource {
	return &Resource{name: name, capacity: capacity}
}

func (r *Resource) Name() string       { return r.name }
func (r *Resource) Capacity() float64  { return r.capacity }
func (r *Resource) Allocated() float64 { return r.allocated }

// Available returns the capacity not currently allocated.
func (r *Resource) Available() float64 { return r.capacity - r.allocated }

// PercentUtilization returns allocated/capacity in [0,1].
func (r *Resource) PercentUtilization() float64 {
	if r.capacity == 0 {
		return 0
	}
	return r.allocated / r.capacity
}

// SetCapacity replaces the total capacity. Rejects values below the
// currently allocated amount or below zero.
func (r *Resource) SetCapacity(capacity float64) bool {
	if capacity < 0 || capacity < r.allocated {
		return false
	}
	r.capacity = capacity
	return true
}

// Allocate reserves amount, rejecting requests beyond capacity.
func (r *Resource) Allocate(amount float64) bool {
	if amount < 0 || r.allocated+amount > r.capacity {
		return false
	}
	r.allocated += amount
	return true
}

// Deallocate releases the whole allocation.
func (r *Resource) Deallocate() {
	r.allocated = 0
}

// setAllocated pins the allocation directly, clamped to capacity. Used
// by processing updates to track demand from utilization models.
func (r *Resource) setAllocated(amount float64) {
	if amount < 0 {
		amount = 0
	}
	if amount > r.capacity {
		amount = r.capacity
	}
	r.allocated = amount
}

// Vm models a virtual machine: a MIPS requirement per PE, a PE count,
// memory/bandwidth/storage containers, and a cloudlet scheduler that
// spends whatever share the host grants.
type Vm struct {
	id          int
	mips        float64
	numberOfPes int

	ram     *Resource
	bw      *Resource
	storage *Resource

	scheduler CloudletScheduler
	host      Host
	broker    Broker

	created     bool
	failed      bool
	inMigration bool

	cpuPercentUsage float64

	onHostAllocation   listenerSet
	onHostDeallocation listenerSet
	onCreationFailure  listenerSet
	onUpdateProcessing listenerSet

	verticalScalings  map[ResourceClass]*VerticalVmScaling
	horizontalScaling *HorizontalVmScaling

	null bool
}

// VmNull is the neutral VM: every query answers zero/empty/false and
// every mutating call is a no-op.
var VmNull = newNullVm()

func newNullVm() *Vm {
	vm := &Vm{
		id:        NotAssigned,
		ram:       NewResource("ram", 0),
		bw:        NewResource("bw", 0),
		storage:   NewResource("storage", 0),
		scheduler: CloudletSchedulerNull{},
		host:      HostNull,
		broker:    BrokerNull,
		null:      true,
	}
	return vm
}

// NewVm creates a VM requiring `mips` per PE across numberOfPes PEs,
// owning the given cloudlet scheduler. The VM starts unhosted
// (HostNull) and unbrokered (BrokerNull).
func NewVm(id int, mips float64, numberOfPes int, scheduler CloudletScheduler) *Vm {
	if scheduler == nil {
		scheduler = CloudletSchedulerNull{}
	}
	return &Vm{
		id:               id,
		mips:             mips,
		numberOfPes:      numberOfPes,
		ram:              NewResource("ram", 0),
		bw:               NewResource("bw", 0),
		storage:          NewResource("storage", 0),
		scheduler:        scheduler,
		host:             HostNull,
		broker:           BrokerNull,
		verticalScalings: make(map[ResourceClass]*VerticalVmScaling),
	}
}

func (vm *Vm) String() string {
	return fmt.Sprintf("Vm(id: %d, mips: %.0f, pes: %d)", vm.id, vm.mips, vm.numberOfPes)
}

func (vm *Vm) ID() int {
	return vm.id
}

func (vm *Vm) Mips() float64 {
	if vm.null {
		return 0
	}
	return vm.mips
}

func (vm *Vm) NumberOfPes() int {
	if vm.null {
		return 0
	}
	return vm.numberOfPes
}

// TotalMipsCapacity is mips × PE count.
func (vm *Vm) TotalMipsCapacity() float64 {
	return vm.Mips() * float64(vm.NumberOfPes())
}

func (vm *Vm) Ram() *Resource     { return vm.ram }
func (vm *Vm) Bw() *Resource      { return vm.bw }
func (vm *Vm) Storage() *Resource { return vm.storage }

// SetRam configures RAM capacity. No-op on the null VM.
func (vm *Vm) SetRam(capacity float64) {
	if vm.null {
		return
	}
	vm.ram.SetCapacity(capacity)
}

func (vm *Vm) SetBw(capacity float64) {
	if vm.null {
		return
	}
	vm.bw.SetCapacity(capacity)
}

func (vm *Vm) SetStorage(capacity float64) {
	if vm.null {
		return
	}
	vm.storage.SetCapacity(capacity)
}

// SetNumberOfPes resizes the VM's PE requirement; used by PE-class
// vertical scaling. Rejects non-positive counts.
func (vm *Vm) SetNumberOfPes(numberOfPes int) bool {
	if vm.null || numberOfPes <= 0 {
		return false
	}
	vm.numberOfPes = numberOfPes
	return true
}

func (vm *Vm) Scheduler() CloudletScheduler {
	return vm.scheduler
}

func (vm *Vm) Host() Host { return vm.host }

func (vm *Vm) Broker() Broker { return vm.broker }

// SetBroker binds the owning broker; nil restores BrokerNull.
func (vm *Vm) SetBroker(b Broker) {
	if vm.null {
		return
	}
	if b == nil {
		b = BrokerNull
	}
	vm.broker = b
}

func (vm *Vm) IsCreated() bool { return !vm.null && vm.created }
func (vm *Vm) HasFailed() bool { return !vm.null && vm.failed }

func (vm *Vm) IsInMigration() bool {
	if vm.null {
		return false
	}
	return vm.inMigration
}

func (vm *Vm) SetInMigration(inMigration bool) {
	if vm.null {
		return
	}
	vm.inMigration = inMigration
}

func (vm *Vm) SetFailed(failed bool) {
	if vm.null {
		return
	}
	vm.failed = failed
}

// AssignToHost records the hosting entity, marks the VM created, and
// notifies host-allocation listeners.
func (vm *Vm) AssignToHost(h Host, now float64) {
	if vm.null {
		return
	}
	if h == nil {
		h = HostNull
	}
	vm.host = h
	vm.created = true
	vm.onHostAllocation.Notify(VmEventInfo{Time: now, Vm: vm, Host: h})
}

// LeaveHost detaches the VM from its host and notifies
// host-deallocation listeners.
func (vm *Vm) LeaveHost(now float64) {
	if vm.null {
		return
	}
	previous := vm.host
	vm.host = HostNull
	vm.created = false
	vm.onHostDeallocation.Notify(VmEventInfo{Time: now, Vm: vm, Host: previous})
}

// NotifyCreationFailure marks the VM failed and informs
// creation-failure listeners.
func (vm *Vm) NotifyCreationFailure(now float64) {
	if vm.null {
		return
	}
	vm.failed = true
	vm.onCreationFailure.Notify(VmEventInfo{Time: now, Vm: vm, Host: HostNull})
}

func (vm *Vm) AddOnHostAllocationListener(l VmListener) {
	if vm.null {
		return
	}
	vm.onHostAllocation.Add(l)
}

func (vm *Vm) RemoveOnHostAllocationListener(l VmListener) bool {
	if vm.null {
		return false
	}
	return vm.onHostAllocation.Remove(l)
}

func (vm *Vm) AddOnHostDeallocationListener(l VmListener) {
	if vm.null {
		return
	}
	vm.onHostDeallocation.Add(l)
}

func (vm *Vm) RemoveOnHostDeallocationListener(l VmListener) bool {
	if vm.null {
		return false
	}
	return vm.onHostDeallocation.Remove(l)
}

func (vm *Vm) AddOnCreationFailureListener(l VmListener) {
	if vm.null {
		return
	}
	vm.onCreationFailure.Add(l)
}

func (vm *Vm) RemoveOnCreationFailureListener(l VmListener) bool {
	if vm.null {
		return false
	}
	return vm.onCreationFailure.Remove(l)
}

func (vm *Vm) AddOnUpdateProcessingListener(l VmListener) {
	if vm.null {
		return
	}
	vm.onUpdateProcessing.Add(l)
}

func (vm *Vm) RemoveOnUpdateProcessingListener(l VmListener) bool {
	if vm.null {
		return false
	}
	return vm.onUpdateProcessing.Remove(l)
}

// AddVerticalScaling attaches a vertical scaling controller for its
// resource class. Attaching a controller already bound to another VM,
// or a second controller for the same class, is a configuration error.
func (vm *Vm) AddVerticalScaling(vs *VerticalVmScaling) error {
	if vm.null || vs == nil {
		return nil
	}
	if err := vs.SetVm(vm); err != nil {
		return err
	}
	if _, exists := vm.verticalScalings[vs.ResourceClass()]; exists {
		return fmt.Errorf("vm %d already has a vertical scaling controller for %s", vm.id, vs.ResourceClass())
	}
	vm.verticalScalings[vs.ResourceClass()] = vs
	return nil
}

// SetHorizontalScaling attaches the horizontal scaling controller.
// At most one per VM; rebinding a bound controller is rejected.
func (vm *Vm) SetHorizontalScaling(hs *HorizontalVmScaling) error {
	if vm.null || hs == nil {
		return nil
	}
	if err := hs.SetVm(vm); err != nil {
		return err
	}
	vm.horizontalScaling = hs
	return nil
}

// CpuPercentUsage is the CPU utilization fraction observed at the last
// processing update.
func (vm *Vm) CpuPercentUsage() float64 {
	if vm.null {
		return 0
	}
	return vm.cpuPercentUsage
}

// TotalCpuMipsUsage is the MIPS the VM is consuming at the last update.
func (vm *Vm) TotalCpuMipsUsage() float64 {
	return vm.CpuPercentUsage() * vm.TotalMipsCapacity()
}

// UpdateProcessing advances the resident cloudlets using the MIPS share
// granted by the host, refreshes the resource demand observed from
// utilization models, notifies update listeners, and only then lets the
// attached scaling controllers evaluate their predicates — they must
// read post-update state. Returns the next expected completion time or
// NoNextEvent.
func (vm *Vm) UpdateProcessing(now float64, mipsShare []float64) float64 {
	if vm.null {
		return 0
	}
	next := vm.scheduler.UpdateProcessing(now, mipsShare)
	vm.cpuPercentUsage = vm.scheduler.TotalUtilizationOfCpu(now)
	vm.ram.setAllocated(vm.scheduler.TotalUtilizationOfRam(now) * vm.ram.Capacity())
	vm.bw.setAllocated(vm.scheduler.TotalUtilizationOfBw(now) * vm.bw.Capacity())

	vm.onUpdateProcessing.Notify(VmEventInfo{Time: now, Vm: vm, Host: vm.host})

	for _, vs := range vm.verticalScalings {
		if vs.RequestScalingIfPredicateMatch(now) {
			logrus.Debugf("vm %d requested vertical scaling of %s at t=%.4f", vm.id, vs.ResourceClass(), now)
		}
	}
	if vm.horizontalScaling != nil {
		if vm.horizontalScaling.RequestScalingIfPredicateMatch(now) {
			logrus.Debugf("vm %d requested horizontal scaling at t=%.4f", vm.id, now)
		}
	}
	return next
}

// RequestedMipsShare is the ordered per-PE share the VM asks its host
// for: mips repeated once per PE.
func (vm *Vm) RequestedMipsShare() []float64 {
	share := make([]float64, vm.NumberOfPes())
	for i := range share {
		share[i] = vm.mips
	}
	return share
}
