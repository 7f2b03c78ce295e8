// The host collaborator: owns physical PEs and a host-level VM
// scheduler, provisions memory and bandwidth to resident VMs, and fans
// processing updates out to them each tick.

package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Host is the narrow interface the allocation chain needs from the
// hosting entity.
type Host interface {
	ID() int
	PeList() []*Pe
	TotalMipsCapacity() float64
	// SchedulingInterval bounds how often processing updates (and with
	// them scaling-controller evaluations) happen.
	SchedulingInterval() float64
	VmScheduler() VmScheduler
	IsSuitableForVm(vm *Vm) bool
	CreateVm(vm *Vm, now float64) bool
	DestroyVm(vm *Vm, now float64)
	UpdateProcessing(now float64) float64
	CpuPercentUtilization(now float64) float64
	Vms() []*Vm
}

// hostNull answers every query with zero and ignores every mutation.
type hostNull struct{}

// HostNull is the absent-host sentinel assigned to unhosted VMs.
var HostNull Host = hostNull{}

func (hostNull) ID() int                               { return NotAssigned }
func (hostNull) PeList() []*Pe                         { return nil }
func (hostNull) TotalMipsCapacity() float64            { return 0 }
func (hostNull) SchedulingInterval() float64           { return 0 }
func (hostNull) VmScheduler() VmScheduler              { return VmSchedulerNull{} }
func (hostNull) IsSuitableForVm(*Vm) bool              { return false }
func (hostNull) CreateVm(*Vm, float64) bool            { return false }
func (hostNull) DestroyVm(*Vm, float64)                {}
func (hostNull) UpdateProcessing(float64) float64      { return NoNextEvent }
func (hostNull) CpuPercentUtilization(float64) float64 { return 0 }
func (hostNull) Vms() []*Vm                            { return nil }

// HostSimple is the concrete host used by scenarios and tests.
type HostSimple struct {
	id                 int
	pes                []*Pe
	ram                *Resource
	bw                 *Resource
	storage            *Resource
	vmScheduler        VmScheduler
	schedulingInterval float64
	vms                []*Vm
}

// NewHostSimple builds a host over the given PEs. The VM scheduler
// policy is resolved by name (space-shared by default).
func NewHostSimple(id int, pes []*Pe, ram, bw, storage float64, vmSchedulerPolicy string, schedulingInterval, migrationOverhead float64) *HostSimple {
	return &HostSimple{
		id:                 id,
		pes:                pes,
		ram:                NewResource("ram", ram),
		bw:                 NewResource("bw", bw),
		storage:            NewResource("storage", storage),
		vmScheduler:        NewVmScheduler(vmSchedulerPolicy, pes, migrationOverhead),
		schedulingInterval: schedulingInterval,
	}
}

func (h *HostSimple) String() string {
	return fmt.Sprintf("Host(id: %d, pes: %d)", h.id, len(h.pes))
}

func (h *HostSimple) ID() int                     { return h.id }
func (h *HostSimple) PeList() []*Pe               { return h.pes }
func (h *HostSimple) SchedulingInterval() float64 { return h.schedulingInterval }
func (h *HostSimple) VmScheduler() VmScheduler    { return h.vmScheduler }
func (h *HostSimple) Vms() []*Vm                  { return h.vms }
func (h *HostSimple) Ram() *Resource              { return h.ram }
func (h *HostSimple) Bw() *Resource               { return h.bw }
func (h *HostSimple) Storage() *Resource          { return h.storage }

func (h *HostSimple) TotalMipsCapacity() float64 {
	var total float64
	for _, pe := range h.pes {
		if pe.Status() != PeFailed {
			total += pe.Capacity()
		}
	}
	return total
}

// IsSuitableForVm is the pure feasibility check used by placement: PEs,
// RAM, bandwidth and storage must all fit.
func (h *HostSimple) IsSuitableForVm(vm *Vm) bool {
	return h.vmScheduler.IsSuitable(vm, vm.RequestedMipsShare()) &&
		h.ram.Available() >= vm.Ram().Capacity() &&
		h.bw.Available() >= vm.Bw().Capacity() &&
		h.storage.Available() >= vm.Storage().Capacity()
}

// CreateVm reserves all of the VM's resources atomically. On any
// shortfall nothing is kept, the VM's creation-failure listeners fire,
// and false is returned.
func (h *HostSimple) CreateVm(vm *Vm, now float64) bool {
	if !h.IsSuitableForVm(vm) {
		logrus.Warnf("host %d cannot create VM %d: insufficient capacity", h.id, vm.ID())
		vm.NotifyCreationFailure(now)
		return false
	}
	if !h.vmScheduler.Allocate(vm, vm.RequestedMipsShare()) {
		vm.NotifyCreationFailure(now)
		return false
	}
	// Suitability was checked above; these reservations cannot fail.
	h.ram.Allocate(vm.Ram().Capacity())
	h.bw.Allocate(vm.Bw().Capacity())
	h.storage.Allocate(vm.Storage().Capacity())

	h.vms = append(h.vms, vm)
	vm.Scheduler().SetCurrentMipsShare(h.vmScheduler.AllocatedMipsFor(vm))
	vm.AssignToHost(h, now)
	logrus.Infof("[t=%010.4f] host %d created VM %d", now, h.id, vm.ID())
	return true
}

// DestroyVm releases everything the VM holds. Idempotent for VMs not
// resident here.
func (h *HostSimple) DestroyVm(vm *Vm, now float64) {
	found := false
	kept := h.vms[:0]
	for _, resident := range h.vms {
		if resident == vm {
			found = true
			continue
		}
		kept = append(kept, resident)
	}
	h.vms = kept
	if !found {
		return
	}
	h.vmScheduler.Deallocate(vm)
	// Host-side reservations shrink by what the VM held.
	h.ram.setAllocated(h.ram.Allocated() - vm.Ram().Capacity())
	h.bw.setAllocated(h.bw.Allocated() - vm.Bw().Capacity())
	h.storage.setAllocated(h.storage.Allocated() - vm.Storage().Capacity())
	vm.LeaveHost(now)
	logrus.Infof("[t=%010.4f] host %d destroyed VM %d", now, h.id, vm.ID())
}

// UpdateProcessing resolves each resident VM's granted share and lets
// its cloudlet scheduler spend it. Host-level allocation was settled
// when the VM was created or migrated, satisfying the ordering rule
// that shares are final before task schedulers read them. Returns the
// earliest next completion time across VMs, or NoNextEvent.
func (h *HostSimple) UpdateProcessing(now float64) float64 {
	next := NoNextEvent
	for _, vm := range h.vms {
		estimated := vm.UpdateProcessing(now, h.vmScheduler.AllocatedMipsFor(vm))
		if estimated < next {
			next = estimated
		}
	}
	return next
}

// CpuPercentUtilization is the host CPU fraction in use: each VM's
// usage against its grant, with the configured migration overhead
// added for VMs currently migrating.
func (h *HostSimple) CpuPercentUtilization(now float64) float64 {
	total := h.TotalMipsCapacity()
	if total == 0 {
		return 0
	}
	var used float64
	for _, vm := range h.vms {
		usage := vm.TotalCpuMipsUsage()
		if vm.IsInMigration() {
			usage *= 1 + h.vmScheduler.MigrationOverhead()
		}
		used += usage
	}
	if used > total {
		return 1
	}
	return used / total
}
