// Models a physical processing element (PE) and the provisioner that
// splits its MIPS capacity into virtual PEs for the VMs of a host.

package sim

import "github.com/sirupsen/logrus"

// PeStatus represents the lifecycle state of a processing element.
type PeStatus int

const (
	PeFree PeStatus = iota
	PeBusy
	PeFailed
)

func (s PeStatus) String() string {
	switch s {
	case PeFree:
		return "FREE"
	case PeBusy:
		return "BUSY"
	case PeFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Pe is a single processing element owned by a host. Capacity is in
// MIPS. Each Pe owns a provisioner that accounts for how much of its
// capacity is currently granted to each VM.
type Pe struct {
	id          int
	capacity    float64
	status      PeStatus
	provisioner *PeProvisioner

	null bool
}

// PeNull is the neutral Pe: zero capacity, failed status, and a
// provisioner that rejects every allocation. Callers holding a PeNull
// never need to branch on presence.
var PeNull = &Pe{id: -1, status: PeFailed, provisioner: PeProvisionerNull, null: true}

// NewPe creates a free PE with the given MIPS capacity and a fresh
// provisioner managing that capacity.
func NewPe(id int, mips float64) *Pe {
	return &Pe{
		id:          id,
		capacity:    mips,
		status:      PeFree,
		provisioner: NewPeProvisioner(mips),
	}
}

func (pe *Pe) ID() int                     { return pe.id }
func (pe *Pe) Capacity() float64           { return pe.capacity }
func (pe *Pe) Status() PeStatus            { return pe.status }
func (pe *Pe) Provisioner() *PeProvisioner { return pe.provisioner }

// SetStatus updates the PE status. No-op on the null PE.
func (pe *Pe) SetStatus(status PeStatus) {
	if pe.null {
		return
	}
	pe.status = status
}

// PeProvisioner allocates the capacity of a single physical PE to
// competing VMs. Allocation is all-or-nothing: a request that does not
// fit leaves the accounting untouched.
type PeProvisioner struct {
	capacity  float64
	allocated map[*Vm]float64
	total     float64

	null bool
}

// PeProvisionerNull rejects every allocation and answers every query
// with zero.
var PeProvisionerNull = &PeProvisioner{null: true}

// NewPeProvisioner creates a provisioner managing `capacity` MIPS.
func NewPeProvisioner(capacity float64) *PeProvisioner {
	return &PeProvisioner{
		capacity:  capacity,
		allocated: make(map[*Vm]float64),
	}
}

func (p *PeProvisioner) Capacity() float64 { return p.capacity }

// Allocate grants `mips` of this PE's capacity to vm. It succeeds iff
// the full amount fits next to what is already allocated; on failure no
// state changes.
func (p *PeProvisioner) Allocate(vm *Vm, mips float64) bool {
	if p.null || mips < 0 {
		return false
	}
	if p.total+mips > p.capacity {
		logrus.Debugf("PeProvisioner: rejecting %.1f MIPS for VM %d (%.1f of %.1f already allocated)",
			mips, vm.ID(), p.total, p.capacity)
		return false
	}
	p.allocated[vm] += mips
	p.total += mips
	return true
}

// AllocatedFor returns the MIPS currently granted to vm, 0 if none.
func (p *PeProvisioner) AllocatedFor(vm *Vm) float64 {
	if p.null {
		return 0
	}
	return p.allocated[vm]
}

// Deallocate removes vm's allocation. Idempotent on unknown VMs.
func (p *PeProvisioner) Deallocate(vm *Vm) {
	if p.null {
		return
	}
	if mips, ok := p.allocated[vm]; ok {
		p.total -= mips
		delete(p.allocated, vm)
	}
}

// DeallocateAll removes every allocation.
func (p *PeProvisioner) DeallocateAll() {
	if p.null {
		return
	}
	p.allocated = make(map[*Vm]float64)
	p.total = 0
}

// TotalAllocated returns the sum of all grants.
func (p *PeProvisioner) TotalAllocated() float64 { return p.total }

// Available returns the capacity not yet granted.
func (p *PeProvisioner) Available() float64 {
	if p.null {
		return 0
	}
	return p.capacity - p.total
}

// Utilization returns allocatedTotal / capacity in [0,1].
func (p *PeProvisioner) Utilization() float64 {
	if p.null || p.capacity == 0 {
		return 0
	}
	return p.total / p.capacity
}
