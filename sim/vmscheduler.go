// Host-level schedulers that distribute the MIPS capacity of a host's
// PEs among its resident VMs. Two policies exist: space-shared
// (exclusive PE ownership) and time-shared (proportional sharing with
// shrink under oversubscription). The policy set is closed and selected
// by name at host construction.

package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// VmScheduler allocates host-owned PE capacity to virtual machines.
// Allocation is atomic: a request that cannot be fully satisfied leaves
// the scheduler state untouched.
type VmScheduler interface {
	// Allocate attempts to grant the whole ordered list of per-PE MIPS
	// shares to vm. All-or-nothing.
	Allocate(vm *Vm, requestedMips []float64) bool
	// Deallocate returns everything granted to vm. Idempotent.
	Deallocate(vm *Vm)
	// DeallocateAll releases every VM's grant.
	DeallocateAll()
	// IsSuitable is the pure, non-mutating form of the Allocate
	// feasibility check.
	IsSuitable(vm *Vm, requestedMips []float64) bool
	// AllocatedMipsFor returns the per-PE shares currently granted to
	// vm, nil if none.
	AllocatedMipsFor(vm *Vm) []float64
	// TotalAvailableMips returns the capacity not granted to any VM.
	TotalAvailableMips() float64
	// MaxAvailableMips returns the largest share a single new virtual
	// PE could still receive.
	MaxAvailableMips() float64
	// MigrationOverhead is the extra CPU fraction charged to a VM while
	// it is migrating. It affects utilization accounting only, never
	// allocation feasibility.
	MigrationOverhead() float64
}

// Host scheduler policy names accepted by NewVmScheduler.
const (
	VmSchedulerPolicySpaceShared = "space-shared"
	VmSchedulerPolicyTimeShared  = "time-shared"
)

// NewVmScheduler creates a VmScheduler by policy name over the given
// PEs. Empty string defaults to space-shared. Panics on unknown names;
// policy selection is a construction-time decision, never a runtime one.
func NewVmScheduler(policy string, pes []*Pe, migrationOverhead float64) VmScheduler {
	switch policy {
	case "", VmSchedulerPolicySpaceShared:
		return NewVmSchedulerSpaceShared(pes, migrationOverhead)
	case VmSchedulerPolicyTimeShared:
		return NewVmSchedulerTimeShared(pes, migrationOverhead)
	default:
		panic(fmt.Sprintf("unknown vm scheduler policy %q", policy))
	}
}

// VmSchedulerSpaceShared grants whole PEs exclusively. A VM's request
// is satisfied by matching each requested share against a free PE with
// sufficient capacity; if any entry cannot be matched the whole request
// fails and the free list is untouched.
type VmSchedulerSpaceShared struct {
	freePes           []*Pe
	peMap             map[*Vm][]*Pe
	mipsMap           map[*Vm][]float64
	migrationOverhead float64
}

func NewVmSchedulerSpaceShared(pes []*Pe, migrationOverhead float64) *VmSchedulerSpaceShared {
	free := make([]*Pe, 0, len(pes))
	for _, pe := range pes {
		if pe.Status() != PeFailed {
			free = append(free, pe)
		}
	}
	return &VmSchedulerSpaceShared{
		freePes:           free,
		peMap:             make(map[*Vm][]*Pe),
		mipsMap:           make(map[*Vm][]float64),
		migrationOverhead: migrationOverhead,
	}
}

// match pairs each requested share with a distinct free PE of
// sufficient capacity. Returns nil when the free list cannot satisfy
// every entry.
func (s *VmSchedulerSpaceShared) match(requestedMips []float64) []*Pe {
	taken := make(map[*Pe]bool, len(requestedMips))
	chosen := make([]*Pe, 0, len(requestedMips))
	for _, mips := range requestedMips {
		found := false
		for _, pe := range s.freePes {
			if !taken[pe] && pe.Capacity() >= mips {
				taken[pe] = true
				chosen = append(chosen, pe)
				found = true
				break
			}
		}
		if !found {
			return nil
		}
	}
	return chosen
}

func (s *VmSchedulerSpaceShared) Allocate(vm *Vm, requestedMips []float64) bool {
	if len(requestedMips) > vm.NumberOfPes() {
		return false
	}
	chosen := s.match(requestedMips)
	if chosen == nil {
		logrus.Debugf("VmSchedulerSpaceShared: cannot place VM %d (%d shares requested, %d PEs free)",
			vm.ID(), len(requestedMips), len(s.freePes))
		return false
	}
	for i, pe := range chosen {
		if !pe.Provisioner().Allocate(vm, requestedMips[i]) {
			// The matched PE was free, so its provisioner must accept
			// the share. Unwind to keep the all-or-nothing contract.
			for _, undo := range chosen[:i] {
				undo.Provisioner().Deallocate(vm)
			}
			return false
		}
	}
	remaining := make([]*Pe, 0, len(s.freePes)-len(chosen))
	takenSet := make(map[*Pe]bool, len(chosen))
	for _, pe := range chosen {
		takenSet[pe] = true
		pe.SetStatus(PeBusy)
	}
	for _, pe := range s.freePes {
		if !takenSet[pe] {
			remaining = append(remaining, pe)
		}
	}
	s.freePes = remaining
	s.peMap[vm] = chosen
	s.mipsMap[vm] = append([]float64(nil), requestedMips...)
	return true
}

func (s *VmSchedulerSpaceShared) Deallocate(vm *Vm) {
	pes, ok := s.peMap[vm]
	if !ok {
		return
	}
	for _, pe := range pes {
		pe.Provisioner().Deallocate(vm)
		pe.SetStatus(PeFree)
	}
	s.freePes = append(s.freePes, pes...)
	delete(s.peMap, vm)
	delete(s.mipsMap, vm)
}

func (s *VmSchedulerSpaceShared) DeallocateAll() {
	for vm := range s.peMap {
		s.Deallocate(vm)
	}
}

func (s *VmSchedulerSpaceShared) IsSuitable(vm *Vm, requestedMips []float64) bool {
	if len(requestedMips) > vm.NumberOfPes() {
		return false
	}
	return s.match(requestedMips) != nil
}

func (s *VmSchedulerSpaceShared) AllocatedMipsFor(vm *Vm) []float64 {
	return s.mipsMap[vm]
}

func (s *VmSchedulerSpaceShared) TotalAvailableMips() float64 {
	var total float64
	for _, pe := range s.freePes {
		total += pe.Capacity()
	}
	return total
}

func (s *VmSchedulerSpaceShared) MaxAvailableMips() float64 {
	var max float64
	for _, pe := range s.freePes {
		if pe.Capacity() > max {
			max = pe.Capacity()
		}
	}
	return max
}

func (s *VmSchedulerSpaceShared) MigrationOverhead() float64 { return s.migrationOverhead }

// FreePes returns the PEs not currently assigned to any VM.
func (s *VmSchedulerSpaceShared) FreePes() []*Pe { return s.freePes }

// VmSchedulerTimeShared lets VMs share PE capacity proportionally. The
// per-VM request map is the source of truth; the granted share table is
// rebuilt from it after every change, so a failed request leaves the
// accounting exactly as before the call.
type VmSchedulerTimeShared struct {
	pes               []*Pe
	totalCapacity     float64
	peCapacity        float64 // capacity of a single PE; requests above this fail
	requested         map[*Vm][]float64
	order             []*Vm
	mipsMap           map[*Vm][]float64
	migrationOverhead float64
}

func NewVmSchedulerTimeShared(pes []*Pe, migrationOverhead float64) *VmSchedulerTimeShared {
	s := &VmSchedulerTimeShared{
		pes:               pes,
		requested:         make(map[*Vm][]float64),
		mipsMap:           make(map[*Vm][]float64),
		migrationOverhead: migrationOverhead,
	}
	for _, pe := range pes {
		if pe.Status() == PeFailed {
			continue
		}
		s.totalCapacity += pe.Capacity()
		if pe.Capacity() > s.peCapacity {
			s.peCapacity = pe.Capacity()
		}
	}
	return s
}

func (s *VmSchedulerTimeShared) Allocate(vm *Vm, requestedMips []float64) bool {
	if len(requestedMips) > vm.NumberOfPes() {
		return false
	}
	// A single virtual PE can never exceed a physical PE.
	for _, mips := range requestedMips {
		if mips > s.peCapacity {
			logrus.Debugf("VmSchedulerTimeShared: VM %d requests %.1f MIPS per PE, physical PE holds %.1f",
				vm.ID(), mips, s.peCapacity)
			return false
		}
	}
	if _, ok := s.requested[vm]; !ok {
		s.order = append(s.order, vm)
	}
	s.requested[vm] = append([]float64(nil), requestedMips...)
	s.rebuildShares()
	return true
}

// rebuildShares recomputes every VM's granted share from the request
// map. Under oversubscription all shares shrink by the same factor.
func (s *VmSchedulerTimeShared) rebuildShares() {
	var totalRequested float64
	for _, req := range s.requested {
		for _, mips := range req {
			totalRequested += mips
		}
	}
	scale := 1.0
	if totalRequested > s.totalCapacity && totalRequested > 0 {
		scale = s.totalCapacity / totalRequested
	}
	s.mipsMap = make(map[*Vm][]float64, len(s.requested))
	for _, vm := range s.order {
		req, ok := s.requested[vm]
		if !ok {
			continue
		}
		share := make([]float64, len(req))
		for i, mips := range req {
			share[i] = mips * scale
		}
		s.mipsMap[vm] = share
	}
}

func (s *VmSchedulerTimeShared) Deallocate(vm *Vm) {
	if _, ok := s.requested[vm]; !ok {
		return
	}
	delete(s.requested, vm)
	kept := s.order[:0]
	for _, v := range s.order {
		if v != vm {
			kept = append(kept, v)
		}
	}
	s.order = kept
	s.rebuildShares()
}

func (s *VmSchedulerTimeShared) DeallocateAll() {
	s.requested = make(map[*Vm][]float64)
	s.order = nil
	s.rebuildShares()
}

func (s *VmSchedulerTimeShared) IsSuitable(vm *Vm, requestedMips []float64) bool {
	if len(requestedMips) > vm.NumberOfPes() {
		return false
	}
	for _, mips := range requestedMips {
		if mips > s.peCapacity {
			return false
		}
	}
	return true
}

func (s *VmSchedulerTimeShared) AllocatedMipsFor(vm *Vm) []float64 {
	return s.mipsMap[vm]
}

func (s *VmSchedulerTimeShared) TotalAvailableMips() float64 {
	var granted float64
	for _, share := range s.mipsMap {
		for _, mips := range share {
			granted += mips
		}
	}
	if granted > s.totalCapacity {
		return 0
	}
	return s.totalCapacity - granted
}

func (s *VmSchedulerTimeShared) MaxAvailableMips() float64 {
	avail := s.TotalAvailableMips()
	if avail > s.peCapacity {
		return s.peCapacity
	}
	return avail
}

func (s *VmSchedulerTimeShared) MigrationOverhead() float64 { return s.migrationOverhead }

// VmSchedulerNull answers every query with zero and accepts every
// mutating call as a no-op.
type VmSchedulerNull struct{}

func (VmSchedulerNull) Allocate(*Vm, []float64) bool      { return false }
func (VmSchedulerNull) Deallocate(*Vm)                    {}
func (VmSchedulerNull) DeallocateAll()                    {}
func (VmSchedulerNull) IsSuitable(*Vm, []float64) bool    { return false }
func (VmSchedulerNull) AllocatedMipsFor(*Vm) []float64    { return nil }
func (VmSchedulerNull) TotalAvailableMips() float64       { return 0 }
func (VmSchedulerNull) MaxAvailableMips() float64         { return 0 }
func (VmSchedulerNull) MigrationOverhead() float64        { return 0 }
