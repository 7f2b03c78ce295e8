package sim

import "testing"

func newTestVm() *Vm {
	vm := NewVm(0, 1000, 2, NewCloudletSchedulerSpaceShared())
	vm.SetRam(1024)
	vm.SetBw(1000)
	vm.SetStorage(2048)
	return vm
}

func TestVmNull_AnswersNeutrallyAndIgnoresMutations(t *testing.T) {
	if got := VmNull.ID(); got != NotAssigned {
		t.Errorf("ID: got %d, want %d", got, NotAssigned)
	}
	if got := VmNull.Mips(); got != 0 {
		t.Errorf("Mips: got %.1f, want 0", got)
	}
	if got := VmNull.NumberOfPes(); got != 0 {
		t.Errorf("NumberOfPes: got %d, want 0", got)
	}
	if VmNull.IsCreated() || VmNull.HasFailed() || VmNull.IsInMigration() {
		t.Error("lifecycle flags: got set, want all clear")
	}
	if got := VmNull.Host(); got != HostNull {
		t.Errorf("Host: got %v, want HostNull", got)
	}
	if got := VmNull.Broker(); got != BrokerNull {
		t.Errorf("Broker: got %v, want BrokerNull", got)
	}

	// Mutations are no-ops.
	VmNull.SetRam(4096)
	if got := VmNull.Ram().Capacity(); got != 0 {
		t.Errorf("Ram capacity after SetRam: got %.1f, want 0", got)
	}
	if VmNull.SetNumberOfPes(4) {
		t.Error("SetNumberOfPes: got true, want false")
	}
	VmNull.SetInMigration(true)
	if VmNull.IsInMigration() {
		t.Error("IsInMigration after set: got true, want false")
	}
	if got := VmNull.UpdateProcessing(1.0, []float64{1000}); got != 0 {
		t.Errorf("UpdateProcessing: got %v, want 0", got)
	}
}

func TestVm_ListenerRegistration_IdentityBased(t *testing.T) {
	vm := newTestVm()
	fired := 0
	listener := VmListenerFunc(func(VmEventInfo) { fired++ })
	vm.AddOnCreationFailureListener(listener)

	// Removing an identical-behavior but distinct listener fails.
	other := VmListenerFunc(func(VmEventInfo) { fired++ })
	if vm.RemoveOnCreationFailureListener(other) {
		t.Error("Remove of unregistered listener: got true, want false")
	}
	if vm.RemoveOnCreationFailureListener(nil) {
		t.Error("Remove of nil listener: got true, want false")
	}

	vm.NotifyCreationFailure(1.0)
	if fired != 1 {
		t.Errorf("listener fired %d times, want 1", fired)
	}

	if !vm.RemoveOnCreationFailureListener(listener) {
		t.Error("Remove of registered listener: got false, want true")
	}
	vm.NotifyCreationFailure(2.0)
	if fired != 1 {
		t.Errorf("listener fired %d times after removal, want 1", fired)
	}
}

func TestVm_ListenerDispatch_SnapshotSemantics(t *testing.T) {
	// GIVEN a listener that removes itself during dispatch
	vm := newTestVm()
	order := []int{}
	var selfRemoving VmListener
	selfRemoving = VmListenerFunc(func(VmEventInfo) {
		order = append(order, 1)
		vm.RemoveOnHostAllocationListener(selfRemoving)
	})
	second := VmListenerFunc(func(VmEventInfo) { order = append(order, 2) })
	vm.AddOnHostAllocationListener(selfRemoving)
	vm.AddOnHostAllocationListener(second)

	// WHEN the event fires
	host := NewHostSimple(0, []*Pe{NewPe(0, 2000), NewPe(1, 2000)}, 4096, 4000, 8192, "", 1.0, 0)
	vm.AssignToHost(host, 0)

	// THEN both listeners of the snapshot ran in registration order
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("dispatch order: got %v, want [1 2]", order)
	}
	// AND only the survivor fires next time
	vm.LeaveHost(1.0)
	vm.AssignToHost(host, 2.0)
	if len(order) != 3 || order[2] != 2 {
		t.Errorf("second dispatch: got %v, want [1 2 2]", order)
	}
}

func TestVm_AssignToHost_FiresAllocationListenerWithHost(t *testing.T) {
	vm := newTestVm()
	var got VmEventInfo
	vm.AddOnHostAllocationListener(VmListenerFunc(func(info VmEventInfo) { got = info }))

	host := NewHostSimple(3, []*Pe{NewPe(0, 2000), NewPe(1, 2000)}, 4096, 4000, 8192, "", 1.0, 0)
	vm.AssignToHost(host, 7.5)

	if !vm.IsCreated() {
		t.Error("IsCreated after assignment: got false, want true")
	}
	if got.Time != 7.5 || got.Vm != vm || got.Host != Host(host) {
		t.Errorf("event info: got %+v", got)
	}
}

func TestVm_AddVerticalScaling_DuplicateClass_Rejected(t *testing.T) {
	vm := newTestVm()
	first, _ := NewVerticalVmScaling(ResourceRam, 0.2, nil, nil)
	second, _ := NewVerticalVmScaling(ResourceRam, 0.5, nil, nil)

	if err := vm.AddVerticalScaling(first); err != nil {
		t.Fatalf("first AddVerticalScaling: %v", err)
	}
	if err := vm.AddVerticalScaling(second); err == nil {
		t.Error("duplicate class AddVerticalScaling: got nil error, want error")
	}
}

func TestVm_AddVerticalScaling_BoundController_Rejected(t *testing.T) {
	vm1 := newTestVm()
	vm2 := newTestVm()
	vs, _ := NewVerticalVmScaling(ResourceRam, 0.2, nil, nil)

	if err := vm1.AddVerticalScaling(vs); err != nil {
		t.Fatalf("first attach: %v", err)
	}
	if err := vm2.AddVerticalScaling(vs); err == nil {
		t.Error("attach of bound controller to second vm: got nil error, want error")
	}
}

func TestVm_UpdateProcessing_RefreshesObservedUsage(t *testing.T) {
	// GIVEN a hosted VM with one full-utilization cloudlet
	vm := newTestVm()
	vm.Scheduler().SetCurrentMipsShare([]float64{1000, 1000})
	vm.Scheduler().Submit(NewCloudlet(0, 10000, 1), 0, 0)

	vm.UpdateProcessing(1.0, []float64{1000, 1000})

	if got := vm.CpuPercentUsage(); got != 1.0 {
		t.Errorf("CpuPercentUsage: got %.2f, want 1.0", got)
	}
	if got := vm.Ram().Allocated(); got != 1024 {
		t.Errorf("Ram allocated: got %.1f, want 1024", got)
	}
	if got := vm.TotalCpuMipsUsage(); got != 2000 {
		t.Errorf("TotalCpuMipsUsage: got %.1f, want 2000", got)
	}
}

func TestVm_RequestedMipsShare_RepeatsMipsPerPe(t *testing.T) {
	vm := NewVm(0, 500, 3, NewCloudletSchedulerSpaceShared())
	share := vm.RequestedMipsShare()
	if len(share) != 3 {
		t.Fatalf("share length: got %d, want 3", len(share))
	}
	for i, mips := range share {
		if mips != 500 {
			t.Errorf("share[%d]: got %.1f, want 500", i, mips)
		}
	}
}

func TestResource_SetCapacity_BelowAllocated_Rejected(t *testing.T) {
	r := NewResource("ram", 1024)
	if !r.Allocate(512) {
		t.Fatal("Allocate failed")
	}

	if r.SetCapacity(256) {
		t.Error("SetCapacity below allocated: got true, want false")
	}
	if got := r.Capacity(); got != 1024 {
		t.Errorf("Capacity after rejected shrink: got %.1f, want 1024", got)
	}
	if !r.SetCapacity(512) {
		t.Error("SetCapacity to allocated amount: got false, want true")
	}
}

func TestResource_Allocate_BeyondCapacity_Rejected(t *testing.T) {
	r := NewResource("bw", 1000)
	r.Allocate(800)

	if r.Allocate(300) {
		t.Error("Allocate beyond capacity: got true, want false")
	}
	if got := r.Allocated(); got != 800 {
		t.Errorf("Allocated after rejected request: got %.1f, want 800", got)
	}
}
