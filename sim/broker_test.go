package sim

import "testing"

func newSimWithHost(horizon float64, peCount int, mips float64) *Simulation {
	s := NewSimulation(horizon)
	s.AddHost(newTestHost(0, peCount, mips))
	return s
}

func TestSimBroker_SubmitVm_FirstFitPlacement(t *testing.T) {
	// GIVEN two hosts where only the second fits the VM
	s := NewSimulation(100)
	s.AddHost(NewHostSimple(0, []*Pe{NewPe(0, 500)}, 8192, 10000, 100000, "", 1.0, 0))
	s.AddHost(newTestHost(1, 2, 2000))
	vm := newTestVm()

	if !s.Broker.SubmitVm(vm, 0) {
		t.Fatal("SubmitVm: got false, want true")
	}
	if got := vm.Host().ID(); got != 1 {
		t.Errorf("placed on host %d, want 1", got)
	}
}

func TestSimBroker_SubmitVm_NoFit_CountsFailure(t *testing.T) {
	s := newSimWithHost(100, 1, 500)
	vm := newTestVm() // needs 2×1000 MIPS

	if s.Broker.SubmitVm(vm, 0) {
		t.Fatal("SubmitVm: got true, want false")
	}
	if !vm.HasFailed() {
		t.Error("HasFailed: got false, want true")
	}
	if got := s.Broker.failedVmCreations; got != 1 {
		t.Errorf("failedVmCreations: got %d, want 1", got)
	}
}

func TestSimBroker_SubmitVm_IdLess_AdoptedWithBrokerIdentity(t *testing.T) {
	// GIVEN an id-less VM, as horizontal scaling suppliers build them
	s := newSimWithHost(100, 4, 2000)
	clone := NewVm(NotAssigned, 1000, 1, NewCloudletSchedulerSpaceShared())

	if !s.Broker.SubmitVm(clone, 0) {
		t.Fatal("SubmitVm: got false, want true")
	}
	placed := s.Broker.Vms()[0]
	if placed.ID() < 0 {
		t.Errorf("adopted VM id: got %d, want broker-assigned", placed.ID())
	}
	if got := s.Broker.horizontalRequests; got != 1 {
		t.Errorf("horizontalRequests: got %d, want 1", got)
	}
}

func TestSimBroker_SubmitCloudlet_StampsCostAndSite(t *testing.T) {
	// GIVEN a hosted VM
	s := newSimWithHost(100, 2, 2000)
	vm := NewVm(0, 1000, 1, NewCloudletSchedulerSpaceShared())
	if !s.Broker.SubmitVm(vm, 0) {
		t.Fatal("setup VM submission failed")
	}
	cl := NewCloudlet(s.Broker.NextCloudletID(), 10000, 1)
	cl.SetFileSizes(300, 200)

	// WHEN it is submitted at t=2
	delay := s.Broker.SubmitCloudlet(cl, vm, 0, 2.0)

	// THEN the cloudlet carries site, submission time, and transfer cost
	if delay != 10.0 {
		t.Errorf("delay: got %.2f, want 10.0", delay)
	}
	if got := cl.VmID(); got != vm.ID() {
		t.Errorf("VmID: got %d, want %d", got, vm.ID())
	}
	if got := cl.SubmissionTime(); got != 2.0 {
		t.Errorf("SubmissionTime: got %.2f, want 2.0", got)
	}
	rec, ok := cl.RecordForSite(0)
	if !ok {
		t.Fatal("RecordForSite(0): not found")
	}
	if rec.CostPerSec != 3.0 {
		t.Errorf("CostPerSec: got %.2f, want 3.0", rec.CostPerSec)
	}
	want := 0.005*300 + 0.005*200
	if got := cl.Cost(); got != want {
		t.Errorf("Cost: got %.4f, want %.4f", got, want)
	}
	// AND a wake-up event was scheduled for the completion
	if !s.HasPendingEvents() {
		t.Error("no processing update scheduled for the completion")
	}
}

func TestSimBroker_SubmitCloudlet_Resubmission_NotDoubleTracked(t *testing.T) {
	s := newSimWithHost(100, 4, 2000)
	vm1 := NewVm(0, 1000, 1, NewCloudletSchedulerSpaceShared())
	vm2 := NewVm(1, 1000, 1, NewCloudletSchedulerSpaceShared())
	s.Broker.SubmitVm(vm1, 0)
	s.Broker.SubmitVm(vm2, 0)
	cl := NewCloudlet(s.Broker.NextCloudletID(), 10000, 1)

	s.Broker.SubmitCloudlet(cl, vm1, 0, 0)
	migrated := vm1.Scheduler().Migrate(1.0)
	s.Broker.SubmitCloudlet(migrated, vm2, 0, 1.0)

	if got := len(s.Broker.Cloudlets()); got != 1 {
		t.Errorf("tracked cloudlets: got %d, want 1", got)
	}
	if got := len(migrated.Records()); got != 2 {
		t.Errorf("execution records: got %d, want 2", got)
	}
}

func TestSimBroker_RequestResourceScaling_RamGrowth(t *testing.T) {
	s := newSimWithHost(100, 2, 2000)
	vm := newTestVm()
	s.Broker.SubmitVm(vm, 0)

	ok := s.Broker.RequestResourceScaling(VerticalScaleRequest{
		Vm: vm, Resource: ResourceRam, Amount: 512, Time: 1.0,
	})

	if !ok {
		t.Fatal("RequestResourceScaling: got false, want true")
	}
	if got := vm.Ram().Capacity(); got != 1536 {
		t.Errorf("Ram capacity: got %.1f, want 1536", got)
	}
	if got := s.Broker.verticalUpRequests; got != 1 {
		t.Errorf("verticalUpRequests: got %d, want 1", got)
	}
}

func TestSimBroker_RequestResourceScaling_RamShrinkBelowDemand_Rejected(t *testing.T) {
	s := newSimWithHost(100, 2, 2000)
	vm := newTestVm()
	s.Broker.SubmitVm(vm, 0)
	vm.Ram().Allocate(900)

	ok := s.Broker.RequestResourceScaling(VerticalScaleRequest{
		Vm: vm, Resource: ResourceRam, Amount: -512, Time: 1.0,
	})

	if ok {
		t.Fatal("RequestResourceScaling: got true, want false")
	}
	if got := vm.Ram().Capacity(); got != 1024 {
		t.Errorf("Ram capacity after rejected shrink: got %.1f, want 1024", got)
	}
	if got := s.Broker.verticalDownRequests; got != 1 {
		t.Errorf("verticalDownRequests: got %d, want 1", got)
	}
}

func TestSimBroker_ScaleVmPes_GrowsShareWhenHostFits(t *testing.T) {
	// GIVEN a VM holding 1 of 4 PEs
	s := newSimWithHost(100, 4, 2000)
	vm := NewVm(0, 1000, 1, NewCloudletSchedulerSpaceShared())
	s.Broker.SubmitVm(vm, 0)

	ok := s.Broker.RequestResourceScaling(VerticalScaleRequest{
		Vm: vm, Resource: ResourcePes, Amount: 1, Time: 1.0,
	})

	if !ok {
		t.Fatal("PE scaling: got false, want true")
	}
	if got := vm.NumberOfPes(); got != 2 {
		t.Errorf("NumberOfPes: got %d, want 2", got)
	}
	if got := len(vm.Scheduler().CurrentMipsShare()); got != 2 {
		t.Errorf("CurrentMipsShare length: got %d, want 2", got)
	}
}

func TestSimBroker_ScaleVmPes_FractionalAmount_RoundsAwayFromZero(t *testing.T) {
	// GIVEN a single-PE VM whose controller asks for half a PE more
	s := newSimWithHost(100, 4, 2000)
	vm := NewVm(0, 1000, 1, NewCloudletSchedulerSpaceShared())
	s.Broker.SubmitVm(vm, 0)

	ok := s.Broker.RequestResourceScaling(VerticalScaleRequest{
		Vm: vm, Resource: ResourcePes, Amount: 0.5, Time: 1.0,
	})

	// THEN the request grows the VM by one whole PE
	if !ok {
		t.Fatal("PE scaling: got false, want true")
	}
	if got := vm.NumberOfPes(); got != 2 {
		t.Errorf("NumberOfPes: got %d, want 2", got)
	}
	if got := len(vm.Scheduler().CurrentMipsShare()); got != 2 {
		t.Errorf("CurrentMipsShare length: got %d, want 2", got)
	}
}

func TestSimBroker_ScaleVmPes_NoCapacity_RestoresOldShare(t *testing.T) {
	// GIVEN a host whose two PEs are both taken
	s := newSimWithHost(100, 2, 2000)
	vm := NewVm(0, 1000, 2, NewCloudletSchedulerSpaceShared())
	s.Broker.SubmitVm(vm, 0)

	ok := s.Broker.RequestResourceScaling(VerticalScaleRequest{
		Vm: vm, Resource: ResourcePes, Amount: 1, Time: 1.0,
	})

	if ok {
		t.Fatal("PE scaling beyond host capacity: got true, want false")
	}
	if got := vm.NumberOfPes(); got != 2 {
		t.Errorf("NumberOfPes after rejected scaling: got %d, want 2", got)
	}
	share := vm.Scheduler().CurrentMipsShare()
	if len(share) != 2 || share[0] != 1000 {
		t.Errorf("restored share: got %v, want [1000 1000]", share)
	}
}
