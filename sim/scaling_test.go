package sim

import "testing"

// recordingBroker captures scale requests without applying them.
type recordingBroker struct {
	vertical  []VerticalScaleRequest
	submitted []*Vm
}

func (b *recordingBroker) ID() int { return 0 }
func (b *recordingBroker) SubmitVm(vm *Vm, now float64) bool {
	b.submitted = append(b.submitted, vm)
	return true
}
func (b *recordingBroker) SubmitCloudlet(*Cloudlet, *Vm, float64, float64) float64 { return 0 }
func (b *recordingBroker) RequestResourceScaling(req VerticalScaleRequest) bool {
	b.vertical = append(b.vertical, req)
	return true
}

func TestNewVerticalVmScaling_InvalidConfiguration_Errors(t *testing.T) {
	if _, err := NewVerticalVmScaling("disk", 0.5, nil, nil); err == nil {
		t.Error("invalid resource class: got nil error, want error")
	}
	if _, err := NewVerticalVmScaling(ResourceRam, 1.5, nil, nil); err == nil {
		t.Error("scaling factor above 1: got nil error, want error")
	}
	if _, err := NewVerticalVmScaling(ResourceRam, -0.1, nil, nil); err == nil {
		t.Error("negative scaling factor: got nil error, want error")
	}
}

func TestVerticalVmScaling_Overload_RequestsGrowth(t *testing.T) {
	// GIVEN a RAM controller with factor 0.5 on a 1024 MB VM
	broker := &recordingBroker{}
	vm := newTestVm()
	vm.SetBroker(broker)
	vs, err := NewVerticalVmScaling(ResourceRam, 0.5,
		func(*Vm) bool { return true }, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := vm.AddVerticalScaling(vs); err != nil {
		t.Fatal(err)
	}

	// WHEN the predicate matches
	if !vs.RequestScalingIfPredicateMatch(3.0) {
		t.Fatal("RequestScalingIfPredicateMatch: got false, want true")
	}

	// THEN a +512 request reaches the broker
	if len(broker.vertical) != 1 {
		t.Fatalf("requests: got %d, want 1", len(broker.vertical))
	}
	req := broker.vertical[0]
	if req.Resource != ResourceRam || req.Amount != 512 || req.Time != 3.0 || req.Vm != vm {
		t.Errorf("request: got %+v", req)
	}
}

func TestVerticalVmScaling_Underload_RequestsShrink(t *testing.T) {
	broker := &recordingBroker{}
	vm := newTestVm()
	vm.SetBroker(broker)
	vs, _ := NewVerticalVmScaling(ResourceBandwidth, 0.1,
		nil, func(*Vm) bool { return true })
	vm.AddVerticalScaling(vs)

	if !vs.RequestScalingIfPredicateMatch(1.0) {
		t.Fatal("RequestScalingIfPredicateMatch: got false, want true")
	}
	if got := broker.vertical[0].Amount; got != -100 {
		t.Errorf("Amount: got %.1f, want -100", got)
	}
}

func TestVerticalVmScaling_NoPredicateMatch_NoRequest(t *testing.T) {
	broker := &recordingBroker{}
	vm := newTestVm()
	vm.SetBroker(broker)
	vs, _ := NewVerticalVmScaling(ResourceRam, 0.5,
		func(*Vm) bool { return false }, func(*Vm) bool { return false })
	vm.AddVerticalScaling(vs)

	if vs.RequestScalingIfPredicateMatch(1.0) {
		t.Error("RequestScalingIfPredicateMatch: got true, want false")
	}
	if len(broker.vertical) != 0 {
		t.Errorf("requests: got %d, want 0", len(broker.vertical))
	}
}

func TestVerticalVmScaling_Unbound_NeverRequests(t *testing.T) {
	vs, _ := NewVerticalVmScaling(ResourceRam, 0.5, func(*Vm) bool { return true }, nil)

	if vs.RequestScalingIfPredicateMatch(1.0) {
		t.Error("unbound controller matched: got true, want false")
	}
	if got := vs.Vm(); got != VmNull {
		t.Errorf("Vm on unbound controller: got %v, want VmNull", got)
	}
}

func TestNewHorizontalVmScaling_NilSupplier_Errors(t *testing.T) {
	if _, err := NewHorizontalVmScaling(nil, func(*Vm) bool { return true }); err == nil {
		t.Error("nil supplier: got nil error, want error")
	}
}

func TestHorizontalVmScaling_Overload_SubmitsSuppliedVm(t *testing.T) {
	// GIVEN a controller whose supplier builds id-less clones
	broker := &recordingBroker{}
	vm := newTestVm()
	vm.SetBroker(broker)
	hs, err := NewHorizontalVmScaling(
		func() *Vm { return NewVm(NotAssigned, 1000, 2, NewCloudletSchedulerSpaceShared()) },
		func(*Vm) bool { return true })
	if err != nil {
		t.Fatal(err)
	}
	if err := vm.SetHorizontalScaling(hs); err != nil {
		t.Fatal(err)
	}

	// WHEN the overload predicate matches
	if !hs.RequestScalingIfPredicateMatch(5.0) {
		t.Fatal("RequestScalingIfPredicateMatch: got false, want true")
	}

	// THEN a fresh VM reached the broker
	if len(broker.submitted) != 1 {
		t.Fatalf("submitted VMs: got %d, want 1", len(broker.submitted))
	}
	if got := broker.submitted[0].ID(); got != NotAssigned {
		t.Errorf("supplied VM id: got %d, want %d", got, NotAssigned)
	}
}

func TestHorizontalVmScaling_NotOverloaded_NoSubmission(t *testing.T) {
	broker := &recordingBroker{}
	vm := newTestVm()
	vm.SetBroker(broker)
	hs, _ := NewHorizontalVmScaling(
		func() *Vm { return NewVm(NotAssigned, 1000, 1, NewCloudletSchedulerSpaceShared()) },
		func(*Vm) bool { return false })
	vm.SetHorizontalScaling(hs)

	if hs.RequestScalingIfPredicateMatch(1.0) {
		t.Error("RequestScalingIfPredicateMatch: got true, want false")
	}
	if len(broker.submitted) != 0 {
		t.Errorf("submitted VMs: got %d, want 0", len(broker.submitted))
	}
}

func TestHorizontalVmScaling_Rebind_Rejected(t *testing.T) {
	vm1 := newTestVm()
	vm2 := newTestVm()
	hs, _ := NewHorizontalVmScaling(
		func() *Vm { return NewVm(NotAssigned, 1000, 1, NewCloudletSchedulerSpaceShared()) },
		func(*Vm) bool { return true })

	if err := vm1.SetHorizontalScaling(hs); err != nil {
		t.Fatalf("first bind: %v", err)
	}
	if err := vm2.SetHorizontalScaling(hs); err == nil {
		t.Error("rebind to second vm: got nil error, want error")
	}
}

func TestScalingNullObjects_NeverMatch(t *testing.T) {
	if VerticalVmScalingNull.RequestScalingIfPredicateMatch(1.0) {
		t.Error("VerticalVmScalingNull matched: got true, want false")
	}
	if HorizontalVmScalingNull.RequestScalingIfPredicateMatch(1.0) {
		t.Error("HorizontalVmScalingNull matched: got true, want false")
	}
}
