package sim

import "testing"

func poissonSim(horizon float64) (*Simulation, []*Vm) {
	s := newSimWithHost(horizon, 4, 2000)
	vms := []*Vm{
		NewVm(0, 1000, 1, NewCloudletSchedulerSpaceShared()),
		NewVm(1, 1000, 1, NewCloudletSchedulerSpaceShared()),
	}
	return s, vms
}

func TestGeneratePoissonArrivals_SchedulesWithinHorizon(t *testing.T) {
	spec := &PoissonSpec{Rate: 2.0, Count: 20, LengthMean: 5000, Pes: 1, Seed: 42}
	s, vms := poissonSim(100)

	GeneratePoissonArrivals(s, vms, spec)

	if !s.HasPendingEvents() {
		t.Fatal("no arrivals scheduled")
	}
	if got := len(s.EventQueue); got > spec.Count {
		t.Errorf("scheduled events: got %d, want at most %d", got, spec.Count)
	}
	for _, entry := range s.EventQueue {
		ev, ok := entry.event.(*CloudletSubmitEvent)
		if !ok {
			t.Fatalf("unexpected event type %T", entry.event)
		}
		if ev.Timestamp() > s.Horizon {
			t.Errorf("arrival at t=%.2f past horizon %.2f", ev.Timestamp(), s.Horizon)
		}
		if ev.Cloudlet.Length() < 1 {
			t.Errorf("cloudlet length %.2f below floor", ev.Cloudlet.Length())
		}
	}
}

func TestGeneratePoissonArrivals_Deterministic(t *testing.T) {
	spec := &PoissonSpec{Rate: 1.0, Count: 10, LengthMean: 5000, Pes: 1, Seed: 7}
	s1, vms1 := poissonSim(100)
	s2, vms2 := poissonSim(100)

	GeneratePoissonArrivals(s1, vms1, spec)
	GeneratePoissonArrivals(s2, vms2, spec)

	if len(s1.EventQueue) != len(s2.EventQueue) {
		t.Fatalf("event counts differ: %d vs %d", len(s1.EventQueue), len(s2.EventQueue))
	}
	times1 := map[float64]float64{}
	for _, entry := range s1.EventQueue {
		ev := entry.event.(*CloudletSubmitEvent)
		times1[ev.Timestamp()] = ev.Cloudlet.Length()
	}
	for _, entry := range s2.EventQueue {
		ev := entry.event.(*CloudletSubmitEvent)
		length, ok := times1[ev.Timestamp()]
		if !ok || length != ev.Cloudlet.Length() {
			t.Errorf("arrival at t=%.4f differs between runs", ev.Timestamp())
		}
	}
}

func TestGeneratePoissonArrivals_NoVms_IsNoOp(t *testing.T) {
	spec := &PoissonSpec{Rate: 1.0, Count: 10, LengthMean: 5000, Pes: 1, Seed: 7}
	s := newSimWithHost(100, 2, 2000)

	GeneratePoissonArrivals(s, nil, spec)

	if s.HasPendingEvents() {
		t.Error("events scheduled with no target VMs")
	}
}
