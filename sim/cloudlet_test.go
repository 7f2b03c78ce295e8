package sim

import "testing"

func TestCloudlet_SetStatus_SameStatus_Rejected(t *testing.T) {
	// GIVEN a freshly created cloudlet
	cl := NewCloudlet(0, 10000, 1)

	// WHEN transitioning to the status it already holds
	ok := cl.SetStatus(StatusCreated, 0)

	// THEN the transition is rejected
	if ok {
		t.Error("SetStatus to current status: got true, want false")
	}
}

func TestCloudlet_SetStatus_Success_StampsFinishTime(t *testing.T) {
	cl := NewCloudlet(0, 10000, 1)
	cl.AssignToSite(0, 3.0)

	if !cl.SetStatus(StatusSuccess, 42.5) {
		t.Fatal("SetStatus to SUCCESS failed")
	}
	if got := cl.FinishTime(); got != 42.5 {
		t.Errorf("FinishTime: got %.2f, want 42.5", got)
	}
}

func TestCloudlet_IsFinished_Unassigned_AlwaysFalse(t *testing.T) {
	// GIVEN a cloudlet that never reached a site
	cl := NewCloudlet(0, 10000, 1)

	if cl.IsFinished() {
		t.Error("IsFinished before site assignment: got true, want false")
	}
}

func TestCloudlet_FinishedSoFar_ClampedToLength(t *testing.T) {
	// GIVEN an assigned cloudlet of length 10000
	cl := NewCloudlet(0, 10000, 1)
	cl.AssignToSite(0, 3.0)

	// WHEN an overshoot is recorded
	cl.SetFinishedSoFar(15000)

	// THEN the reported progress is clamped to the length
	if got := cl.FinishedSoFar(); got != 10000 {
		t.Errorf("FinishedSoFar: got %.1f, want 10000", got)
	}
	if !cl.IsFinished() {
		t.Error("IsFinished with full progress: got false, want true")
	}
}

func TestCloudlet_RecordMutators_Unassigned_ReturnFalse(t *testing.T) {
	cl := NewCloudlet(0, 10000, 1)

	if cl.SetSubmissionTime(1.0) {
		t.Error("SetSubmissionTime unassigned: got true, want false")
	}
	if cl.SetExecParam(1.0, 1.0) {
		t.Error("SetExecParam unassigned: got true, want false")
	}
	if cl.SetFinishedSoFar(100) {
		t.Error("SetFinishedSoFar unassigned: got true, want false")
	}
}

func TestCloudlet_AssignToSite_AppendsHistory(t *testing.T) {
	// GIVEN a cloudlet migrating through two sites
	cl := NewCloudlet(0, 10000, 1)
	cl.AssignToSite(3, 3.0)
	cl.SetSubmissionTime(1.0)
	cl.SetFinishedSoFar(4000)
	cl.AssignToSite(7, 5.0)
	cl.SetSubmissionTime(6.0)

	// THEN both records survive and queries target the latest one
	if got := len(cl.Records()); got != 2 {
		t.Fatalf("Records: got %d, want 2", got)
	}
	if got := cl.SubmissionTime(); got != 6.0 {
		t.Errorf("SubmissionTime after second assignment: got %.1f, want 6.0", got)
	}
	rec, ok := cl.RecordForSite(3)
	if !ok {
		t.Fatal("RecordForSite(3): not found")
	}
	if rec.FinishedSoFar != 4000 {
		t.Errorf("first site FinishedSoFar: got %.1f, want 4000", rec.FinishedSoFar)
	}
	if _, ok := cl.RecordForSite(99); ok {
		t.Error("RecordForSite(99): got ok, want missing")
	}
}

func TestCloudlet_WaitingTime_IsStartMinusSubmission(t *testing.T) {
	cl := NewCloudlet(0, 10000, 1)
	cl.AssignToSite(0, 3.0)
	cl.SetSubmissionTime(2.0)
	cl.SetExecStartTime(5.5)

	if got := cl.WaitingTime(); got != 3.5 {
		t.Errorf("WaitingTime: got %.2f, want 3.5", got)
	}
}

func TestCloudlet_Cost_IsBwChargePlusOutputTransfer(t *testing.T) {
	// GIVEN a cloudlet charged 0.005 per byte with 300 in, 200 out
	cl := NewCloudlet(0, 10000, 1)
	cl.SetFileSizes(300, 200)
	cl.SetCostPerBw(0.005)
	cl.AddAccumulatedBwCost(0.005 * 300)

	want := 0.005*300 + 0.005*200
	if got := cl.Cost(); got != want {
		t.Errorf("Cost: got %.4f, want %.4f", got, want)
	}
}

func TestCloudletNull_IgnoresMutations(t *testing.T) {
	if CloudletNull.SetStatus(StatusInExec, 1.0) {
		t.Error("CloudletNull.SetStatus: got true, want false")
	}
	if CloudletNull.SetLength(100) {
		t.Error("CloudletNull.SetLength: got true, want false")
	}
	CloudletNull.AssignToSite(1, 3.0)
	if got := len(CloudletNull.Records()); got != 0 {
		t.Errorf("CloudletNull.Records after AssignToSite: got %d, want 0", got)
	}
	if CloudletNull.IsFinished() {
		t.Error("CloudletNull.IsFinished: got true, want false")
	}
}
