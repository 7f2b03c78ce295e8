// Per-VM cloudlet schedulers. A VM's scheduler distributes the MIPS
// share granted by the host-level scheduler among its resident
// cloudlets. The space-shared policy gives each executing cloudlet
// exclusive PE slots; cloudlets that do not fit wait in arrival order.

package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ResCloudlet pairs a resident cloudlet with the scheduler-private
// bookkeeping for it: assigned PE slots, accumulated finished work, and
// the arrival time at this scheduler. A record lives in exactly one of
// the executing, waiting, or paused collections at any time.
type ResCloudlet struct {
	cloudlet      *Cloudlet
	arrivalTime   float64
	finishedSoFar float64
	peSlots       []int
}

func newResCloudlet(cl *Cloudlet, now float64) *ResCloudlet {
	return &ResCloudlet{cloudlet: cl, arrivalTime: now}
}

func (rcl *ResCloudlet) Cloudlet() *Cloudlet { return rcl.cloudlet }
func (rcl *ResCloudlet) NumberOfPes() int    { return rcl.cloudlet.NumberOfPes() }

// RemainingLength is the per-PE work still to execute.
func (rcl *ResCloudlet) RemainingLength() float64 {
	remaining := rcl.cloudlet.Length() - rcl.finishedSoFar
	if remaining < 0 {
		return 0
	}
	return remaining
}

// updateFinishedSoFar advances the record's progress and mirrors it
// into the cloudlet's current execution record.
func (rcl *ResCloudlet) updateFinishedSoFar(miLength float64) {
	rcl.finishedSoFar += miLength
	rcl.cloudlet.SetFinishedSoFar(rcl.finishedSoFar)
}

// assignPeSlots gives the record n PE slot indices starting at base.
func (rcl *ResCloudlet) assignPeSlots(base int) {
	rcl.peSlots = make([]int, 0, rcl.NumberOfPes())
	for i := 0; i < rcl.NumberOfPes(); i++ {
		rcl.peSlots = append(rcl.peSlots, base+i)
	}
}

func (rcl *ResCloudlet) releasePeSlots() {
	rcl.peSlots = nil
}

// CloudletScheduler distributes a VM's granted MIPS share among its
// resident cloudlets. Implementations are single-threaded; all calls
// happen synchronously inside one step of the event loop.
type CloudletScheduler interface {
	// Submit admits a cloudlet, returning the estimated completion
	// delay when it starts executing immediately, 0 when it queues.
	Submit(cl *Cloudlet, fileTransferTime, now float64) float64
	// Resume moves a paused cloudlet back to executing (returning the
	// absolute estimated completion time) or to waiting (returning 0).
	// A cloudlet not in the paused collection is a no-op returning 0.
	Resume(cloudletID int, now float64) float64
	// Pause suspends a cloudlet, releasing its PEs immediately.
	Pause(cloudletID int, now float64) bool
	// Cancel removes a cloudlet from whichever collection holds it,
	// releasing PEs as needed. Returns nil if unknown.
	Cancel(cloudletID int, now float64) *Cloudlet
	// Migrate removes the first executing cloudlet and releases its
	// PEs, returning it for resubmission elsewhere. Returns nil when
	// nothing is executing.
	Migrate(now float64) *Cloudlet
	// UpdateProcessing advances every executing cloudlet's progress
	// using the given per-PE MIPS share and returns the earliest
	// expected completion time, or NoNextEvent when idle.
	UpdateProcessing(now float64, mipsShare []float64) float64
	// SetCurrentMipsShare installs the host-granted share consumed by
	// admission tests between processing updates.
	SetCurrentMipsShare(mipsShare []float64)
	CurrentMipsShare() []float64

	RunningCloudlets() int
	WaitingCloudlets() int
	PausedCloudlets() int
	// UsedPes is the number of PE slots held by executing cloudlets.
	UsedPes() int
	// TotalUtilizationOfCpu sums the executing cloudlets' CPU
	// utilization models, clamped to 1.
	TotalUtilizationOfCpu(now float64) float64
	// TotalUtilizationOfRam and TotalUtilizationOfBw sum across all
	// resident cloudlets.
	TotalUtilizationOfRam(now float64) float64
	TotalUtilizationOfBw(now float64) float64
}

// Cloudlet scheduler policy names accepted by NewCloudletScheduler.
const CloudletSchedulerPolicySpaceShared = "space-shared"

// NewCloudletScheduler creates a CloudletScheduler by policy name.
// Empty string defaults to space-shared. Panics on unknown names.
func NewCloudletScheduler(policy string) CloudletScheduler {
	switch policy {
	case "", CloudletSchedulerPolicySpaceShared:
		return NewCloudletSchedulerSpaceShared()
	default:
		panic(fmt.Sprintf("unknown cloudlet scheduler policy %q", policy))
	}
}

// CloudletSchedulerSpaceShared assigns PE slots exclusively. Cloudlets
// that do not find enough free slots wait in arrival order and are
// promoted as finishing cloudlets release capacity.
type CloudletSchedulerSpaceShared struct {
	exec    []*ResCloudlet
	waiting []*ResCloudlet
	paused  []*ResCloudlet

	usedPes          int
	currentMipsShare []float64
	previousTime     float64
}

func NewCloudletSchedulerSpaceShared() *CloudletSchedulerSpaceShared {
	return &CloudletSchedulerSpaceShared{}
}

// capacityFromMipsShare derives the per-PE capacity and PE count from
// the current share, discarding zero entries (PEs temporarily
// withdrawn by the host).
func capacityFromMipsShare(mipsShare []float64) (perPe float64, peCount int) {
	var total float64
	for _, mips := range mipsShare {
		if mips > 0 {
			total += mips
			peCount++
		}
	}
	if peCount == 0 {
		return 0, 0
	}
	return total / float64(peCount), peCount
}

func (s *CloudletSchedulerSpaceShared) SetCurrentMipsShare(mipsShare []float64) {
	s.currentMipsShare = mipsShare
}

func (s *CloudletSchedulerSpaceShared) CurrentMipsShare() []float64 {
	return s.currentMipsShare
}

func (s *CloudletSchedulerSpaceShared) freePes() int {
	_, peCount := capacityFromMipsShare(s.currentMipsShare)
	return peCount - s.usedPes
}

// startExecution moves a record into the executing collection and takes
// its PE slots. The counter and the collection change together; no
// intermediate state is observable.
func (s *CloudletSchedulerSpaceShared) startExecution(rcl *ResCloudlet, now float64) {
	rcl.cloudlet.SetStatus(StatusInExec, now)
	rcl.cloudlet.SetExecStartTime(now)
	rcl.assignPeSlots(s.usedPes)
	s.exec = append(s.exec, rcl)
	s.usedPes += rcl.NumberOfPes()
}

func (s *CloudletSchedulerSpaceShared) Submit(cl *Cloudlet, fileTransferTime, now float64) float64 {
	rcl := newResCloudlet(cl, now)
	if s.freePes() < cl.NumberOfPes() {
		cl.SetStatus(StatusQueued, now)
		s.waiting = append(s.waiting, rcl)
		logrus.Debugf("cloudlet %d queued (%d free PE slots, %d required)",
			cl.ID(), s.freePes(), cl.NumberOfPes())
		return 0
	}
	s.startExecution(rcl, now)

	// File transfer happens before execution; model it by inflating the
	// cloudlet length with the work the PE could have done meanwhile.
	perPe, _ := capacityFromMipsShare(s.currentMipsShare)
	if extra := fileTransferTime * perPe; extra > 0 {
		cl.SetLength(cl.Length() + extra)
	}
	return cl.Length() / perPe
}

func (s *CloudletSchedulerSpaceShared) Resume(cloudletID int, now float64) float64 {
	idx := findResCloudlet(s.paused, cloudletID)
	if idx < 0 {
		// not in the paused list: it is waiting, executing, or unknown
		return 0
	}
	rcl := s.paused[idx]
	s.paused = removeAt(s.paused, idx)

	if s.freePes() < rcl.NumberOfPes() {
		rcl.cloudlet.SetStatus(StatusQueued, now)
		rescaleRemainingLength(rcl)
		s.waiting = append(s.waiting, rcl)
		return 0
	}

	s.startExecution(rcl, now)
	rescaleRemainingLength(rcl)
	perPe, _ := capacityFromMipsShare(s.currentMipsShare)
	remaining := rcl.RemainingLength()
	return now + remaining/(perPe*float64(rcl.NumberOfPes()))
}

// rescaleRemainingLength spreads the remaining work across the
// cloudlet's PEs after a pause, so progress accounting stays consistent
// with the per-PE length convention.
func rescaleRemainingLength(rcl *ResCloudlet) {
	remaining := rcl.RemainingLength() * float64(rcl.NumberOfPes())
	if remaining > 0 {
		rcl.cloudlet.SetLength(remaining)
		rcl.finishedSoFar = 0
		rcl.cloudlet.SetFinishedSoFar(0)
	}
}

func (s *CloudletSchedulerSpaceShared) Pause(cloudletID int, now float64) bool {
	if idx := findResCloudlet(s.exec, cloudletID); idx >= 0 {
		rcl := s.exec[idx]
		s.exec = removeAt(s.exec, idx)
		s.usedPes -= rcl.NumberOfPes()
		rcl.releasePeSlots()
		rcl.cloudlet.SetStatus(StatusPaused, now)
		s.paused = append(s.paused, rcl)
		return true
	}
	if idx := findResCloudlet(s.waiting, cloudletID); idx >= 0 {
		rcl := s.waiting[idx]
		s.waiting = removeAt(s.waiting, idx)
		rcl.cloudlet.SetStatus(StatusPaused, now)
		s.paused = append(s.paused, rcl)
		return true
	}
	return false
}

func (s *CloudletSchedulerSpaceShared) Cancel(cloudletID int, now float64) *Cloudlet {
	if idx := findResCloudlet(s.exec, cloudletID); idx >= 0 {
		rcl := s.exec[idx]
		s.exec = removeAt(s.exec, idx)
		s.usedPes -= rcl.NumberOfPes()
		rcl.releasePeSlots()
		rcl.cloudlet.SetStatus(StatusCanceled, now)
		return rcl.cloudlet
	}
	if idx := findResCloudlet(s.paused, cloudletID); idx >= 0 {
		rcl := s.paused[idx]
		s.paused = removeAt(s.paused, idx)
		rcl.cloudlet.SetStatus(StatusCanceled, now)
		return rcl.cloudlet
	}
	if idx := findResCloudlet(s.waiting, cloudletID); idx >= 0 {
		rcl := s.waiting[idx]
		s.waiting = removeAt(s.waiting, idx)
		rcl.cloudlet.SetStatus(StatusCanceled, now)
		return rcl.cloudlet
	}
	return nil
}

func (s *CloudletSchedulerSpaceShared) Migrate(now float64) *Cloudlet {
	if len(s.exec) == 0 {
		return nil
	}
	rcl := s.exec[0]
	s.exec = s.exec[1:]
	s.usedPes -= rcl.NumberOfPes()
	rcl.releasePeSlots()
	return rcl.cloudlet
}

// finish releases the record's PE slots, removes it from executing, and
// stamps the cloudlet finished. Both the counter and the collection
// change inside this one call.
func (s *CloudletSchedulerSpaceShared) finish(idx int, now float64) {
	rcl := s.exec[idx]
	s.exec = removeAt(s.exec, idx)
	s.usedPes -= rcl.NumberOfPes()
	rcl.releasePeSlots()

	cl := rcl.cloudlet
	cl.SetFinishedSoFar(cl.Length())
	cl.SetExecParam(now-cl.SubmissionTime(), now-cl.ExecStartTime())
	cl.SetStatus(StatusSuccess, now)
	logrus.Debugf("cloudlet %d finished at t=%.4f", cl.ID(), now)
}

func (s *CloudletSchedulerSpaceShared) UpdateProcessing(now float64, mipsShare []float64) float64 {
	s.currentMipsShare = mipsShare
	timeSpan := now - s.previousTime
	s.previousTime = now
	perPe, _ := capacityFromMipsShare(mipsShare)

	for _, rcl := range s.exec {
		rcl.updateFinishedSoFar(perPe * timeSpan * float64(rcl.NumberOfPes()))
	}

	// Collect completions back-to-front so removal indices stay valid.
	for i := len(s.exec) - 1; i >= 0; i-- {
		if s.exec[i].RemainingLength() <= 0 {
			s.finish(i, now)
		}
	}

	s.promoteWaiting(now)

	if len(s.exec) == 0 {
		return NoNextEvent
	}
	next := NoNextEvent
	for _, rcl := range s.exec {
		estimated := now + rcl.RemainingLength()/(perPe*float64(rcl.NumberOfPes()))
		if estimated < next {
			next = estimated
		}
	}
	return next
}

// promoteWaiting admits waiting cloudlets, in arrival order, that fit
// the PE slots freed by completions.
func (s *CloudletSchedulerSpaceShared) promoteWaiting(now float64) {
	kept := s.waiting[:0]
	for _, rcl := range s.waiting {
		if s.freePes() >= rcl.NumberOfPes() {
			s.startExecution(rcl, now)
		} else {
			kept = append(kept, rcl)
		}
	}
	s.waiting = kept
}

func (s *CloudletSchedulerSpaceShared) RunningCloudlets() int { return len(s.exec) }
func (s *CloudletSchedulerSpaceShared) WaitingCloudlets() int { return len(s.waiting) }
func (s *CloudletSchedulerSpaceShared) PausedCloudlets() int  { return len(s.paused) }
func (s *CloudletSchedulerSpaceShared) UsedPes() int          { return s.usedPes }

func (s *CloudletSchedulerSpaceShared) TotalUtilizationOfCpu(now float64) float64 {
	var total float64
	for _, rcl := range s.exec {
		total += rcl.cloudlet.UtilizationOfCpu(now)
	}
	if total > 1 {
		return 1
	}
	return total
}

func (s *CloudletSchedulerSpaceShared) TotalUtilizationOfRam(now float64) float64 {
	return s.totalResidentUtilization(func(cl *Cloudlet) float64 { return cl.UtilizationOfRam(now) })
}

func (s *CloudletSchedulerSpaceShared) TotalUtilizationOfBw(now float64) float64 {
	return s.totalResidentUtilization(func(cl *Cloudlet) float64 { return cl.UtilizationOfBw(now) })
}

func (s *CloudletSchedulerSpaceShared) totalResidentUtilization(of func(*Cloudlet) float64) float64 {
	var total float64
	for _, list := range [][]*ResCloudlet{s.exec, s.waiting, s.paused} {
		for _, rcl := range list {
			total += of(rcl.cloudlet)
		}
	}
	if total > 1 {
		return 1
	}
	return total
}

func findResCloudlet(list []*ResCloudlet, cloudletID int) int {
	for i, rcl := range list {
		if rcl.cloudlet.ID() == cloudletID {
			return i
		}
	}
	return -1
}

func removeAt(list []*ResCloudlet, idx int) []*ResCloudlet {
	return append(list[:idx], list[idx+1:]...)
}

// CloudletSchedulerNull answers every query with a neutral value and
// ignores every mutation.
type CloudletSchedulerNull struct{}

func (CloudletSchedulerNull) Submit(*Cloudlet, float64, float64) float64    { return 0 }
func (CloudletSchedulerNull) Resume(int, float64) float64                   { return 0 }
func (CloudletSchedulerNull) Pause(int, float64) bool                       { return false }
func (CloudletSchedulerNull) Cancel(int, float64) *Cloudlet                 { return nil }
func (CloudletSchedulerNull) Migrate(float64) *Cloudlet                     { return nil }
func (CloudletSchedulerNull) UpdateProcessing(float64, []float64) float64   { return 0 }
func (CloudletSchedulerNull) SetCurrentMipsShare([]float64)                 {}
func (CloudletSchedulerNull) CurrentMipsShare() []float64                   { return nil }
func (CloudletSchedulerNull) RunningCloudlets() int                         { return 0 }
func (CloudletSchedulerNull) WaitingCloudlets() int                         { return 0 }
func (CloudletSchedulerNull) PausedCloudlets() int                          { return 0 }
func (CloudletSchedulerNull) UsedPes() int                                  { return 0 }
func (CloudletSchedulerNull) TotalUtilizationOfCpu(float64) float64         { return 0 }
func (CloudletSchedulerNull) TotalUtilizationOfRam(float64) float64         { return 0 }
func (CloudletSchedulerNull) TotalUtilizationOfBw(float64) float64          { return 0 }
