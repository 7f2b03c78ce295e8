// Defines the Cloudlet struct that models a unit of computational work
// in the simulation. Tracks requested length, PE requirement, status
// transitions, per-execution-site history, and transfer cost.

package sim

import (
	"fmt"
	"math"
)

// NotAssigned marks a cloudlet resource that has no value yet, such as
// the execution-site index before the cloudlet reaches any site.
const NotAssigned = -1

// CloudletStatus represents the lifecycle state of a cloudlet.
type CloudletStatus int

const (
	// StatusCreated: the cloudlet exists but has not been handed to any site.
	StatusCreated CloudletStatus = iota
	// StatusReady: assigned to a site, planned for execution.
	StatusReady
	// StatusQueued: resident at a site, waiting for free PEs.
	StatusQueued
	// StatusInExec: executing on a VM.
	StatusInExec
	// StatusSuccess: executed to completion.
	StatusSuccess
	// StatusFailed: execution failed.
	StatusFailed
	// StatusCanceled: canceled before completion.
	StatusCanceled
	// StatusPaused: execution suspended; PEs released.
	StatusPaused
	// StatusResumed: resumed from StatusPaused.
	StatusResumed
	// StatusFailedResourceUnavailable: the assigned site vanished.
	StatusFailedResourceUnavailable
)

func (s CloudletStatus) String() string {
	switch s {
	case StatusCreated:
		return "CREATED"
	case StatusReady:
		return "READY"
	case StatusQueued:
		return "QUEUED"
	case StatusInExec:
		return "INEXEC"
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailed:
		return "FAILED"
	case StatusCanceled:
		return "CANCELED"
	case StatusPaused:
		return "PAUSED"
	case StatusResumed:
		return "RESUMED"
	case StatusFailedResourceUnavailable:
		return "FAILED_RESOURCE_UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no further transitions are expected. A
// terminal cloudlet is effectively immutable.
func (s CloudletStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusFailedResourceUnavailable, StatusCanceled:
		return true
	default:
		return false
	}
}

// ExecutionRecord is one entry of a cloudlet's per-site history. A new
// record is appended each time the cloudlet is (re)assigned to an
// execution site; updates always target the most recent record.
type ExecutionRecord struct {
	SiteID         int
	SubmissionTime float64
	WallClockTime  float64
	ActualCpuTime  float64
	CostPerSec     float64
	FinishedSoFar  float64
}

// Cloudlet models a single task's lifecycle in the simulation. Length
// is in million instructions per required PE.
type Cloudlet struct {
	id          int
	length      float64
	numberOfPes int
	fileSize    float64
	outputSize  float64

	status        CloudletStatus
	execStartTime float64
	finishTime    float64

	records []ExecutionRecord
	index   int

	vmID              int
	costPerBw         float64
	accumulatedBwCost float64

	utilizationCpu UtilizationModel
	utilizationRam UtilizationModel
	utilizationBw  UtilizationModel

	null bool
}

// CloudletNull is the neutral cloudlet: every query answers zero/false
// and every mutator is a no-op.
var CloudletNull = &Cloudlet{id: NotAssigned, index: NotAssigned, finishTime: NotAssigned, null: true}

// NewCloudlet creates a cloudlet with the given work length (million
// instructions) and PE requirement. All utilization models default to
// full; replace them before submission if the workload is shaped.
func NewCloudlet(id int, length float64, numberOfPes int) *Cloudlet {
	return &Cloudlet{
		id:             id,
		length:         length,
		numberOfPes:    numberOfPes,
		status:         StatusCreated,
		index:          NotAssigned,
		vmID:           NotAssigned,
		finishTime:     NotAssigned,
		utilizationCpu: UtilizationModelFull{},
		utilizationRam: UtilizationModelFull{},
		utilizationBw:  UtilizationModelFull{},
	}
}

func (cl *Cloudlet) String() string {
	return fmt.Sprintf("Cloudlet(id: %d, status: %s, length: %.0f, pes: %d)",
		cl.id, cl.status, cl.length, cl.numberOfPes)
}

func (cl *Cloudlet) ID() int                { return cl.id }
func (cl *Cloudlet) Length() float64        { return cl.length }
func (cl *Cloudlet) NumberOfPes() int       { return cl.numberOfPes }
func (cl *Cloudlet) FileSize() float64      { return cl.fileSize }
func (cl *Cloudlet) OutputSize() float64    { return cl.outputSize }
func (cl *Cloudlet) Status() CloudletStatus { return cl.status }
func (cl *Cloudlet) ExecStartTime() float64 { return cl.execStartTime }
func (cl *Cloudlet) FinishTime() float64    { return cl.finishTime }
func (cl *Cloudlet) VmID() int              { return cl.vmID }

// TotalLength is the work across all required PEs; the per-PE length is
// executed once on each of them.
func (cl *Cloudlet) TotalLength() float64 {
	return cl.length * float64(cl.numberOfPes)
}

// SetLength replaces the per-PE work length. Rejects non-positive
// values. The scheduler uses this to inflate length for file transfer
// and to rescale remaining work on resume.
func (cl *Cloudlet) SetLength(length float64) bool {
	if cl.null || length <= 0 {
		return false
	}
	cl.length = length
	return true
}

// SetFileSizes configures input and output transfer sizes in bytes.
func (cl *Cloudlet) SetFileSizes(fileSize, outputSize float64) {
	if cl.null {
		return
	}
	cl.fileSize = fileSize
	cl.outputSize = outputSize
}

// SetVmID binds the cloudlet to the VM that will run it.
func (cl *Cloudlet) SetVmID(vmID int) {
	if cl.null {
		return
	}
	cl.vmID = vmID
}

// SetStatus transitions the cloudlet to a new status. A transition to
// the current status is rejected with no side effect. Entering
// StatusSuccess stamps the finish time with now.
func (cl *Cloudlet) SetStatus(status CloudletStatus, now float64) bool {
	if cl.null || cl.status == status {
		return false
	}
	if status == StatusSuccess {
		cl.finishTime = now
	}
	cl.status = status
	return true
}

// SetExecStartTime records when the cloudlet actually began executing.
// Pause/resume means this holds only the latest start.
func (cl *Cloudlet) SetExecStartTime(now float64) {
	if cl.null {
		return
	}
	cl.execStartTime = now
}

// AssignToSite appends a new execution record for the given site and
// advances the current index. costPerSec is the site's charge rate.
func (cl *Cloudlet) AssignToSite(siteID int, costPerSec float64) {
	if cl.null {
		return
	}
	cl.records = append(cl.records, ExecutionRecord{SiteID: siteID, CostPerSec: costPerSec})
	cl.index++
}

// SetSubmissionTime stamps the current record's submission time.
// Returns false while the cloudlet is unassigned.
func (cl *Cloudlet) SetSubmissionTime(now float64) bool {
	if cl.null || now < 0 || cl.index <= NotAssigned {
		return false
	}
	cl.records[cl.index].SubmissionTime = now
	return true
}

// SubmissionTime returns the current record's submission time, 0 if the
// cloudlet was never assigned.
func (cl *Cloudlet) SubmissionTime() float64 {
	if cl.index == NotAssigned {
		return 0
	}
	return cl.records[cl.index].SubmissionTime
}

// SetExecParam updates residency wall-clock time and charged CPU time
// on the current record.
func (cl *Cloudlet) SetExecParam(wallTime, actualCpuTime float64) bool {
	if cl.null || cl.index <= NotAssigned {
		return false
	}
	cl.records[cl.index].WallClockTime = wallTime
	cl.records[cl.index].ActualCpuTime = actualCpuTime
	return true
}

// SetFinishedSoFar records the work completed at the current site.
func (cl *Cloudlet) SetFinishedSoFar(length float64) bool {
	if cl.null || length < 0 || cl.index <= NotAssigned {
		return false
	}
	cl.records[cl.index].FinishedSoFar = length
	return true
}

// FinishedSoFar returns the work completed at the current site, clamped
// to [0, length]; 0 while unassigned.
func (cl *Cloudlet) FinishedSoFar() float64 {
	if cl.index == NotAssigned {
		return 0
	}
	return math.Min(cl.records[cl.index].FinishedSoFar, cl.length)
}

// RemainingLength is the per-PE work still to execute.
func (cl *Cloudlet) RemainingLength() float64 {
	return math.Max(0, cl.length-cl.FinishedSoFar())
}

// IsFinished reports whether all requested work completed. Always false
// while the cloudlet has not been assigned to any site.
func (cl *Cloudlet) IsFinished() bool {
	if cl.index == NotAssigned {
		return false
	}
	return cl.length-cl.records[cl.index].FinishedSoFar <= 0
}

// WaitingTime is how long the cloudlet waited at the current site
// before executing; 0 if never assigned.
func (cl *Cloudlet) WaitingTime() float64 {
	if cl.index == NotAssigned {
		return 0
	}
	return cl.execStartTime - cl.records[cl.index].SubmissionTime
}

// Records returns the per-site history, oldest first.
func (cl *Cloudlet) Records() []ExecutionRecord { return cl.records }

// RecordForSite returns the execution record for a site, or a zero
// record and false if the cloudlet never reached that site.
func (cl *Cloudlet) RecordForSite(siteID int) (ExecutionRecord, bool) {
	for _, rec := range cl.records {
		if rec.SiteID == siteID {
			return rec, true
		}
	}
	return ExecutionRecord{}, false
}

// SetCostPerBw configures the per-byte transfer charge rate.
func (cl *Cloudlet) SetCostPerBw(costPerBw float64) {
	if cl.null {
		return
	}
	cl.costPerBw = costPerBw
}

// AddAccumulatedBwCost charges for input transfer.
func (cl *Cloudlet) AddAccumulatedBwCost(cost float64) {
	if cl.null {
		return
	}
	cl.accumulatedBwCost += cost
}

// Cost is the transfer cost attributed to the cloudlet itself: input
// transfer already charged plus the output transfer at the per-byte
// rate. Execution cost proper is tracked by the hosting site.
func (cl *Cloudlet) Cost() float64 {
	return cl.accumulatedBwCost + cl.costPerBw*cl.outputSize
}

// UtilizationOfCpu returns the fraction of the VM's CPU the cloudlet
// uses at the given time.
func (cl *Cloudlet) UtilizationOfCpu(time float64) float64 {
	if cl.null {
		return 0
	}
	return cl.utilizationCpu.Utilization(time)
}

func (cl *Cloudlet) UtilizationOfRam(time float64) float64 {
	if cl.null {
		return 0
	}
	return cl.utilizationRam.Utilization(time)
}

func (cl *Cloudlet) UtilizationOfBw(time float64) float64 {
	if cl.null {
		return 0
	}
	return cl.utilizationBw.Utilization(time)
}

// SetUtilizationModels replaces the per-resource utilization models.
// A missing model is a configuration error surfaced immediately, never
// deferred into a running tick.
func (cl *Cloudlet) SetUtilizationModels(cpu, ram, bw UtilizationModel) {
	if cl.null {
		return
	}
	if cpu == nil || ram == nil || bw == nil {
		panic(fmt.Sprintf("cloudlet %d: utilization models must not be nil", cl.id))
	}
	cl.utilizationCpu = cpu
	cl.utilizationRam = ram
	cl.utilizationBw = bw
}
