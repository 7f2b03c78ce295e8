// Simulation events: VM and cloudlet submissions, per-host processing
// updates, and the scenario-driven pause/resume/cancel/migrate actions.

package sim

import "github.com/sirupsen/logrus"

// VmSubmitEvent asks the broker to place a VM at its timestamp.
type VmSubmitEvent struct {
	time float64
	Vm   *Vm
}

func NewVmSubmitEvent(time float64, vm *Vm) *VmSubmitEvent {
	return &VmSubmitEvent{time: time, Vm: vm}
}

func (e *VmSubmitEvent) Timestamp() float64 { return e.time }

func (e *VmSubmitEvent) Execute(s *Simulation) {
	logrus.Infof("[t=%010.4f] << VmSubmit: VM %d", e.time, e.Vm.ID())
	s.Broker.SubmitVm(e.Vm, e.time)
}

// CloudletSubmitEvent dispatches a cloudlet to its VM's scheduler.
type CloudletSubmitEvent struct {
	time             float64
	Cloudlet         *Cloudlet
	Vm               *Vm
	FileTransferTime float64
}

func NewCloudletSubmitEvent(time float64, cl *Cloudlet, vm *Vm, fileTransferTime float64) *CloudletSubmitEvent {
	return &CloudletSubmitEvent{time: time, Cloudlet: cl, Vm: vm, FileTransferTime: fileTransferTime}
}

func (e *CloudletSubmitEvent) Timestamp() float64 { return e.time }

func (e *CloudletSubmitEvent) Execute(s *Simulation) {
	logrus.Infof("[t=%010.4f] << CloudletSubmit: cloudlet %d to VM %d", e.time, e.Cloudlet.ID(), e.Vm.ID())
	if !e.Vm.IsCreated() {
		logrus.Warnf("[t=%010.4f] cloudlet %d targets uncreated VM %d", e.time, e.Cloudlet.ID(), e.Vm.ID())
		e.Cloudlet.SetStatus(StatusFailedResourceUnavailable, e.time)
		s.Broker.track(e.Cloudlet)
		return
	}
	s.Broker.SubmitCloudlet(e.Cloudlet, e.Vm, e.FileTransferTime, e.time)
}

// UpdateProcessingEvent advances one host's resident VMs. Periodic
// instances chain themselves every scheduling interval; one-shot
// instances are placed at estimated completion times so finishes are
// observed exactly when they happen.
type UpdateProcessingEvent struct {
	time     float64
	Host     *HostSimple
	Periodic bool
}

func NewUpdateProcessingEvent(time float64, host *HostSimple, periodic bool) *UpdateProcessingEvent {
	return &UpdateProcessingEvent{time: time, Host: host, Periodic: periodic}
}

func (e *UpdateProcessingEvent) Timestamp() float64 { return e.time }

func (e *UpdateProcessingEvent) Execute(s *Simulation) {
	next := e.Host.UpdateProcessing(e.time)
	s.Metrics.ObserveHostUtilization(e.Host.CpuPercentUtilization(e.time))

	nextPeriodic := NoNextEvent
	if e.Periodic && e.Host.SchedulingInterval() > 0 {
		nextPeriodic = e.time + e.Host.SchedulingInterval()
		if nextPeriodic <= s.Horizon {
			s.Schedule(&UpdateProcessingEvent{time: nextPeriodic, Host: e.Host, Periodic: true})
		}
	}
	// Wake up exactly at the earliest completion when it lands before
	// the next periodic tick.
	if next > e.time && next < nextPeriodic && next <= s.Horizon {
		s.Schedule(&UpdateProcessingEvent{time: next, Host: e.Host})
	}
}

// SimulationEndEvent marks the horizon: it discards everything still
// queued so the run stops exactly at its timestamp.
type SimulationEndEvent struct {
	time float64
}

func NewSimulationEndEvent(time float64) *SimulationEndEvent {
	return &SimulationEndEvent{time: time}
}

func (e *SimulationEndEvent) Timestamp() float64 { return e.time }

func (e *SimulationEndEvent) Execute(s *Simulation) {
	logrus.Infof("[t=%010.4f] << SimulationEnd: dropping %d pending events", e.time, len(s.EventQueue))
	s.EventQueue = s.EventQueue[:0]
}

// syncProcessing brings a VM's host up to the event time so lifecycle
// actions observe current progress, not the state of the last tick.
func syncProcessing(vm *Vm, now float64) {
	if host, ok := vm.Host().(*HostSimple); ok {
		host.UpdateProcessing(now)
	}
}

// CloudletPauseEvent suspends a cloudlet on its VM's scheduler.
type CloudletPauseEvent struct {
	time       float64
	Vm         *Vm
	CloudletID int
}

func NewCloudletPauseEvent(time float64, vm *Vm, cloudletID int) *CloudletPauseEvent {
	return &CloudletPauseEvent{time: time, Vm: vm, CloudletID: cloudletID}
}

func (e *CloudletPauseEvent) Timestamp() float64 { return e.time }

func (e *CloudletPauseEvent) Execute(s *Simulation) {
	syncProcessing(e.Vm, e.time)
	if !e.Vm.Scheduler().Pause(e.CloudletID, e.time) {
		logrus.Warnf("[t=%010.4f] cloudlet %d not pausable on VM %d", e.time, e.CloudletID, e.Vm.ID())
	}
}

// CloudletResumeEvent resumes a paused cloudlet. When the scheduler
// re-admits it, a processing update is scheduled at the returned
// estimated completion time.
type CloudletResumeEvent struct {
	time       float64
	Vm         *Vm
	CloudletID int
}

func NewCloudletResumeEvent(time float64, vm *Vm, cloudletID int) *CloudletResumeEvent {
	return &CloudletResumeEvent{time: time, Vm: vm, CloudletID: cloudletID}
}

func (e *CloudletResumeEvent) Timestamp() float64 { return e.time }

func (e *CloudletResumeEvent) Execute(s *Simulation) {
	syncProcessing(e.Vm, e.time)
	estimatedFinish := e.Vm.Scheduler().Resume(e.CloudletID, e.time)
	if estimatedFinish > e.time {
		if host, ok := e.Vm.Host().(*HostSimple); ok {
			s.Schedule(&UpdateProcessingEvent{time: estimatedFinish, Host: host})
		}
	}
}

// CloudletCancelEvent cancels a cloudlet wherever it resides.
type CloudletCancelEvent struct {
	time       float64
	Vm         *Vm
	CloudletID int
}

func NewCloudletCancelEvent(time float64, vm *Vm, cloudletID int) *CloudletCancelEvent {
	return &CloudletCancelEvent{time: time, Vm: vm, CloudletID: cloudletID}
}

func (e *CloudletCancelEvent) Timestamp() float64 { return e.time }

func (e *CloudletCancelEvent) Execute(s *Simulation) {
	syncProcessing(e.Vm, e.time)
	if cl := e.Vm.Scheduler().Cancel(e.CloudletID, e.time); cl == nil {
		logrus.Warnf("[t=%010.4f] cloudlet %d not found on VM %d", e.time, e.CloudletID, e.Vm.ID())
	}
}

// CloudletMigrateEvent pulls the first executing cloudlet off the
// source VM and resubmits it to the target through the broker. The
// source VM is flagged in-migration for the duration of the event, so
// utilization accounting charges the configured overhead.
type CloudletMigrateEvent struct {
	time     float64
	SourceVm *Vm
	TargetVm *Vm
}

func NewCloudletMigrateEvent(time float64, source, target *Vm) *CloudletMigrateEvent {
	return &CloudletMigrateEvent{time: time, SourceVm: source, TargetVm: target}
}

func (e *CloudletMigrateEvent) Timestamp() float64 { return e.time }

func (e *CloudletMigrateEvent) Execute(s *Simulation) {
	syncProcessing(e.SourceVm, e.time)
	e.SourceVm.SetInMigration(true)
	defer e.SourceVm.SetInMigration(false)
	cl := e.SourceVm.Scheduler().Migrate(e.time)
	if cl == nil {
		logrus.Warnf("[t=%010.4f] nothing to migrate from VM %d", e.time, e.SourceVm.ID())
		return
	}
	logrus.Infof("[t=%010.4f] migrating cloudlet %d from VM %d to VM %d",
		e.time, cl.ID(), e.SourceVm.ID(), e.TargetVm.ID())
	s.Broker.SubmitCloudlet(cl, e.TargetVm, 0, e.time)
}
