// Package sim provides a discrete-event simulator for datacenter
// capacity allocation: hosts lease processing elements to VMs, VMs time-
// or space-share their capacity among cloudlets, and elastic scaling
// reshapes VMs while the simulation runs.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - core.go: the clock, the future-event queue, and the Run loop
//   - events.go: event types that drive the simulation (submissions, processing updates, lifecycle actions)
//   - broker.go: VM placement, cloudlet dispatch, and scaling request handling
//
// # Architecture
//
// Allocation is layered. Each layer only talks to the one below it:
//   - pe.go: processing elements and the all-or-nothing MIPS provisioner
//   - vmscheduler.go: host-level policies that carve PEs into per-VM shares
//   - cloudletscheduler.go: VM-level policies that run cloudlets on a share
//   - cloudlet.go: cloudlet state machine, execution records, and cost accounting
//   - vm.go: the VM entity, its resources, and its listener sets
//   - scaling.go: vertical and horizontal scaling controllers
//
// Scenarios are declared in YAML (scenario.go) and expanded into an
// initial event schedule; workload.go adds stochastic Poisson arrivals
// on top of the fixed schedule.
//
// # Key Interfaces
//
// The extension points are small interfaces with null implementations:
//   - VmScheduler: allocate and free host PE shares for a VM
//   - CloudletScheduler: submit, advance, pause, resume, cancel, migrate
//   - Host: the surface VMs see of the machine they run on
//   - Broker: placement and scaling decisions on behalf of VMs
//   - UtilizationModel: per-cloudlet resource demand over time
package sim
