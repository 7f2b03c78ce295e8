// sim/core.go
package sim

import (
	"container/heap"
	"math"

	"github.com/sirupsen/logrus"
)

// NoNextEvent is returned by processing updates when an entity has no
// pending completion and therefore needs no future wake-up.
const NoNextEvent = math.MaxFloat64

// Clock provides the current simulation time to entities that only need
// to timestamp state changes, not to schedule events.
type Clock interface {
	CurrentTime() float64
}

// Event defines the interface for all simulation events.
// Each event must have a Timestamp (simulated seconds) and an Execute
// method that advances simulation state when invoked.
type Event interface {
	Timestamp() float64
	Execute(*Simulation)
}

// eventEntry tags a scheduled event with its insertion sequence so
// same-timestamp events pop in scheduling order.
type eventEntry struct {
	event Event
	seq   int
}

// EventQueue implements heap.Interface and orders events by timestamp,
// breaking ties by insertion order.
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type EventQueue []eventEntry

func (eq EventQueue) Len() int { return len(eq) }
func (eq EventQueue) Less(i, j int) bool {
	if eq[i].event.Timestamp() != eq[j].event.Timestamp() {
		return eq[i].event.Timestamp() < eq[j].event.Timestamp()
	}
	return eq[i].seq < eq[j].seq
}
func (eq EventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *EventQueue) Push(x any) {
	*eq = append(*eq, x.(eventEntry))
}

func (eq *EventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	*eq = old[0 : n-1]
	return item
}

// Simulation is the core object that holds simulation time, the modeled
// datacenter state, and the future-event loop.
type Simulation struct {
	Clock   float64
	Horizon float64
	// EventQueue has all the simulator events, like cloudlet submissions
	// and processing updates
	EventQueue EventQueue
	Hosts      []*HostSimple
	Broker     *SimBroker
	Metrics    *Metrics

	nextSeq int
}

// NewSimulation creates an empty simulation that runs until horizon.
// Hosts and a broker are attached by the scenario builder or by tests.
func NewSimulation(horizon float64) *Simulation {
	s := &Simulation{
		Clock:      0,
		Horizon:    horizon,
		EventQueue: make(EventQueue, 0),
		Hosts:      make([]*HostSimple, 0),
		Metrics:    NewMetrics(),
	}
	s.Broker = NewSimBroker(s)
	return s
}

// CurrentTime implements Clock.
func (s *Simulation) CurrentTime() float64 {
	return s.Clock
}

// AddHost registers a host with the simulation.
func (s *Simulation) AddHost(h *HostSimple) {
	s.Hosts = append(s.Hosts, h)
}

// Schedule pushes an event into the simulation's future-event queue.
// Events sharing a timestamp execute in the order they were scheduled.
func (s *Simulation) Schedule(ev Event) {
	heap.Push(&s.EventQueue, eventEntry{event: ev, seq: s.nextSeq})
	s.nextSeq++
}

// HasPendingEvents reports whether any event is still queued.
func (s *Simulation) HasPendingEvents() bool {
	return len(s.EventQueue) > 0
}

// Run drains the future-event queue in timestamp order, advancing the
// clock to each event before executing it. The loop ends when the queue
// is empty or the horizon is crossed.
func (s *Simulation) Run() {
	for len(s.EventQueue) > 0 {
		// get the next event to be simulated
		ev := heap.Pop(&s.EventQueue).(eventEntry).event
		if ev.Timestamp() > s.Horizon {
			break
		}
		// advance the clock
		s.Clock = ev.Timestamp()
		logrus.Debugf("[t=%010.4f] Executing %T", s.Clock, ev)
		// process the event
		ev.Execute(s)
	}
	s.Metrics.SimEndedTime = math.Min(s.Clock, s.Horizon)
	s.Metrics.Collect(s.Broker)
	logrus.Infof("[t=%010.4f] Simulation ended", s.Clock)
}
