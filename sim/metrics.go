// Tracks simulation-wide statistics for final reporting: cloudlet
// outcomes, turnaround and waiting times, host utilization, and scale
// request counts.

package sim

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Metrics aggregates statistics about the simulation for final
// reporting. Useful for evaluating allocation policies and debugging
// behavior over time.
type Metrics struct {
	SubmittedCloudlets int
	CompletedCloudlets int
	CanceledCloudlets  int
	FailedCloudlets    int

	TotalTurnaround float64 // sum of finish - submission over completed cloudlets
	TotalWaiting    float64 // sum of waiting times over completed cloudlets
	TotalCost       float64 // sum of transfer costs over completed cloudlets

	VerticalUpRequests   int
	VerticalDownRequests int
	HorizontalRequests   int
	FailedVmCreations    int

	hostUtilization []float64 // per-update samples across hosts

	SimEndedTime float64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveHostUtilization records one host CPU utilization sample.
func (m *Metrics) ObserveHostUtilization(utilization float64) {
	m.hostUtilization = append(m.hostUtilization, utilization)
}

// MeanHostUtilization is the average of all recorded samples.
func (m *Metrics) MeanHostUtilization() float64 {
	if len(m.hostUtilization) == 0 {
		return 0
	}
	return stat.Mean(m.hostUtilization, nil)
}

// HostUtilizationQuantile returns the q-quantile (q in [0,1]) of the
// recorded samples, 0 when nothing was observed.
func (m *Metrics) HostUtilizationQuantile(q float64) float64 {
	if len(m.hostUtilization) == 0 {
		return 0
	}
	sorted := append([]float64(nil), m.hostUtilization...)
	sort.Float64s(sorted)
	return stat.Quantile(q, stat.Empirical, sorted, nil)
}

// Collect folds the broker's final cloudlet and request state into the
// report. Called once, when the event loop ends.
func (m *Metrics) Collect(b *SimBroker) {
	if b == nil {
		return
	}
	m.SubmittedCloudlets = len(b.cloudlets)
	for _, cl := range b.cloudlets {
		switch cl.Status() {
		case StatusSuccess:
			m.CompletedCloudlets++
			m.TotalTurnaround += cl.FinishTime() - cl.SubmissionTime()
			m.TotalWaiting += cl.WaitingTime()
			m.TotalCost += cl.Cost()
		case StatusCanceled:
			m.CanceledCloudlets++
		case StatusFailed, StatusFailedResourceUnavailable:
			m.FailedCloudlets++
		}
	}
	m.VerticalUpRequests = b.verticalUpRequests
	m.VerticalDownRequests = b.verticalDownRequests
	m.HorizontalRequests = b.horizontalRequests
	m.FailedVmCreations = b.failedVmCreations
}

// Print displays aggregated metrics at the end of the simulation.
func (m *Metrics) Print() {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Submitted Cloudlets  : %d\n", m.SubmittedCloudlets)
	fmt.Printf("Completed Cloudlets  : %d\n", m.CompletedCloudlets)
	fmt.Printf("Canceled Cloudlets   : %d\n", m.CanceledCloudlets)
	fmt.Printf("Failed Cloudlets     : %d\n", m.FailedCloudlets)
	if m.CompletedCloudlets > 0 {
		n := float64(m.CompletedCloudlets)
		fmt.Printf("Average Turnaround   : %.2f s\n", m.TotalTurnaround/n)
		fmt.Printf("Average Waiting      : %.2f s\n", m.TotalWaiting/n)
		fmt.Printf("Total Transfer Cost  : %.2f\n", m.TotalCost)
	}
	fmt.Printf("Mean Host CPU Usage  : %.2f%%\n", 100*m.MeanHostUtilization())
	fmt.Printf("P95 Host CPU Usage   : %.2f%%\n", 100*m.HostUtilizationQuantile(0.95))
	fmt.Printf("Vertical Scale Up    : %d\n", m.VerticalUpRequests)
	fmt.Printf("Vertical Scale Down  : %d\n", m.VerticalDownRequests)
	fmt.Printf("Horizontal Requests  : %d\n", m.HorizontalRequests)
	fmt.Printf("Failed VM Creations  : %d\n", m.FailedVmCreations)
	fmt.Printf("Sim Ended            : t=%.2f\n", m.SimEndedTime)
}
