package dispatch

import (
	"sort"

	"github.com/kilianp07/microgrid/core/model"
)

// Allocation is the outcome of one dispatch pass.
type Allocation struct {
	// Destinations holds the updated destinations in their original order.
	Destinations    []model.Destination
	TotalOutputKW   float64
	TotalDemandKW   float64
	TotalSuppliedKW float64
	// RemainingKW is the delivered power left after every destination was served.
	RemainingKW float64
	Shedding    model.Shedding
}

// DeficitKW is the aggregate unmet demand.
func (a Allocation) DeficitKW() float64 {
	d := a.TotalDemandKW - a.TotalSuppliedKW
	if d < 0 {
		return 0
	}
	return d
}

// SurplusKW is the delivered power no destination consumed.
func (a Allocation) SurplusKW() float64 {
	s := a.TotalOutputKW - a.TotalSuppliedKW
	if s < 0 {
		return 0
	}
	return s
}

// Dispatcher distributes a scalar amount of power over destinations.
type Dispatcher interface {
	Allocate(totalOutputKW float64, dests []model.Destination) Allocation
}

// PriorityDispatcher serves destinations strictly by priority.
type PriorityDispatcher struct{}

// Allocate returns a copy of dests with LastRecvKW and ShedKW set. The input
// slice is not modified.
func (PriorityDispatcher) Allocate(totalOutputKW float64, dests []model.Destination) Allocation {
	if totalOutputKW < 0 || totalOutputKW != totalOutputKW {
		totalOutputKW = 0
	}
	out := make([]model.Destination, len(dests))
	copy(out, dests)

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rank(out[order[a]].Priority) < rank(out[order[b]].Priority)
	})

	res := Allocation{TotalOutputKW: totalOutputKW}
	remaining := totalOutputKW
	for _, idx := range order {
		d := &out[idx]
		demand := d.DemandKW
		if demand < 0 {
			demand = 0
			d.DemandKW = 0
		}
		supplied := 0.0
		if remaining > 0 && demand > 0 {
			supplied = min(demand, remaining)
			remaining -= supplied
			if remaining < 0 {
				remaining = 0
			}
		}
		d.LastRecvKW = supplied
		d.ShedKW = demand - supplied
		res.TotalDemandKW += demand
		res.TotalSuppliedKW += supplied
	}
	res.Destinations = out
	res.RemainingKW = remaining
	res.Shedding = model.SummarizeShedding(out)
	return res
}

// rank maps invalid priorities to the default level so they sort predictably.
func rank(p model.Priority) int {
	if !p.Valid() {
		return int(model.DefaultPriority)
	}
	return int(p)
}
