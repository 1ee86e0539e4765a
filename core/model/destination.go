package model

import "fmt"

// Priority orders destinations during dispatch. Lower values are served first.
type Priority int

const (
	PriorityCritical Priority = iota + 1
	PriorityHigh
	PriorityNormal
	PriorityLow
)

// DefaultPriority is assigned to destinations created without one.
const DefaultPriority = PriorityHigh

// ParsePriority validates a numeric priority in the 1..4 range.
func ParsePriority(v int) (Priority, error) {
	p := Priority(v)
	if !p.Valid() {
		return 0, fmt.Errorf("priority %d out of range 1..4", v)
	}
	return p, nil
}

// Valid reports whether p is one of the four defined levels.
func (p Priority) Valid() bool {
	return p >= PriorityCritical && p <= PriorityLow
}

// String returns a human-readable representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Destination is a prioritized consumer of delivered power.
type Destination struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Priority   Priority `json:"priority"`
	DemandKW   float64  `json:"demand_kw"`
	LastRecvKW float64  `json:"last_recv_kw"`
	ShedKW     float64  `json:"shed_kw"`
}

// ShedEpsilonKW is the unmet demand above which a destination counts as shed.
const ShedEpsilonKW = 0.1

// Shed reports whether the destination was curtailed in the last allocation.
func (d Destination) Shed() bool { return d.ShedKW > ShedEpsilonKW }

// Shedding summarizes load shedding across destinations.
type Shedding struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}

// SummarizeShedding derives the shedding summary from destination results.
func SummarizeShedding(dests []Destination) Shedding {
	var s Shedding
	for _, d := range dests {
		if d.Shed() {
			s.Count++
		}
	}
	s.Active = s.Count > 0
	return s
}
