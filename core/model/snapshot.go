package model

import "time"

// TickSummary captures the aggregate figures of one allocation pass.
type TickSummary struct {
	Tick            uint64                 `json:"tick"`
	Time            time.Time              `json:"time"`
	DeltaHours      float64                `json:"delta_hours"`
	AvailableKW     map[SourceKind]float64 `json:"available_kw"`
	TotalGenKW      float64                `json:"total_gen_kw"`
	TotalOutputKW   float64                `json:"total_output_kw"`
	TotalSurplusKW  float64                `json:"total_surplus_kw"`
	TotalDemandKW   float64                `json:"total_demand_kw"`
	TotalSuppliedKW float64                `json:"total_supplied_kw"`
	DeficitKW       float64                `json:"deficit_kw"`
	DischargedKWh   float64                `json:"discharged_kwh"`
	ChargedKWh      float64                `json:"charged_kwh"`
	StoredKWh       float64                `json:"stored_kwh"`
	SoC             float64                `json:"soc"`
	Grid            Grid                   `json:"grid"`
	Shedding        Shedding               `json:"shedding"`
	DieselForced    bool                   `json:"diesel_forced"`
	SupplyStale     bool                   `json:"supply_stale"`
}

// History groups the combined bounded series kept by the engine.
type History struct {
	Gen    *Series `json:"gen"`
	Output *Series `json:"output"`
	Stored *Series `json:"stored"`
}

// NewHistory allocates the combined series with the given capacity.
func NewHistory(size int) History {
	return History{Gen: NewSeries(size), Output: NewSeries(size), Stored: NewSeries(size)}
}

// Clone returns a deep copy.
func (h History) Clone() History {
	return History{Gen: h.Gen.Clone(), Output: h.Output.Clone(), Stored: h.Stored.Clone()}
}

// Snapshot is a read-only copy of the whole simulation state taken at a tick
// boundary.
type Snapshot struct {
	Tick            uint64                 `json:"tick"`
	Time            time.Time              `json:"time"`
	SpeedMultiplier float64                `json:"speed_multiplier"`
	Sources         map[SourceKind]*Source `json:"sources"`
	Batteries       []Battery              `json:"batteries"`
	Destinations    []Destination          `json:"destinations"`
	Grid            Grid                   `json:"grid"`
	Totals          Totals                 `json:"totals"`
	Weather         Weather                `json:"weather"`
	Shedding        Shedding               `json:"shedding"`
	History         History                `json:"history"`
	StoredKWh       float64                `json:"stored_kwh"`
	CapacityKWh     float64                `json:"capacity_kwh"`
	SoC             float64                `json:"soc"`
	Last            *TickSummary           `json:"last,omitempty"`
}
