package model

// Totals holds cumulative energy counters. They only grow until an explicit
// reset.
type Totals struct {
	GenKWh       float64                `json:"gen_kwh"`
	OutKWh       float64                `json:"out_kwh"`
	SavedKWh     float64                `json:"saved_kwh"`
	PerSourceKWh map[SourceKind]float64 `json:"per_source_kwh"`
}

// NewTotals returns zeroed counters with every source present.
func NewTotals() Totals {
	t := Totals{PerSourceKWh: make(map[SourceKind]float64, len(SourceKinds))}
	for _, k := range SourceKinds {
		t.PerSourceKWh[k] = 0
	}
	return t
}

// Clone returns a deep copy of the counters.
func (t Totals) Clone() Totals {
	c := t
	c.PerSourceKWh = make(map[SourceKind]float64, len(t.PerSourceKWh))
	for k, v := range t.PerSourceKWh {
		c.PerSourceKWh[k] = v
	}
	return c
}
