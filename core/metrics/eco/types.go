package eco

import (
	"time"

	"github.com/kilianp07/microgrid/core/model"
)

// DefaultCO2Factor is the grams of CO2 avoided per renewable kWh, taken as
// the emissions of the diesel generator it displaces.
const DefaultCO2Factor = 700.0

// Record aggregates the energy produced by one source over one day.
type Record struct {
	Source       model.SourceKind
	Date         time.Time
	GeneratedKWh float64
}

// Renewable reports whether the record belongs to a weather-driven source.
func (r Record) Renewable() bool { return r.Source != model.SourceDiesel }

// CO2Avoided returns the grams of CO2 avoided using the emission factor.
// Diesel production avoids nothing.
func (r Record) CO2Avoided(factor float64) float64 {
	if !r.Renewable() {
		return 0
	}
	return r.GeneratedKWh * factor
}

// RenewableShare returns the renewable fraction of the energy in recs.
func RenewableShare(recs []Record) float64 {
	var total, green float64
	for _, r := range recs {
		total += r.GeneratedKWh
		if r.Renewable() {
			green += r.GeneratedKWh
		}
	}
	if total == 0 {
		return 0
	}
	return green / total
}

// FromSummary splits a tick summary into per-source energy records.
func FromSummary(sum model.TickSummary) []Record {
	out := make([]Record, 0, len(sum.AvailableKW))
	for _, k := range model.SourceKinds {
		kw, ok := sum.AvailableKW[k]
		if !ok || kw <= 0 {
			continue
		}
		out = append(out, Record{Source: k, Date: sum.Time, GeneratedKWh: kw * sum.DeltaHours})
	}
	return out
}
