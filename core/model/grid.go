package model

import "fmt"

// GridMode selects the utility interconnection policy.
type GridMode string

const (
	GridConnected GridMode = "grid"
	GridIsland    GridMode = "island"
	GridHybrid    GridMode = "hybrid"
)

// ParseGridMode validates a mode name.
func ParseGridMode(s string) (GridMode, error) {
	switch m := GridMode(s); m {
	case GridConnected, GridIsland, GridHybrid:
		return m, nil
	default:
		return "", fmt.Errorf("unknown grid mode %q", s)
	}
}

// Grid is the interconnection state after the last tick.
type Grid struct {
	Mode     GridMode `json:"mode"`
	ImportKW float64  `json:"import_kw"`
	ExportKW float64  `json:"export_kw"`
}

// Weather is the state of the synthetic weather generator.
type Weather struct {
	Enabled     bool    `json:"enabled"`
	TimeMinutes int     `json:"time_minutes"`
	SunlightPct float64 `json:"sunlight_pct"`
	WindPct     float64 `json:"wind_pct"`
	HydroPct    float64 `json:"hydro_pct"`
}

// MinutesPerDay is the length of the weather day.
const MinutesPerDay = 1440

// Pct returns the weather percentage driving the given renewable source.
func (w Weather) Pct(k SourceKind) float64 {
	switch k {
	case SourceSolar:
		return w.SunlightPct
	case SourceWind:
		return w.WindPct
	case SourceHydro:
		return w.HydroPct
	default:
		return 0
	}
}

// Clock formats the weather time as HH:MM.
func (w Weather) Clock() string {
	return fmt.Sprintf("%02d:%02d", w.TimeMinutes/60, w.TimeMinutes%60)
}
