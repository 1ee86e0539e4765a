package model

import "fmt"

// SourceKind identifies one of the four generation sources of the grid.
type SourceKind int

const (
	SourceSolar SourceKind = iota
	SourceWind
	SourceHydro
	SourceDiesel
)

// SourceKinds lists every source in a stable order.
var SourceKinds = []SourceKind{SourceSolar, SourceWind, SourceHydro, SourceDiesel}

// Renewables lists the weather-driven sources.
func Renewables() []SourceKind {
	return []SourceKind{SourceSolar, SourceWind, SourceHydro}
}

// String returns a human-readable representation of the source kind.
func (k SourceKind) String() string {
	switch k {
	case SourceSolar:
		return "solar"
	case SourceWind:
		return "wind"
	case SourceHydro:
		return "hydro"
	case SourceDiesel:
		return "diesel"
	default:
		return "unknown"
	}
}

// ParseSourceKind converts a name like "wind" into a SourceKind.
func ParseSourceKind(s string) (SourceKind, error) {
	for _, k := range SourceKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown source %q", s)
}

// MarshalText implements encoding.TextMarshaler so kinds can key JSON maps.
func (k SourceKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SourceKind) UnmarshalText(b []byte) error {
	v, err := ParseSourceKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Source is one generator of the grid.
//
// Control is the kind-specific manual input: illumination percent for solar,
// wind speed in m/s for wind, flow percent for hydro and 0/1 for diesel.
type Source struct {
	Kind           SourceKind `json:"kind"`
	Enabled        bool       `json:"enabled"`
	Control        float64    `json:"control"`
	OutputSplitPct float64    `json:"output_split_pct"`
	AvailableKW    float64    `json:"available_kw"`
	History        *Series    `json:"history"`
}

// On reports whether the source may produce this tick. Diesel additionally
// needs its on/off control set.
func (s *Source) On() bool {
	if !s.Enabled {
		return false
	}
	if s.Kind == SourceDiesel {
		return s.Control > 0
	}
	return true
}

// SetAvailable stores the available power, never below zero.
func (s *Source) SetAvailable(kw float64) {
	if kw < 0 || kw != kw {
		kw = 0
	}
	s.AvailableKW = kw
}

// Split returns the part of the available power sent to delivery and the
// remainder offered to storage.
func (s *Source) Split() (outputKW, surplusKW float64) {
	pct := ClampPct(s.OutputSplitPct)
	outputKW = s.AvailableKW * pct / 100
	surplusKW = s.AvailableKW - outputKW
	return outputKW, surplusKW
}

// Clone returns a deep copy of the source.
func (s *Source) Clone() *Source {
	c := *s
	c.History = s.History.Clone()
	return &c
}

// ClampPct bounds v to [0,100].
func ClampPct(v float64) float64 {
	return Clamp(v, 0, 100)
}

// Clamp bounds v to [lo,hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
