package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/microgrid/core/estimation"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/core/storage"
	"github.com/kilianp07/microgrid/core/weather"
)

// Defaults of the simulation timing.
const (
	DefaultBaseTick         = 2 * time.Second
	DefaultDieselKW         = 50
	DefaultEstimatorTimeout = 1500 * time.Millisecond
	MaxSpeed                = 100
)

// SourceConfig is the initial state of one generation source.
type SourceConfig struct {
	Enabled        bool    `json:"enabled"`
	Control        float64 `json:"control"`
	OutputSplitPct float64 `json:"output_split_pct"`
}

// DestinationSpec describes a consumer at creation time.
type DestinationSpec struct {
	Name     string  `json:"name"`
	Priority int     `json:"priority"`
	DemandKW float64 `json:"demand_kw"`
}

// Config defines the engine settings and the initial inventory.
type Config struct {
	// BaseTick is the logical duration of one tick at speed 1.
	BaseTick time.Duration `json:"base_tick"`
	Speed    float64       `json:"speed"`
	// HistorySize is the capacity of every history ring.
	HistorySize int `json:"history_size"`
	// DieselKW is the diesel output while it is enabled and on.
	DieselKW float64 `json:"diesel_kw"`
	// DischargeOnDeficit lets the batteries cover unmet demand before the
	// grid policy runs.
	DischargeOnDeficit bool          `json:"discharge_on_deficit"`
	EstimatorTimeout   time.Duration `json:"estimator_timeout"`
	GridMode           string        `json:"grid_mode"`

	Sources      map[string]SourceConfig `json:"sources"`
	Batteries    []model.BatterySpec     `json:"batteries"`
	Destinations []DestinationSpec       `json:"destinations"`
	Weather      weather.Config          `json:"weather"`
	// Estimation rates the sources driven by the manual controls. Unset, it
	// falls back to the weather ceilings.
	Estimation estimation.Model `json:"estimation"`
}

// DefaultSources returns the initial source settings of a fresh grid.
func DefaultSources() map[string]SourceConfig {
	return map[string]SourceConfig{
		"solar":  {Enabled: true, Control: 80, OutputSplitPct: 80},
		"wind":   {Enabled: true, Control: 8, OutputSplitPct: 70},
		"hydro":  {Enabled: true, Control: 50, OutputSplitPct: 60},
		"diesel": {Enabled: false, Control: 0, OutputSplitPct: 100},
	}
}

// DefaultBatteries returns the initial battery bank.
func DefaultBatteries() []model.BatterySpec {
	return []model.BatterySpec{
		{CapacityKWh: 2000, MaxChargeKW: 500, MaxDischargeKW: 500, InitialKWh: 1000},
		{CapacityKWh: 500, MaxChargeKW: 200, MaxDischargeKW: 200, InitialKWh: 250},
	}
}

// DefaultDestinations returns the initial consumers.
func DefaultDestinations() []DestinationSpec {
	return []DestinationSpec{
		{Name: "Grid", Priority: int(model.DefaultPriority), DemandKW: 50},
		{Name: "Local Factory", Priority: int(model.DefaultPriority), DemandKW: 50},
	}
}

// SetDefaults fills unset fields. A nil inventory selects the default one;
// an explicitly empty list is kept.
func (c *Config) SetDefaults() {
	if c.BaseTick <= 0 {
		c.BaseTick = DefaultBaseTick
	}
	if c.Speed == 0 {
		c.Speed = 1
	}
	if c.HistorySize <= 0 {
		c.HistorySize = model.DefaultHistoryPoints
	}
	if c.DieselKW == 0 {
		c.DieselKW = DefaultDieselKW
	}
	if c.EstimatorTimeout <= 0 {
		c.EstimatorTimeout = DefaultEstimatorTimeout
	}
	if c.GridMode == "" {
		c.GridMode = string(model.GridConnected)
	}
	defaults := DefaultSources()
	if c.Sources == nil {
		c.Sources = defaults
	}
	for name, sc := range defaults {
		if _, ok := c.Sources[name]; !ok {
			c.Sources[name] = sc
		}
	}
	if c.Batteries == nil {
		c.Batteries = DefaultBatteries()
	}
	if c.Destinations == nil {
		c.Destinations = DefaultDestinations()
	}
	c.Weather.SetDefaults()
	if c.Estimation.IsZero() {
		c.Estimation = estimation.Model{
			MaxSolarKW: c.Weather.MaxKW[model.SourceSolar.String()],
			MaxWindKW:  c.Weather.MaxKW[model.SourceWind.String()],
			MaxHydroKW: c.Weather.MaxKW[model.SourceHydro.String()],
		}
	}
}

// Validate checks the settings and the initial inventory.
func (c Config) Validate() error {
	if !(c.Speed > 0) || c.Speed > MaxSpeed {
		return fmt.Errorf("engine: speed must be in (0,%d], got %v", MaxSpeed, c.Speed)
	}
	if c.DieselKW < 0 || math.IsNaN(c.DieselKW) {
		return fmt.Errorf("engine: diesel_kw must not be negative")
	}
	if _, err := model.ParseGridMode(c.GridMode); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	for name, sc := range c.Sources {
		kind, err := model.ParseSourceKind(name)
		if err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		if err := validateSource(kind, SourceEdit{Control: &sc.Control, OutputSplitPct: &sc.OutputSplitPct}); err != nil {
			return fmt.Errorf("engine: source %s: %w", name, err)
		}
	}
	for i, b := range c.Batteries {
		if err := storage.Validate(b); err != nil {
			return fmt.Errorf("engine: battery %d: %w", i, err)
		}
	}
	for i, d := range c.Destinations {
		if _, err := destinationFromSpec(d, i); err != nil {
			return fmt.Errorf("engine: destination %d: %w", i, err)
		}
	}
	return nil
}
