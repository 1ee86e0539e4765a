// Package scenarios replays scripted micro-grid sessions described in YAML
// and checks the tick figures they produce.
package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/microgrid/core/engine"
	"github.com/kilianp07/microgrid/core/model"
)

type SourceDef struct {
	Enabled        bool    `yaml:"enabled"`
	Control        float64 `yaml:"control"`
	OutputSplitPct float64 `yaml:"output_split_pct"`
}

type DestinationDef struct {
	Name     string  `yaml:"name"`
	Priority int     `yaml:"priority"`
	DemandKW float64 `yaml:"demand_kw"`
}

func (d DestinationDef) ToSpec() engine.DestinationSpec {
	return engine.DestinationSpec{Name: d.Name, Priority: d.Priority, DemandKW: d.DemandKW}
}

// GridDef is the initial grid setup of a scenario.
type GridDef struct {
	BaseTick           time.Duration        `yaml:"base_tick"`
	Mode               string               `yaml:"mode"`
	DieselKW           float64              `yaml:"diesel_kw"`
	DischargeOnDeficit bool                 `yaml:"discharge_on_deficit"`
	Sources            map[string]SourceDef `yaml:"sources"`
	Batteries          []model.BatterySpec  `yaml:"batteries"`
	Destinations       []DestinationDef     `yaml:"destinations"`
}

// EngineConfig converts the definition. Sources left out are disabled and
// the inventory lists are kept even when empty.
func (g GridDef) EngineConfig() engine.Config {
	cfg := engine.Config{
		BaseTick:           g.BaseTick,
		GridMode:           g.Mode,
		DieselKW:           g.DieselKW,
		DischargeOnDeficit: g.DischargeOnDeficit,
		Sources:            make(map[string]engine.SourceConfig, len(model.SourceKinds)),
		Batteries:          append([]model.BatterySpec{}, g.Batteries...),
		Destinations:       make([]engine.DestinationSpec, 0, len(g.Destinations)),
	}
	if cfg.BaseTick <= 0 {
		cfg.BaseTick = time.Hour
	}
	for _, k := range model.SourceKinds {
		cfg.Sources[k.String()] = engine.SourceConfig{OutputSplitPct: 100}
	}
	for name, s := range g.Sources {
		cfg.Sources[name] = engine.SourceConfig{Enabled: s.Enabled, Control: s.Control, OutputSplitPct: s.OutputSplitPct}
	}
	for _, d := range g.Destinations {
		cfg.Destinations = append(cfg.Destinations, d.ToSpec())
	}
	return cfg
}

// SourceChange edits one source before the next ticks.
type SourceChange struct {
	Kind           string   `yaml:"kind"`
	Enabled        *bool    `yaml:"enabled,omitempty"`
	Control        *float64 `yaml:"control,omitempty"`
	OutputSplitPct *float64 `yaml:"output_split_pct,omitempty"`
}

// Expected lists the figures checked after a step. Unset fields are not
// checked.
type Expected struct {
	GenKW        *float64 `yaml:"gen_kw,omitempty"`
	OutputKW     *float64 `yaml:"output_kw,omitempty"`
	SuppliedKW   *float64 `yaml:"supplied_kw,omitempty"`
	DeficitKW    *float64 `yaml:"deficit_kw,omitempty"`
	StoredKWh    *float64 `yaml:"stored_kwh,omitempty"`
	ImportKW     *float64 `yaml:"import_kw,omitempty"`
	ExportKW     *float64 `yaml:"export_kw,omitempty"`
	ShedCount    *int     `yaml:"shed_count,omitempty"`
	DieselForced *bool    `yaml:"diesel_forced,omitempty"`
	Alerts       []string `yaml:"alerts,omitempty"`
}

// Step applies its edits in field order, then runs Ticks ticks and checks
// Expect against the last one.
type Step struct {
	GridMode       string             `yaml:"grid_mode,omitempty"`
	Preset         string             `yaml:"preset,omitempty"`
	Source         *SourceChange      `yaml:"source,omitempty"`
	AddDestination *DestinationDef    `yaml:"add_destination,omitempty"`
	AddBattery     *model.BatterySpec `yaml:"add_battery,omitempty"`
	Ticks          int                `yaml:"ticks"`
	Expect         *Expected          `yaml:"expect,omitempty"`
}

type Scenario struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Grid        GridDef `yaml:"grid"`
	Steps       []Step  `yaml:"steps"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("scenario %s: missing name", path)
	}
	return &sc, nil
}
