package engine

import (
	"sort"

	"github.com/kilianp07/microgrid/core/model"
)

// Preset is a named set of source controls and output splits. Enabled is
// ignored.
type Preset map[model.SourceKind]SourceConfig

var presets = map[string]Preset{
	"sunny": {
		model.SourceSolar:  {Control: 100, OutputSplitPct: 90},
		model.SourceWind:   {Control: 5, OutputSplitPct: 40},
		model.SourceHydro:  {Control: 40, OutputSplitPct: 50},
		model.SourceDiesel: {Control: 0, OutputSplitPct: 100},
	},
	"windy": {
		model.SourceSolar:  {Control: 30, OutputSplitPct: 30},
		model.SourceWind:   {Control: 18, OutputSplitPct: 90},
		model.SourceHydro:  {Control: 50, OutputSplitPct: 50},
		model.SourceDiesel: {Control: 0, OutputSplitPct: 100},
	},
	"hydro": {
		model.SourceSolar:  {Control: 40, OutputSplitPct: 40},
		model.SourceWind:   {Control: 8, OutputSplitPct: 40},
		model.SourceHydro:  {Control: 100, OutputSplitPct: 90},
		model.SourceDiesel: {Control: 0, OutputSplitPct: 100},
	},
	"diesel": {
		model.SourceSolar:  {Control: 0, OutputSplitPct: 0},
		model.SourceWind:   {Control: 0, OutputSplitPct: 0},
		model.SourceHydro:  {Control: 0, OutputSplitPct: 0},
		model.SourceDiesel: {Control: 1, OutputSplitPct: 100},
	},
}

// PresetNames lists the available presets.
func PresetNames() []string {
	out := make([]string, 0, len(presets))
	for n := range presets {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ApplyPreset sets the control and output split of every source from a
// named preset. The renewables keep their enabled flag; the diesel is
// enabled when the preset switches it on.
func (e *Engine) ApplyPreset(name string) error {
	const op = "apply_preset"
	return e.command(op, func(s *State) (string, error) {
		p, ok := presets[name]
		if !ok {
			return "", rejected(op, "unknown preset %q (known: %v)", name, PresetNames())
		}
		for k, sc := range p {
			src := s.Sources[k]
			if k == model.SourceDiesel && sc.Control > 0 {
				src.Enabled = true
			}
			src.Control = sc.Control
			src.OutputSplitPct = sc.OutputSplitPct
		}
		return name, nil
	})
}
