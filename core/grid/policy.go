// Package grid decides how the micro-grid trades with the utility network.
package grid

import "github.com/kilianp07/microgrid/core/model"

// HybridImportSoC is the state of charge below which hybrid mode imports.
const HybridImportSoC = 0.20

// Inputs are the per-tick figures the policy reacts to.
type Inputs struct {
	DeficitKW float64
	SurplusKW float64
	SoC       float64
}

// Decision is the interconnection outcome of one tick.
type Decision struct {
	ImportKW    float64
	ExportKW    float64
	ForceDiesel bool
}

// Grid returns the decision as a grid state for mode.
func (d Decision) Grid(mode model.GridMode) model.Grid {
	return model.Grid{Mode: mode, ImportKW: d.ImportKW, ExportKW: d.ExportKW}
}

// ParseMode validates a mode name coming from a configuration surface.
func ParseMode(s string) (model.GridMode, error) { return model.ParseGridMode(s) }

// Evaluate applies the interconnection policy table. Unknown modes behave
// like island mode without forcing diesel.
func Evaluate(mode model.GridMode, in Inputs) Decision {
	deficit := positive(in.DeficitKW)
	surplus := positive(in.SurplusKW)
	switch mode {
	case model.GridConnected:
		return Decision{ImportKW: deficit, ExportKW: surplus}
	case model.GridHybrid:
		d := Decision{ExportKW: surplus}
		if in.SoC < HybridImportSoC {
			d.ImportKW = deficit
		}
		return d
	case model.GridIsland:
		return Decision{ForceDiesel: deficit > 0}
	default:
		return Decision{}
	}
}

func positive(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}
