// Package export writes tick summaries for offline analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/microgrid/core/model"
)

// Header lists the CSV columns written by WriteCSV.
var Header = []string{
	"tick", "time", "delta_hours",
	"solar_kw", "wind_kw", "hydro_kw", "diesel_kw",
	"gen_kw", "output_kw", "surplus_kw", "demand_kw", "supplied_kw", "deficit_kw",
	"charged_kwh", "discharged_kwh", "stored_kwh", "soc",
	"grid_mode", "import_kw", "export_kw", "shed_count",
}

// WriteJSON writes the summaries to w as one JSON array.
func WriteJSON(w io.Writer, summaries []model.TickSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}

// WriteCSV writes one row per summary with the Header columns.
func WriteCSV(w io.Writer, summaries []model.TickSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, s := range summaries {
		rec := []string{
			strconv.FormatUint(s.Tick, 10),
			s.Time.Format(time.RFC3339),
			num(s.DeltaHours),
			num(s.AvailableKW[model.SourceSolar]),
			num(s.AvailableKW[model.SourceWind]),
			num(s.AvailableKW[model.SourceHydro]),
			num(s.AvailableKW[model.SourceDiesel]),
			num(s.TotalGenKW),
			num(s.TotalOutputKW),
			num(s.TotalSurplusKW),
			num(s.TotalDemandKW),
			num(s.TotalSuppliedKW),
			num(s.DeficitKW),
			num(s.ChargedKWh),
			num(s.DischargedKWh),
			num(s.StoredKWh),
			num(s.SoC),
			string(s.Grid.Mode),
			num(s.Grid.ImportKW),
			num(s.Grid.ExportKW),
			strconv.Itoa(s.Shedding.Count),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write dispatches to WriteCSV or WriteJSON by format name.
func Write(w io.Writer, format string, summaries []model.TickSummary) error {
	switch format {
	case "csv":
		return WriteCSV(w, summaries)
	case "json":
		return WriteJSON(w, summaries)
	default:
		return fmt.Errorf("export: unknown format %q", format)
	}
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
