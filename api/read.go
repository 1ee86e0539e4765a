package api

import (
	"net/http"

	"github.com/kilianp07/microgrid/core/engine"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/core/prediction"
)

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	Gen     []float64                      `json:"gen"`
	Output  []float64                      `json:"output"`
	Stored  []float64                      `json:"stored"`
	Sources map[model.SourceKind][]float64 `json:"sources"`
}

// AlertsResponse is the body of GET /api/alerts.
type AlertsResponse struct {
	Active  []model.Alert `json:"active"`
	History []model.Alert `json:"history"`
}

// ForecastResponse is the body of GET /api/forecast. NextGenKW comes from
// the configured predictor applied to the current outputs.
type ForecastResponse struct {
	prediction.Forecast
	NextGenKW float64 `json:"next_gen_kw"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	out := HistoryResponse{
		Gen:     snap.History.Gen.Values(),
		Output:  snap.History.Output.Values(),
		Stored:  snap.History.Stored.Values(),
		Sources: make(map[model.SourceKind][]float64, len(snap.Sources)),
	}
	for k, src := range snap.Sources {
		out.Sources[k] = src.History.Values()
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	log := s.engine.Alerts()
	respondJSON(w, http.StatusOK, AlertsResponse{Active: log.Active(), History: log.History()})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	in := prediction.Input{
		SolarKW:    snap.Sources[model.SourceSolar].AvailableKW,
		WindKW:     snap.Sources[model.SourceWind].AvailableKW,
		HydroKW:    snap.Sources[model.SourceHydro].AvailableKW,
		BatterySoC: snap.SoC,
	}
	respondJSON(w, http.StatusOK, ForecastResponse{
		Forecast:  prediction.FromHistory(snap.History, prediction.DefaultWindow),
		NextGenKW: s.opts.Predictor.PredictNext(in),
	})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, engine.PresetNames())
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	enabled := s.opts.Balance != nil && s.opts.Balance.Enabled()
	respondJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}
