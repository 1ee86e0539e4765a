package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/microgrid/core/engine"
	"github.com/kilianp07/microgrid/core/model"
)

type gridRequest struct {
	Mode string `json:"mode"`
}

type weatherRequest struct {
	Enabled     bool `json:"enabled"`
	TimeMinutes *int `json:"time_minutes,omitempty"`
}

type speedRequest struct {
	Multiplier float64 `json:"multiplier"`
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

type forceRequest struct {
	ToOutput bool `json:"to_output"`
}

type resetRequest struct {
	// Scope is "accounting" or "all".
	Scope string `json:"scope"`
}

func (s *Server) handleSetSource(w http.ResponseWriter, r *http.Request) {
	kind, err := model.ParseSourceKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	var ed engine.SourceEdit
	if !decode(w, r, &ed) {
		return
	}
	s.done(w, s.engine.SetSource(kind, ed))
}

func (s *Server) handleAddBattery(w http.ResponseWriter, r *http.Request) {
	var spec model.BatterySpec
	if !decode(w, r, &spec) {
		return
	}
	b, err := s.engine.AddBattery(spec)
	if err != nil {
		respondCommandError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

func (s *Server) handleRemoveBattery(w http.ResponseWriter, r *http.Request) {
	s.done(w, s.engine.RemoveBattery(chi.URLParam(r, "id")))
}

func (s *Server) handleResetBatteries(w http.ResponseWriter, r *http.Request) {
	s.done(w, s.engine.ResetBatteries())
}

func (s *Server) handleAddDestination(w http.ResponseWriter, r *http.Request) {
	var spec engine.DestinationSpec
	if !decode(w, r, &spec) {
		return
	}
	d, err := s.engine.AddDestination(spec)
	if err != nil {
		respondCommandError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (s *Server) handleUpdateDestination(w http.ResponseWriter, r *http.Request) {
	var ed engine.DestinationEdit
	if !decode(w, r, &ed) {
		return
	}
	d, err := s.engine.UpdateDestination(chi.URLParam(r, "id"), ed)
	if err != nil {
		respondCommandError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleRemoveDestination(w http.ResponseWriter, r *http.Request) {
	s.done(w, s.engine.RemoveDestination(chi.URLParam(r, "id")))
}

func (s *Server) handleResetDestinations(w http.ResponseWriter, r *http.Request) {
	s.done(w, s.engine.ResetDestinations())
}

func (s *Server) handleSetGrid(w http.ResponseWriter, r *http.Request) {
	var req gridRequest
	if !decode(w, r, &req) {
		return
	}
	s.done(w, s.engine.SetGridMode(req.Mode))
}

func (s *Server) handleSetWeather(w http.ResponseWriter, r *http.Request) {
	var req weatherRequest
	if !decode(w, r, &req) {
		return
	}
	s.done(w, s.engine.SetWeather(req.Enabled, req.TimeMinutes))
}

func (s *Server) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if !decode(w, r, &req) {
		return
	}
	s.done(w, s.engine.SetSpeed(req.Multiplier))
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	if s.opts.Balance == nil {
		respondError(w, http.StatusNotFound, "auto-balance is not running")
		return
	}
	var req toggleRequest
	if !decode(w, r, &req) {
		return
	}
	s.opts.Balance.SetEnabled(req.Enabled)
	s.log.Infof("auto-balance enabled=%t", req.Enabled)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	s.done(w, s.engine.ApplyPreset(chi.URLParam(r, "name")))
}

func (s *Server) handleForce(w http.ResponseWriter, r *http.Request) {
	var req forceRequest
	if !decode(w, r, &req) {
		return
	}
	s.done(w, s.engine.ForceAll(req.ToOutput))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decode(w, r, &req) {
		return
	}
	switch req.Scope {
	case "accounting":
		s.done(w, s.engine.ResetAccounting())
	case "all":
		s.done(w, s.engine.ResetAll())
	default:
		respondError(w, http.StatusBadRequest, "scope must be accounting or all")
	}
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	sum, err := s.engine.Tick(r.Context())
	if err != nil {
		respondCommandError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

func (s *Server) done(w http.ResponseWriter, err error) {
	if err != nil {
		respondCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
