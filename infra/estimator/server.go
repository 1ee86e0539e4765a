// Package estimator serves the generation physics model and the next-step
// forecast over HTTP, and provides the client the engine uses to reach it.
package estimator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kilianp07/microgrid/core/estimation"
	"github.com/kilianp07/microgrid/core/logger"
	"github.com/kilianp07/microgrid/core/prediction"
)

// HealthStatus is reported by GET /health.
const HealthStatus = "backend running"

// ForecastRequest is the body of POST /forecast. BatterySoC defaults to
// prediction.DefaultBatterySoC when omitted.
type ForecastRequest struct {
	SolarKW    float64  `json:"solar_kw"`
	WindKW     float64  `json:"wind_kw"`
	HydroKW    float64  `json:"hydro_kw"`
	BatterySoC *float64 `json:"battery_soc,omitempty"`
}

// ForecastResponse is the body returned by POST /forecast.
type ForecastResponse struct {
	GenKW float64 `json:"gen_kw"`
}

// Server exposes the estimation model and forecast engine.
type Server struct {
	model    estimation.Model
	forecast prediction.PredictionEngine
	log      logger.Logger
}

// NewServer builds a Server. A nil forecast engine selects the sum fallback.
func NewServer(model estimation.Model, forecast prediction.PredictionEngine, log logger.Logger) *Server {
	if forecast == nil {
		forecast = prediction.SumModel{}
	}
	return &Server{model: model, forecast: forecast, log: logger.OrNop(log)}
}

// Routes returns the HTTP handler of the server.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post("/simulate", s.handleSimulate)
	r.Post("/forecast", s.handleForecast)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": HealthStatus})
	})
	return r
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req estimation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res := s.model.Compute(req)
	s.log.Debugw("estimate", map[string]any{
		"sunlight": req.Sunlight,
		"wind":     req.Wind,
		"hydro":    req.Hydro,
		"total_kw": res.Total(),
	})
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	var req ForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in := prediction.Input{SolarKW: req.SolarKW, WindKW: req.WindKW, HydroKW: req.HydroKW, BatterySoC: prediction.DefaultBatterySoC}
	if req.BatterySoC != nil {
		in.BatterySoC = *req.BatterySoC
	}
	respondJSON(w, http.StatusOK, ForecastResponse{GenKW: s.forecast.PredictNext(in)})
}

// ListenAndServe runs the server on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Routes(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("estimator shutdown: %v", err)
		}
		cancel()
	}()
	s.log.Infof("estimator listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
