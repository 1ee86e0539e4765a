// Package api exposes the simulation over HTTP: read endpoints for every
// role and edit endpoints for roles allowed to change the grid.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kilianp07/microgrid/api/sources"
	"github.com/kilianp07/microgrid/api/ticks"
	"github.com/kilianp07/microgrid/auth"
	"github.com/kilianp07/microgrid/core/balance"
	"github.com/kilianp07/microgrid/core/engine"
	"github.com/kilianp07/microgrid/core/logger"
	eco "github.com/kilianp07/microgrid/core/metrics/eco"
	"github.com/kilianp07/microgrid/core/prediction"
	"github.com/kilianp07/microgrid/core/storage"
	"github.com/kilianp07/microgrid/core/ticklog"
)

// Options holds the optional collaborators of the API.
type Options struct {
	Auth      *auth.Authenticator
	Balance   *balance.Controller
	TickLog   ticklog.Store
	Eco       eco.Store
	CO2Factor float64
	Predictor prediction.PredictionEngine
	Logger    logger.Logger
}

// Server serves the HTTP API of one engine.
type Server struct {
	engine *engine.Engine
	opts   Options
	log    logger.Logger
}

// NewServer builds the API. Missing options fall back to an open
// authenticator, a discarding tick log and the sum predictor.
func NewServer(e *engine.Engine, opts Options) (*Server, error) {
	if opts.Auth == nil {
		a, err := auth.New(auth.Conf{})
		if err != nil {
			return nil, err
		}
		opts.Auth = a
	}
	if opts.TickLog == nil {
		opts.TickLog = ticklog.NopStore{}
	}
	if opts.Eco == nil {
		opts.Eco = eco.NewMemoryStore()
	}
	if opts.CO2Factor == 0 {
		opts.CO2Factor = eco.DefaultCO2Factor
	}
	if opts.Predictor == nil {
		opts.Predictor = prediction.SumModel{}
	}
	return &Server{engine: e, opts: opts, log: logger.OrNop(opts.Logger)}, nil
}

// Routes returns the HTTP handler of the API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.opts.Auth.Middleware)

		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/history", s.handleHistory)
		r.Get("/alerts", s.handleAlerts)
		r.Get("/forecast", s.handleForecast)
		r.Get("/presets", s.handlePresets)
		r.Get("/balance", s.handleBalance)
		r.Method(http.MethodGet, "/ticks", ticks.NewLogHandler(s.opts.TickLog))
		r.Method(http.MethodGet, "/sources/{kind}/kpis", sources.NewKPIHandler(s.opts.Eco, s.opts.CO2Factor, nil))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireEdit)

			r.Put("/sources/{kind}", s.handleSetSource)
			r.Post("/batteries", s.handleAddBattery)
			r.Post("/batteries/reset", s.handleResetBatteries)
			r.Delete("/batteries/{id}", s.handleRemoveBattery)
			r.Post("/destinations", s.handleAddDestination)
			r.Post("/destinations/reset", s.handleResetDestinations)
			r.Patch("/destinations/{id}", s.handleUpdateDestination)
			r.Delete("/destinations/{id}", s.handleRemoveDestination)
			r.Put("/grid", s.handleSetGrid)
			r.Put("/weather", s.handleSetWeather)
			r.Put("/speed", s.handleSetSpeed)
			r.Put("/balance", s.handleSetBalance)
			r.Post("/presets/{name}", s.handleApplyPreset)
			r.Post("/force", s.handleForce)
			r.Post("/reset", s.handleReset)
			r.Post("/tick", s.handleTick)
		})
	})
	return r
}

// ListenAndServe runs the API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Routes(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
		cancel()
	}()
	s.log.Infof("api listening on %s", addr)
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

// respondCommandError maps engine errors to status codes: unknown
// identifiers are 404, rejected edits 400 and a busy engine 409.
func respondCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownDestination), errors.Is(err, storage.ErrUnknownBattery):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrConfigRejected):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrTickInProgress):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
