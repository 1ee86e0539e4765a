// Package app wires the engine, its schedulers and the optional adapters
// (HTTP API, MQTT telemetry, metrics sinks, tick log) into one service.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/microgrid/api"
	"github.com/kilianp07/microgrid/auth"
	"github.com/kilianp07/microgrid/config"
	"github.com/kilianp07/microgrid/core/balance"
	"github.com/kilianp07/microgrid/core/engine"
	"github.com/kilianp07/microgrid/core/events"
	coremetrics "github.com/kilianp07/microgrid/core/metrics"
	eco "github.com/kilianp07/microgrid/core/metrics/eco"
	coremon "github.com/kilianp07/microgrid/core/monitoring"
	"github.com/kilianp07/microgrid/core/prediction"
	"github.com/kilianp07/microgrid/core/ticklog"
	"github.com/kilianp07/microgrid/infra/estimator"
	"github.com/kilianp07/microgrid/infra/logger"
	"github.com/kilianp07/microgrid/infra/metrics"
	"github.com/kilianp07/microgrid/infra/monitoring"
	"github.com/kilianp07/microgrid/infra/mqtt"
	"github.com/kilianp07/microgrid/infra/telemetry"
	"github.com/kilianp07/microgrid/internal/eventbus"
)

var registerEngineMetrics sync.Once

// Service runs one simulated micro-grid.
type Service struct {
	Engine  *engine.Engine
	Balance *balance.Controller

	cfg       *config.Config
	sink      coremetrics.MetricsSink
	mqtt      *mqtt.PahoClient
	telemetry *telemetry.Manager
	api       *api.Server
	monitor   coremon.Monitor
	log       logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logger.SetLevel(cfg.Logging.Level)
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}

	eng, err := engine.New(cfg.Engine, nil, logger.New("engine"))
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	eng.SetMonitor(mon)
	if cfg.Estimator.URL != "" {
		eng.SetEstimator(estimator.NewClient(cfg.Estimator.URL, cfg.Estimator.Timeout))
		logg.Infof("remote estimator %s", cfg.Estimator.URL)
	}
	bus := eventbus.NewTyped[events.Event]()
	eng.SetBus(bus)

	store, err := ticklog.Open(cfg.TickLog)
	if err != nil {
		return nil, fmt.Errorf("tick log: %w", err)
	}
	eng.SetLogStore(store)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = eng.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	eng.SetMetricsSink(sink)
	if cfg.Metrics.PrometheusAddr != "" {
		registerEngineMetrics.Do(func() { engine.MustRegisterMetrics(prometheus.DefaultRegisterer) })
		if err := metrics.RegisterBusDropped(prometheus.DefaultRegisterer, bus); err != nil {
			_ = eng.Close()
			closeSink(sink)
			return nil, fmt.Errorf("bus metrics: %w", err)
		}
	}

	svc := &Service{
		Engine:  eng,
		Balance: balance.New(eng, cfg.Balance.Period, logger.New("balance")),
		cfg:     cfg,
		sink:    sink,
		monitor: mon,
		log:     logg,
	}
	svc.Balance.SetEnabled(cfg.Balance.Enabled)

	if cfg.MQTT.Enabled {
		cli, err := mqtt.NewPahoClient(cfg.MQTT, mon)
		if err != nil {
			_ = eng.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.mqtt = cli
		svc.telemetry, err = telemetry.NewManager(cfg.Telemetry, cli, cfg.MQTT.Topics(), eng, bus, prometheus.DefaultRegisterer, logger.New("telemetry"))
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("telemetry: %w", err)
		}
	}

	if cfg.API.Listen != "" {
		if svc.api, err = newAPI(cfg, eng, svc.Balance, store, sink); err != nil {
			_ = svc.Close()
			return nil, err
		}
	}
	return svc, nil
}

func newAPI(cfg *config.Config, eng *engine.Engine, bal *balance.Controller, store ticklog.Store, sink coremetrics.MetricsSink) (*api.Server, error) {
	authn, err := auth.New(cfg.API.Auth)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	pred, err := prediction.NewEngine(cfg.Estimator.Linear)
	if err != nil {
		return nil, fmt.Errorf("prediction: %w", err)
	}
	return api.NewServer(eng, api.Options{
		Auth:      authn,
		Balance:   bal,
		TickLog:   store,
		Eco:       ecoStore(sink),
		Predictor: pred,
		Logger:    logger.New("api"),
	})
}

// ecoStore returns the store of the first eco sink, or nil.
func ecoStore(sink coremetrics.MetricsSink) eco.Store {
	switch s := sink.(type) {
	case *metrics.EcoSink:
		return s.Store()
	case *coremetrics.MultiSink:
		for _, inner := range s.Sinks {
			if st := ecoStore(inner); st != nil {
				return st
			}
		}
	}
	return nil
}

func closeSink(sink coremetrics.MetricsSink) {
	switch s := sink.(type) {
	case interface{ Close() }:
		s.Close()
	case *coremetrics.MultiSink:
		for _, inner := range s.Sinks {
			closeSink(inner)
		}
	}
}

// Run starts every loop and blocks until the context is cancelled or one of
// the listeners fails, in which case that first error is returned. The tick
// in flight at shutdown completes before Run returns.
func (s *Service) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			s.log.Errorf("%v", err)
		})
		cancel()
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.StartPromServer(runCtx, addr, prometheus.DefaultGatherer, s.log); err != nil {
				fail(fmt.Errorf("prom server: %w", err))
			}
		}()
	}
	if s.api != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.api.ListenAndServe(runCtx, s.cfg.API.Listen); err != nil {
				fail(fmt.Errorf("api: %w", err))
			}
		}()
	}
	if s.telemetry != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.telemetry.Start(runCtx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Balance.Run(runCtx)
	}()

	engine.NewRunner(s.Engine, 0, logger.New("runner")).Run(runCtx)
	cancel()
	wg.Wait()
	return firstErr
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if err := s.Engine.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	closeSink(s.sink)
	s.monitor.Flush(2 * time.Second)
	return errors.Join(errs...)
}
