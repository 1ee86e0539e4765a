package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/microgrid/core/metrics"
	"github.com/kilianp07/microgrid/core/model"
)

// PromSink exposes the latest tick figures as Prometheus gauges.
type PromSink struct {
	generation *prometheus.GaugeVec
	power      *prometheus.GaugeVec
	stored     prometheus.Gauge
	soc        prometheus.Gauge
	grid       *prometheus.GaugeVec
	shed       prometheus.Gauge
	alerts     *prometheus.CounterVec
}

// NewPromSink registers tick metrics on the default Prometheus registerer.
// The Prometheus server is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// register adds c to reg, reusing the collector already registered under the
// same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.generation, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microgrid_source_available_kw",
		Help: "Available power per source at the last tick",
	}, []string{"source"})); err != nil {
		return nil, err
	}
	if s.power, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microgrid_power_kw",
		Help: "Combined power flows at the last tick",
	}, []string{"flow"})); err != nil {
		return nil, err
	}
	if s.stored, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "microgrid_stored_energy_kwh",
		Help: "Energy stored across all batteries",
	})); err != nil {
		return nil, err
	}
	if s.soc, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "microgrid_state_of_charge_ratio",
		Help: "Aggregate battery state of charge in [0,1]",
	})); err != nil {
		return nil, err
	}
	if s.grid, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microgrid_grid_kw",
		Help: "Grid import and export at the last tick",
	}, []string{"direction"})); err != nil {
		return nil, err
	}
	if s.shed, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "microgrid_shed_destinations",
		Help: "Destinations curtailed at the last tick",
	})); err != nil {
		return nil, err
	}
	if s.alerts, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "microgrid_alerts_total",
		Help: "Alerts raised by code and severity",
	}, []string{"code", "severity"})); err != nil {
		return nil, err
	}
	return s, nil
}

// RecordTick sets the gauges from the summary.
func (s *PromSink) RecordTick(sum model.TickSummary) error {
	for _, k := range model.SourceKinds {
		s.generation.WithLabelValues(k.String()).Set(sum.AvailableKW[k])
	}
	s.power.WithLabelValues("generation").Set(sum.TotalGenKW)
	s.power.WithLabelValues("output").Set(sum.TotalOutputKW)
	s.power.WithLabelValues("surplus").Set(sum.TotalSurplusKW)
	s.power.WithLabelValues("demand").Set(sum.TotalDemandKW)
	s.power.WithLabelValues("supplied").Set(sum.TotalSuppliedKW)
	s.stored.Set(sum.StoredKWh)
	s.soc.Set(sum.SoC)
	s.grid.WithLabelValues("import").Set(sum.Grid.ImportKW)
	s.grid.WithLabelValues("export").Set(sum.Grid.ExportKW)
	s.shed.Set(float64(sum.Shedding.Count))
	return nil
}

// RecordAlert increments the alert counter.
func (s *PromSink) RecordAlert(a model.Alert) error {
	s.alerts.WithLabelValues(a.Code, string(a.Severity)).Inc()
	return nil
}

var (
	_ coremetrics.MetricsSink   = (*PromSink)(nil)
	_ coremetrics.AlertRecorder = (*PromSink)(nil)
)
