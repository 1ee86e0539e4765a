package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/microgrid/core/metrics"
	eco "github.com/kilianp07/microgrid/core/metrics/eco"
	"github.com/kilianp07/microgrid/core/model"
)

// EcoSink aggregates tick production into daily energy KPIs.
type EcoSink struct {
	store     eco.Store
	factor    float64
	generated *prometheus.GaugeVec
	co2       *prometheus.GaugeVec
}

// NewEcoSink creates a sink with Prometheus gauges registered on reg.
func NewEcoSink(store eco.Store, factor float64, reg prometheus.Registerer) (*EcoSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if factor <= 0 {
		factor = eco.DefaultCO2Factor
	}
	s := &EcoSink{store: store, factor: factor}
	var err error
	if s.generated, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microgrid_daily_generated_kwh",
		Help: "Energy produced per source and day",
	}, []string{"source", "day"})); err != nil {
		return nil, err
	}
	if s.co2, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microgrid_daily_co2_avoided_grams",
		Help: "CO2 avoided per source and day",
	}, []string{"source", "day"})); err != nil {
		return nil, err
	}
	return s, nil
}

// Store returns the KPI store the sink writes to.
func (s *EcoSink) Store() eco.Store { return s.store }

// RecordTick accumulates the energy of the tick and refreshes the gauges.
func (s *EcoSink) RecordTick(sum model.TickSummary) error {
	for _, rec := range eco.FromSummary(sum) {
		if err := s.store.Add(rec); err != nil {
			return err
		}
		day := eco.Day(rec.Date)
		records, err := s.store.Query(rec.Source, day, day)
		if err != nil {
			return err
		}
		if len(records) > 0 {
			rr := records[0]
			label := day.Format("2006-01-02")
			s.generated.WithLabelValues(rec.Source.String(), label).Set(rr.GeneratedKWh)
			s.co2.WithLabelValues(rec.Source.String(), label).Set(rr.CO2Avoided(s.factor))
		}
	}
	return nil
}

var _ coremetrics.MetricsSink = (*EcoSink)(nil)
