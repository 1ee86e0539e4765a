package metrics

import (
	"errors"

	"github.com/kilianp07/microgrid/core/model"
)

// MultiSink fans records out to several sinks. Every sink is tried; the
// errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTick forwards the summary to all sinks.
func (m *MultiSink) RecordTick(s model.TickSummary) error {
	var errs []error
	for _, sink := range m.Sinks {
		if err := sink.RecordTick(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordAlert forwards alerts to the sinks supporting them.
func (m *MultiSink) RecordAlert(a model.Alert) error {
	var errs []error
	for _, sink := range m.Sinks {
		if rec, ok := sink.(AlertRecorder); ok {
			if err := rec.RecordAlert(a); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordSupplyFailure forwards estimator outages.
func (m *MultiSink) RecordSupplyFailure(ev SupplyFailure) error {
	var errs []error
	for _, sink := range m.Sinks {
		if rec, ok := sink.(SupplyFailureRecorder); ok {
			if err := rec.RecordSupplyFailure(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
