package metrics

import (
	"time"

	"github.com/kilianp07/microgrid/core/model"
)

// MetricsSink records the summary of each completed tick.
type MetricsSink interface {
	RecordTick(s model.TickSummary) error
}

// AlertRecorder is implemented by sinks able to record advisory alerts.
type AlertRecorder interface {
	RecordAlert(a model.Alert) error
}

// SupplyFailure describes a tick that ran on stale availability values.
type SupplyFailure struct {
	Tick   uint64
	Reason string
	Time   time.Time
}

// SupplyFailureRecorder is implemented by sinks counting estimator outages.
type SupplyFailureRecorder interface {
	RecordSupplyFailure(ev SupplyFailure) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordTick(model.TickSummary) error      { return nil }
func (NopSink) RecordAlert(model.Alert) error           { return nil }
func (NopSink) RecordSupplyFailure(SupplyFailure) error { return nil }
