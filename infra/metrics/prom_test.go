package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/microgrid/core/events"
	eco "github.com/kilianp07/microgrid/core/metrics/eco"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/internal/eventbus"
)

func TestPromSinkRecordTick(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordTick(sampleSummary(time.Now())))
	assert.Equal(t, 80.0, testutil.ToFloat64(sink.generation.WithLabelValues("solar")))
	assert.Equal(t, 0.0, testutil.ToFloat64(sink.generation.WithLabelValues("diesel")))
	assert.Equal(t, 70.0, testutil.ToFloat64(sink.power.WithLabelValues("supplied")))
	assert.Equal(t, 500.0, testutil.ToFloat64(sink.stored))
	assert.Equal(t, 0.25, testutil.ToFloat64(sink.soc))
	assert.Equal(t, 30.0, testutil.ToFloat64(sink.grid.WithLabelValues("import")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.shed))

	require.NoError(t, sink.RecordAlert(model.Alert{Code: "shedding", Severity: model.SeverityHigh}))
	require.NoError(t, sink.RecordAlert(model.Alert{Code: "shedding", Severity: model.SeverityHigh}))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.alerts.WithLabelValues("shedding", "high")))
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, second.RecordTick(sampleSummary(time.Now())))
	assert.Equal(t, 500.0, testutil.ToFloat64(first.stored))
}

func TestEcoSinkAccumulatesDailyEnergy(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := eco.NewMemoryStore()
	sink, err := NewEcoSink(store, 0, reg)
	require.NoError(t, err)

	day := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, sink.RecordTick(model.TickSummary{
			Time:        day.Add(time.Duration(i) * time.Hour),
			DeltaHours:  1,
			AvailableKW: map[model.SourceKind]float64{model.SourceSolar: 10},
		}))
	}
	assert.Equal(t, 30.0, testutil.ToFloat64(sink.generated.WithLabelValues("solar", "2024-07-01")))
	assert.Equal(t, 30*eco.DefaultCO2Factor, testutil.ToFloat64(sink.co2.WithLabelValues("solar", "2024-07-01")))
}

func TestRegisterBusDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	bus := eventbus.NewTypedWithBuffer[events.Event](1)
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)
	require.NoError(t, RegisterBusDropped(reg, bus))

	for i := 0; i < 3; i++ {
		bus.Publish(events.AlertEvent{Alert: model.Alert{Code: "grid_import"}})
	}
	n, err := testutil.GatherAndCount(reg, "microgrid_bus_events_dropped_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Equal(t, 2.0, mfs[0].GetMetric()[0].GetCounter().GetValue())
	// registering twice keeps the first collector
	assert.NoError(t, RegisterBusDropped(reg, bus))
}
