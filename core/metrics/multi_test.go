package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/microgrid/core/factory"
	"github.com/kilianp07/microgrid/core/model"
)

type recordSink struct {
	ticks, alerts int
	err           error
}

func (r *recordSink) RecordTick(model.TickSummary) error {
	r.ticks++
	return r.err
}

func (r *recordSink) RecordAlert(model.Alert) error {
	r.alerts++
	return nil
}

type tickOnly struct{ n int }

func (t *tickOnly) RecordTick(model.TickSummary) error { t.n++; return nil }

func TestMultiSinkForwards(t *testing.T) {
	s1 := &recordSink{}
	s2 := &tickOnly{}
	m := NewMultiSink(s1, s2)
	assert.NoError(t, m.RecordTick(model.TickSummary{}))
	assert.NoError(t, m.RecordAlert(model.Alert{}))
	assert.NoError(t, m.RecordSupplyFailure(SupplyFailure{}))
	assert.Equal(t, 1, s1.ticks)
	assert.Equal(t, 1, s1.alerts)
	assert.Equal(t, 1, s2.n)
}

func TestMultiSinkContinuesAfterError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &tickOnly{}
	err := NewMultiSink(s1, s2).RecordTick(model.TickSummary{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s2.n)
}

func TestNewMetricsSinkDefaults(t *testing.T) {
	s, err := NewMetricsSink(nil)
	assert.NoError(t, err)
	assert.IsType(t, NopSink{}, s)
}

func TestNewMetricsSinkBuildsRegistered(t *testing.T) {
	name := "test-record-" + t.Name()
	assert.NoError(t, RegisterMetricsSink(name, func(map[string]any) (MetricsSink, error) {
		return &tickOnly{}, nil
	}))
	assert.Contains(t, SinkTypes(), name)

	s, err := NewMetricsSink([]factory.ModuleConfig{{Type: name}})
	assert.NoError(t, err)
	assert.IsType(t, &tickOnly{}, s)

	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: name}, {Type: name}})
	assert.NoError(t, err)
	assert.IsType(t, &MultiSink{}, s)

	_, err = NewMetricsSink([]factory.ModuleConfig{{Type: name}, {Type: "missing"}})
	assert.ErrorContains(t, err, "sink 1 (missing)")
}
