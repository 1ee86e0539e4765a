package ecokpi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/microgrid/core/metrics/eco"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/core/ticklog"
)

func TestBackfill(t *testing.T) {
	day := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	history := []ticklog.Record{
		ticklog.FromSummary(model.TickSummary{Tick: 1, Time: day, DeltaHours: 1, AvailableKW: map[model.SourceKind]float64{model.SourceSolar: 10, model.SourceDiesel: 50}}),
		ticklog.FromSummary(model.TickSummary{Tick: 2, Time: day.Add(time.Hour), DeltaHours: 1, AvailableKW: map[model.SourceKind]float64{model.SourceSolar: 20}}),
	}
	store := eco.NewMemoryStore()
	n, err := Backfill(store, history)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	solar, err := store.Query(model.SourceSolar, day, day)
	require.NoError(t, err)
	require.Len(t, solar, 1)
	assert.Equal(t, 30.0, solar[0].GeneratedKWh)

	diesel, err := store.Query(model.SourceDiesel, day, day)
	require.NoError(t, err)
	require.Len(t, diesel, 1)
	assert.Equal(t, 0.0, diesel[0].CO2Avoided(eco.DefaultCO2Factor))
}
