package kpi

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/microgrid/core/metrics/eco"
	"github.com/kilianp07/microgrid/core/model"
)

func TestSQLiteStoreAccumulatesPerDay(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kpi.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	day := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.Add(eco.Record{Source: model.SourceSolar, Date: day, GeneratedKWh: 1.5}))
	require.NoError(t, s.Add(eco.Record{Source: model.SourceSolar, Date: day.Add(4 * time.Hour), GeneratedKWh: 2}))
	require.NoError(t, s.Add(eco.Record{Source: model.SourceSolar, Date: day.AddDate(0, 0, 1), GeneratedKWh: 4}))
	require.NoError(t, s.Add(eco.Record{Source: model.SourceWind, Date: day, GeneratedKWh: 9}))

	recs, err := s.Query(model.SourceSolar, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 3.5, recs[0].GeneratedKWh)
	assert.Equal(t, eco.Day(day), recs[0].Date)
	assert.Equal(t, 4.0, recs[1].GeneratedKWh)
	assert.Equal(t, model.SourceSolar, recs[1].Source)

	recs, err = s.Query(model.SourceHydro, day, day)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
