package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/microgrid/core/model"
)

func codes(as []model.Alert) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.Code
	}
	return out
}

func TestEvaluateBatteryLevels(t *testing.T) {
	assert.Equal(t, []string{CodeSoCCritical}, codes(Evaluate(Input{SoC: 0.1})))
	assert.Equal(t, []string{CodeSoCLow}, codes(Evaluate(Input{SoC: 0.2})))
	assert.Empty(t, Evaluate(Input{SoC: 0.5}))
}

func TestEvaluateMessages(t *testing.T) {
	as := Evaluate(Input{
		SoC:           0.5,
		DieselRunning: true,
		LastGenKW:     450,
		Shedding:      model.Shedding{Active: true, Count: 2},
		Grid:          model.Grid{ImportKW: 12.34},
	})
	require.Len(t, as, 4)
	assert.Equal(t, "Diesel generator running", as[0].Message)
	assert.Equal(t, "High generation, consider exporting to grid", as[1].Message)
	assert.Equal(t, "Load shedding active (2 destination(s) curtailed)", as[2].Message)
	assert.Equal(t, model.SeverityHigh, as[2].Severity)
	assert.Equal(t, "Grid Import: 12.3 kW", as[3].Message)
}

func TestEvaluateExportAndStale(t *testing.T) {
	as := Evaluate(Input{SoC: 0.9, Grid: model.Grid{ExportKW: 5}, SupplyStale: true})
	assert.Equal(t, []string{CodeGridExport, CodeSupplyStale}, codes(as))
}

func TestLogBounded(t *testing.T) {
	l := NewLog(3)
	for i := 0; i < 5; i++ {
		l.Record([]model.Alert{{Tick: uint64(i)}})
	}
	h := l.History()
	require.Len(t, h, 3)
	assert.Equal(t, uint64(2), h[0].Tick)
	assert.Equal(t, uint64(4), h[2].Tick)
	assert.Equal(t, []model.Alert{{Tick: 4}}, l.Active())

	l.Record(nil)
	assert.Empty(t, l.Active())
	assert.Len(t, l.History(), 3)

	l.Reset()
	assert.Empty(t, l.History())
}

func TestNewLogDefaultSize(t *testing.T) {
	l := NewLog(0)
	for i := 0; i < DefaultLogSize+10; i++ {
		l.Record([]model.Alert{{Tick: uint64(i)}})
	}
	assert.Len(t, l.History(), DefaultLogSize)
}
