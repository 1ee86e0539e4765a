package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/microgrid/core/model"
)

func TestEvaluateGridMode(t *testing.T) {
	d := Evaluate(model.GridConnected, Inputs{DeficitKW: 12, SurplusKW: 0, SoC: 0.9})
	assert.Equal(t, Decision{ImportKW: 12}, d)
	d = Evaluate(model.GridConnected, Inputs{DeficitKW: -3, SurplusKW: 7})
	assert.Equal(t, Decision{ExportKW: 7}, d)
}

func TestEvaluateHybridImportsOnlyWhenLow(t *testing.T) {
	low := Evaluate(model.GridHybrid, Inputs{DeficitKW: 10, SoC: 0.15})
	assert.Equal(t, 10.0, low.ImportKW)
	mid := Evaluate(model.GridHybrid, Inputs{DeficitKW: 10, SoC: 0.5})
	assert.Equal(t, 0.0, mid.ImportKW)
	edge := Evaluate(model.GridHybrid, Inputs{DeficitKW: 10, SoC: HybridImportSoC})
	assert.Equal(t, 0.0, edge.ImportKW)
	exp := Evaluate(model.GridHybrid, Inputs{SurplusKW: 5, SoC: 0.9})
	assert.Equal(t, 5.0, exp.ExportKW)
	assert.False(t, exp.ForceDiesel)
}

func TestEvaluateIslandNeverTrades(t *testing.T) {
	for _, in := range []Inputs{
		{DeficitKW: 10, SurplusKW: 0},
		{DeficitKW: 0, SurplusKW: 10},
		{DeficitKW: 3, SurplusKW: 4, SoC: 0.01},
	} {
		d := Evaluate(model.GridIsland, in)
		if d.ImportKW != 0 || d.ExportKW != 0 {
			t.Fatalf("island traded with the grid: %+v", d)
		}
	}
	assert.True(t, Evaluate(model.GridIsland, Inputs{DeficitKW: 1}).ForceDiesel)
	assert.False(t, Evaluate(model.GridIsland, Inputs{SurplusKW: 1}).ForceDiesel)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("hybrid")
	require.NoError(t, err)
	assert.Equal(t, model.GridHybrid, m)
	_, err = ParseMode("offgrid")
	assert.Error(t, err)
}

func TestDecisionGrid(t *testing.T) {
	g := Decision{ImportKW: 2}.Grid(model.GridConnected)
	assert.Equal(t, model.Grid{Mode: model.GridConnected, ImportKW: 2}, g)
}
