package weather

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/microgrid/core/model"
)

type fixedRand struct {
	vals []float64
	i    int
}

func (f *fixedRand) Float64() float64 {
	v := f.vals[f.i%len(f.vals)]
	f.i++
	return v
}

func TestSunlightCurve(t *testing.T) {
	assert.Equal(t, 100.0, Sunlight(720))
	assert.Equal(t, 0.0, Sunlight(0))
	assert.Equal(t, 0.0, Sunlight(1440))
	assert.InDelta(t, 50.0, Sunlight(360), 1e-9)
	assert.InDelta(t, 50.0, Sunlight(1080), 1e-9)
}

func TestAdvanceWrapsAtMidnight(t *testing.T) {
	g := New(Config{StartMinutes: 1439}, &fixedRand{vals: []float64{0.5}})
	w := g.Advance()
	if w.TimeMinutes != 0 {
		t.Fatalf("expected wrap to 0 got %d", w.TimeMinutes)
	}
	if w.SunlightPct != 0 {
		t.Fatalf("expected no sunlight at midnight got %.2f", w.SunlightPct)
	}
}

func TestAdvanceMidday(t *testing.T) {
	g := New(Config{StartMinutes: 719}, &fixedRand{vals: []float64{0.5}})
	w := g.Advance()
	assert.Equal(t, 720, w.TimeMinutes)
	assert.Equal(t, 100.0, w.SunlightPct)
}

func TestRandomWalkBounded(t *testing.T) {
	up := New(Config{Wind: Walk{Intensity: 1000, Speed: 1}, Hydro: Walk{Intensity: 1000, Speed: 1}}, &fixedRand{vals: []float64{1}})
	for i := 0; i < 5; i++ {
		up.Advance()
	}
	assert.Equal(t, 100.0, up.State().WindPct)
	assert.Equal(t, 100.0, up.State().HydroPct)

	down := New(Config{}, &fixedRand{vals: []float64{0}})
	for i := 0; i < 50; i++ {
		w := down.Advance()
		if w.WindPct < 0 || w.HydroPct < 0 {
			t.Fatalf("walk left range: %+v", w)
		}
	}
}

func TestWindMoreVolatileThanHydro(t *testing.T) {
	g := New(Config{}, &fixedRand{vals: []float64{1}})
	w := g.Advance()
	// one step with r=1: wind +0.5*8*0.05, hydro +0.5*3*0.01
	assert.InDelta(t, 0.2, w.WindPct, 1e-9)
	assert.InDelta(t, 0.015, w.HydroPct, 1e-9)
}

func TestApplyOverridesRenewables(t *testing.T) {
	g := New(Config{Enabled: true, StartMinutes: 720, MaxKW: map[string]float64{"solar": 200}}, &fixedRand{vals: []float64{0.5}})
	sources := map[model.SourceKind]*model.Source{
		model.SourceSolar:  {Kind: model.SourceSolar, AvailableKW: 7},
		model.SourceWind:   {Kind: model.SourceWind, AvailableKW: 7},
		model.SourceDiesel: {Kind: model.SourceDiesel, AvailableKW: 50},
	}
	g.Apply(sources)
	assert.Equal(t, 200.0, sources[model.SourceSolar].AvailableKW)
	assert.Equal(t, 0.0, sources[model.SourceWind].AvailableKW)
	assert.Equal(t, 50.0, sources[model.SourceDiesel].AvailableKW)
}

func TestApplyDisabledKeepsManualValues(t *testing.T) {
	g := New(Config{StartMinutes: 720}, nil)
	src := &model.Source{Kind: model.SourceSolar, AvailableKW: 42}
	g.Apply(map[model.SourceKind]*model.Source{model.SourceSolar: src})
	if src.AvailableKW != 42 {
		t.Fatalf("disabled generator changed availability: %.2f", src.AvailableKW)
	}
}

func TestSetTimeNegativeWraps(t *testing.T) {
	g := New(Config{}, nil)
	g.SetTime(-1)
	assert.Equal(t, 1439, g.State().TimeMinutes)
	assert.False(t, math.IsNaN(g.State().SunlightPct))
}
