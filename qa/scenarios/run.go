package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/microgrid/core/engine"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/infra/metrics"
)

const tolerance = 1e-6

// RunScenario replays sc against a fresh engine reporting to an isolated
// Prometheus registry.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	eng, err := engine.New(sc.Grid.EngineConfig(), nil, nil)
	require.NoError(t, err)
	defer eng.Close()
	eng.SetMetricsSink(sink)
	clock := time.Unix(0, 0).UTC()
	eng.SetClock(func() time.Time { return clock })

	ctx := context.Background()
	for i, st := range sc.Steps {
		applyStep(t, eng, i, st)
		var last model.TickSummary
		for n := 0; n < st.Ticks; n++ {
			clock = clock.Add(sc.Grid.EngineConfig().BaseTick)
			last, err = eng.Tick(ctx)
			if err != nil {
				t.Fatalf("step %d tick %d: %v", i, n, err)
			}
			checkBalance(t, last)
		}
		if st.Expect != nil {
			if st.Ticks == 0 {
				t.Fatalf("step %d: expectations need at least one tick", i)
			}
			checkExpected(t, i, eng, reg, last, *st.Expect)
		}
	}
}

func applyStep(t *testing.T, eng *engine.Engine, i int, st Step) {
	t.Helper()
	if st.GridMode != "" {
		require.NoErrorf(t, eng.SetGridMode(st.GridMode), "step %d: grid mode", i)
	}
	if st.Preset != "" {
		require.NoErrorf(t, eng.ApplyPreset(st.Preset), "step %d: preset", i)
	}
	if sc := st.Source; sc != nil {
		kind, err := model.ParseSourceKind(sc.Kind)
		require.NoErrorf(t, err, "step %d", i)
		edit := engine.SourceEdit{Enabled: sc.Enabled, Control: sc.Control, OutputSplitPct: sc.OutputSplitPct}
		require.NoErrorf(t, eng.SetSource(kind, edit), "step %d: source", i)
	}
	if d := st.AddDestination; d != nil {
		_, err := eng.AddDestination(d.ToSpec())
		require.NoErrorf(t, err, "step %d: destination", i)
	}
	if b := st.AddBattery; b != nil {
		_, err := eng.AddBattery(*b)
		require.NoErrorf(t, err, "step %d: battery", i)
	}
}

// checkBalance verifies that a tick never delivers more than it produced.
func checkBalance(t *testing.T, sum model.TickSummary) {
	t.Helper()
	limit := sum.TotalOutputKW
	if sum.DeltaHours > 0 {
		limit += sum.DischargedKWh / sum.DeltaHours
	}
	if sum.TotalSuppliedKW > limit+tolerance {
		t.Fatalf("tick %d supplied %.3f kW with only %.3f kW available", sum.Tick, sum.TotalSuppliedKW, limit)
	}
	if sum.SoC < 0 || sum.SoC > 1 {
		t.Fatalf("tick %d soc out of range: %v", sum.Tick, sum.SoC)
	}
}

func checkExpected(t *testing.T, i int, eng *engine.Engine, reg *prometheus.Registry, sum model.TickSummary, exp Expected) {
	t.Helper()
	floats := []struct {
		name string
		want *float64
		got  float64
	}{
		{"gen_kw", exp.GenKW, sum.TotalGenKW},
		{"output_kw", exp.OutputKW, sum.TotalOutputKW},
		{"supplied_kw", exp.SuppliedKW, sum.TotalSuppliedKW},
		{"deficit_kw", exp.DeficitKW, sum.DeficitKW},
		{"stored_kwh", exp.StoredKWh, sum.StoredKWh},
		{"import_kw", exp.ImportKW, sum.Grid.ImportKW},
		{"export_kw", exp.ExportKW, sum.Grid.ExportKW},
	}
	for _, f := range floats {
		if f.want != nil {
			assert.InDeltaf(t, *f.want, f.got, tolerance, "step %d: %s", i, f.name)
		}
	}
	if exp.ShedCount != nil {
		assert.Equalf(t, *exp.ShedCount, sum.Shedding.Count, "step %d: shed_count", i)
		assert.Equalf(t, float64(*exp.ShedCount), gauge(t, reg, "microgrid_shed_destinations", "", ""), "step %d: shed gauge", i)
	}
	if exp.ImportKW != nil {
		assert.InDeltaf(t, *exp.ImportKW, gauge(t, reg, "microgrid_grid_kw", "direction", "import"), tolerance, "step %d: import gauge", i)
	}
	if exp.DieselForced != nil {
		assert.Equalf(t, *exp.DieselForced, sum.DieselForced, "step %d: diesel_forced", i)
	}
	if len(exp.Alerts) > 0 {
		active := map[string]bool{}
		for _, a := range eng.Alerts().Active() {
			active[a.Code] = true
		}
		for _, code := range exp.Alerts {
			assert.Truef(t, active[code], "step %d: alert %s not active", i, code)
		}
	}
}

// gauge reads one gauge sample from reg. An empty label selects the
// unlabelled series.
func gauge(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label == "" {
				return m.GetGauge().GetValue()
			}
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s=%q} not found", name, label, value)
	return 0
}
