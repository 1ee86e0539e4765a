package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/microgrid/core/estimation"
	"github.com/kilianp07/microgrid/core/events"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/internal/eventbus"
)

type estimatorFunc func(ctx context.Context, req estimation.Request) (estimation.Result, error)

func (f estimatorFunc) Estimate(ctx context.Context, req estimation.Request) (estimation.Result, error) {
	return f(ctx, req)
}

var testClock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// scenarioConfig is one solar source at 100 kW with an 80 % output split,
// one-hour ticks, two destinations of 50 kW and one empty battery.
func scenarioConfig() Config {
	return Config{
		BaseTick: time.Hour,
		GridMode: "grid",
		Sources: map[string]SourceConfig{
			"solar":  {Enabled: true, Control: 100, OutputSplitPct: 80},
			"wind":   {Enabled: false, OutputSplitPct: 100},
			"hydro":  {Enabled: false, OutputSplitPct: 100},
			"diesel": {Enabled: false, OutputSplitPct: 100},
		},
		Batteries: []model.BatterySpec{{CapacityKWh: 100, MaxChargeKW: 100, MaxDischargeKW: 100}},
		Destinations: []DestinationSpec{
			{Name: "D1", Priority: 1, DemandKW: 50},
			{Name: "D2", Priority: 2, DemandKW: 50},
		},
	}
}

func newEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := scenarioConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg, nil, nil)
	require.NoError(t, err)
	e.SetClock(func() time.Time { return testClock })
	return e
}

func destByName(s model.Snapshot, name string) model.Destination {
	for _, d := range s.Destinations {
		if d.Name == name {
			return d
		}
	}
	return model.Destination{}
}

func TestTickConservationScenario(t *testing.T) {
	e := newEngine(t, nil)
	sum, err := e.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, sum.DeltaHours)
	assert.Equal(t, 100.0, sum.TotalGenKW)
	assert.Equal(t, 80.0, sum.TotalOutputKW)
	assert.Equal(t, 20.0, sum.TotalSurplusKW)
	assert.Equal(t, 80.0, sum.TotalSuppliedKW)
	assert.Equal(t, 20.0, sum.DeficitKW)
	assert.Equal(t, 20.0, sum.ChargedKWh)
	assert.Equal(t, 20.0, sum.StoredKWh)
	assert.True(t, sum.Shedding.Active)
	assert.Equal(t, 1, sum.Shedding.Count)
	assert.Equal(t, 20.0, sum.Grid.ImportKW)
	assert.Equal(t, 0.0, sum.Grid.ExportKW)

	snap := e.Snapshot()
	d1, d2 := destByName(snap, "D1"), destByName(snap, "D2")
	assert.Equal(t, 50.0, d1.LastRecvKW)
	assert.Equal(t, 0.0, d1.ShedKW)
	assert.Equal(t, 30.0, d2.LastRecvKW)
	assert.Equal(t, 20.0, d2.ShedKW)
	assert.Equal(t, 20.0, snap.StoredKWh)
	assert.Equal(t, 20.0, snap.Totals.SavedKWh)
	assert.Equal(t, 100.0, snap.Totals.GenKWh)
	assert.Equal(t, 80.0, snap.Totals.OutKWh)
	assert.Equal(t, 100.0, snap.Totals.PerSourceKWh[model.SourceSolar])
	assert.Equal(t, []float64{100}, snap.History.Gen.Values())
	assert.Equal(t, []float64{80}, snap.History.Output.Values())
	assert.Equal(t, []float64{20}, snap.History.Stored.Values())
	assert.Equal(t, []float64{100}, snap.Sources[model.SourceSolar].History.Values())
	assert.Equal(t, uint64(1), snap.Tick)
	require.NotNil(t, snap.Last)
	assert.Equal(t, sum, *snap.Last)
}

func TestTickTotalsMonotonic(t *testing.T) {
	e := newEngine(t, nil)
	prev := e.Snapshot().Totals
	for i := 0; i < 10; i++ {
		_, err := e.Tick(context.Background())
		require.NoError(t, err)
		cur := e.Snapshot().Totals
		if cur.GenKWh < prev.GenKWh || cur.OutKWh < prev.OutKWh || cur.SavedKWh < prev.SavedKWh {
			t.Fatalf("totals decreased: %+v -> %+v", prev, cur)
		}
		prev = cur
	}
	// battery full after 5 ticks of 20 kWh
	assert.Equal(t, 100.0, prev.SavedKWh)
	assert.Equal(t, 100.0, e.Snapshot().StoredKWh)
}

func TestTickReentrancyDropsSecondRequest(t *testing.T) {
	ResetMetrics(nil)
	e := newEngine(t, nil)
	entered := make(chan struct{})
	release := make(chan struct{})
	e.SetEstimator(estimatorFunc(func(ctx context.Context, _ estimation.Request) (estimation.Result, error) {
		close(entered)
		<-release
		return estimation.Result{SolarKW: 100}, nil
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := e.Tick(context.Background())
		assert.NoError(t, err)
	}()
	<-entered
	_, err := e.Tick(context.Background())
	assert.ErrorIs(t, err, ErrTickInProgress)
	close(release)
	wg.Wait()

	snap := e.Snapshot()
	assert.Equal(t, uint64(1), snap.Tick)
	assert.Equal(t, 20.0, snap.StoredKWh)
	assert.Equal(t, 1.0, testutil.ToFloat64(ticksDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(ticksTotal))
}

func TestEstimatorFailureKeepsStaleValues(t *testing.T) {
	e := newEngine(t, nil)
	bus := eventbus.NewTypedWithBuffer[events.Event](16)
	sub := bus.Subscribe()
	e.SetBus(bus)

	calls := 0
	e.SetEstimator(estimatorFunc(func(context.Context, estimation.Request) (estimation.Result, error) {
		calls++
		if calls > 1 {
			return estimation.Result{}, errors.New("connection refused")
		}
		return estimation.Result{SolarKW: 60}, nil
	}))

	first, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, first.SupplyStale)
	assert.Equal(t, 60.0, first.AvailableKW[model.SourceSolar])

	second, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, second.SupplyStale)
	assert.Equal(t, 60.0, second.AvailableKW[model.SourceSolar])
	assert.Equal(t, uint64(2), second.Tick)

	var sawFailure bool
	for len(sub) > 0 {
		if ev, ok := (<-sub).(events.SupplyFailureEvent); ok {
			sawFailure = true
			var tse *TransientSupplyError
			assert.True(t, errors.As(ev.Err, &tse))
			assert.Equal(t, uint64(2), ev.Tick)
		}
	}
	assert.True(t, sawFailure)
}

func TestEstimatorTimeoutIsBounded(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.EstimatorTimeout = 20 * time.Millisecond })
	e.SetEstimator(estimatorFunc(func(ctx context.Context, _ estimation.Request) (estimation.Result, error) {
		<-ctx.Done()
		return estimation.Result{}, ctx.Err()
	}))
	start := time.Now()
	sum, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, sum.SupplyStale)
	assert.Less(t, time.Since(start), 2*time.Second)
	// construction resolved the manual controls, those values stay
	assert.Equal(t, 100.0, sum.AvailableKW[model.SourceSolar])
}

func TestEstimatorReceivesWeatherWhenEnabled(t *testing.T) {
	e := newEngine(t, func(c *Config) {
		c.Weather.Enabled = true
		c.Weather.StartMinutes = 719
	})
	var got estimation.Request
	e.SetEstimator(estimatorFunc(func(_ context.Context, req estimation.Request) (estimation.Result, error) {
		got = req
		return estimation.Result{SolarKW: 10, WindKW: 20, HydroKW: 30}, nil
	}))
	sum, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Sunlight)
	// wind and hydro are disabled in the scenario
	assert.Equal(t, 10.0, sum.TotalGenKW)
}

func TestLocalAndRemoteEstimationAgree(t *testing.T) {
	withControls := func(c *Config) {
		c.Estimation = estimation.NewModel()
		c.Sources["solar"] = SourceConfig{Enabled: true, Control: 60, OutputSplitPct: 100}
		c.Sources["wind"] = SourceConfig{Enabled: true, Control: 9, OutputSplitPct: 100}
		c.Sources["hydro"] = SourceConfig{Enabled: true, Control: 40, OutputSplitPct: 100}
	}
	local := newEngine(t, withControls)
	want, err := local.Tick(context.Background())
	require.NoError(t, err)

	remote := newEngine(t, withControls)
	remote.SetEstimator(estimation.NewModel())
	got, err := remote.Tick(context.Background())
	require.NoError(t, err)
	require.False(t, got.SupplyStale)

	for _, k := range model.Renewables() {
		assert.InDelta(t, want.AvailableKW[k], got.AvailableKW[k], 0.01, k.String())
	}
	assert.Equal(t, 600.0, got.AvailableKW[model.SourceSolar])
}

func TestRemoteRequestCarriesWindPercent(t *testing.T) {
	e := newEngine(t, func(c *Config) {
		c.Sources["wind"] = SourceConfig{Enabled: true, Control: 6, OutputSplitPct: 100}
	})
	var got estimation.Request
	e.SetEstimator(estimatorFunc(func(_ context.Context, req estimation.Request) (estimation.Result, error) {
		got = req
		return estimation.Result{}, nil
	}))
	_, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.Wind)
	assert.Equal(t, 100.0, got.Sunlight)
}

func TestWeatherDrivesAvailability(t *testing.T) {
	e := newEngine(t, func(c *Config) {
		c.Weather.Enabled = true
		c.Weather.StartMinutes = 719
	})
	sum, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100.0, sum.AvailableKW[model.SourceSolar])
	w := e.Snapshot().Weather
	assert.Equal(t, 720, w.TimeMinutes)
	assert.Equal(t, 100.0, w.SunlightPct)
}

func TestIslandForcesDiesel(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.GridMode = "island" })
	sum, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, sum.DieselForced)
	assert.Equal(t, 0.0, sum.Grid.ImportKW)
	assert.Equal(t, 0.0, sum.Grid.ExportKW)
	assert.Equal(t, 0.0, sum.AvailableKW[model.SourceDiesel])

	d := e.Snapshot().Sources[model.SourceDiesel]
	assert.True(t, d.Enabled)
	assert.True(t, d.On())

	sum, err = e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultDieselKW), sum.AvailableKW[model.SourceDiesel])
	assert.Equal(t, 0.0, sum.Grid.ImportKW)
}

func TestHybridImportsOnlyOnLowCharge(t *testing.T) {
	low := newEngine(t, func(c *Config) {
		c.GridMode = "hybrid"
		c.Batteries = []model.BatterySpec{{CapacityKWh: 1000, MaxChargeKW: 0, InitialKWh: 150}}
	})
	sum, err := low.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20.0, sum.Grid.ImportKW)

	mid := newEngine(t, func(c *Config) {
		c.GridMode = "hybrid"
		c.Batteries = []model.BatterySpec{{CapacityKWh: 1000, MaxChargeKW: 0, InitialKWh: 500}}
	})
	sum, err = mid.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, sum.Grid.ImportKW)
}

func TestGridExportsSurplus(t *testing.T) {
	e := newEngine(t, func(c *Config) {
		c.Destinations = []DestinationSpec{{Name: "small", Priority: 1, DemandKW: 30}}
	})
	sum, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50.0, sum.Grid.ExportKW)
	assert.Equal(t, 0.0, sum.Grid.ImportKW)
	assert.False(t, sum.Shedding.Active)
}

func TestDischargeOnDeficit(t *testing.T) {
	e := newEngine(t, func(c *Config) {
		c.DischargeOnDeficit = true
		c.Sources["solar"] = SourceConfig{Enabled: true, Control: 100, OutputSplitPct: 100}
		c.Batteries = []model.BatterySpec{{CapacityKWh: 100, MaxChargeKW: 100, MaxDischargeKW: 100, InitialKWh: 100}}
		c.Destinations = []DestinationSpec{{Name: "load", Priority: 1, DemandKW: 120}}
	})
	sum, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20.0, sum.DischargedKWh)
	assert.Equal(t, 120.0, sum.TotalSuppliedKW)
	assert.Equal(t, 0.0, sum.DeficitKW)
	assert.Equal(t, 80.0, sum.StoredKWh)
	assert.Equal(t, 0.0, sum.Grid.ImportKW)
	assert.Equal(t, 0.0, sum.Grid.ExportKW)
	assert.False(t, sum.Shedding.Active)
}

func TestNoDischargeByDefault(t *testing.T) {
	e := newEngine(t, func(c *Config) {
		c.Sources["solar"] = SourceConfig{Enabled: true, Control: 100, OutputSplitPct: 100}
		c.Batteries = []model.BatterySpec{{CapacityKWh: 100, MaxDischargeKW: 100, InitialKWh: 100}}
	})
	sum, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, sum.DischargedKWh)
	assert.Equal(t, 100.0, sum.StoredKWh)
}

func TestSpeedScalesDelta(t *testing.T) {
	e := newEngine(t, nil)
	require.NoError(t, e.SetSpeed(0.5))
	sum, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.5, sum.DeltaHours)
	assert.Equal(t, 10.0, sum.ChargedKWh)
	assert.Equal(t, 50.0, e.Snapshot().Totals.GenKWh)
}

func TestHistoryIsBounded(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.HistorySize = 3 })
	for i := 0; i < 5; i++ {
		_, err := e.Tick(context.Background())
		require.NoError(t, err)
	}
	snap := e.Snapshot()
	assert.Equal(t, 3, snap.History.Gen.Len())
	assert.Equal(t, []float64{60, 80, 100}, snap.History.Stored.Values())
	assert.Equal(t, 3, snap.Sources[model.SourceWind].History.Len())
}

func TestPanicInTickIsRecovered(t *testing.T) {
	e := newEngine(t, nil)
	e.SetEstimator(estimatorFunc(func(context.Context, estimation.Request) (estimation.Result, error) {
		panic("estimator bug")
	}))
	_, err := e.Tick(context.Background())
	require.Error(t, err)

	e.SetEstimator(nil)
	_, err = e.Tick(context.Background())
	assert.NoError(t, err)
}

func TestSnapshotIsDetached(t *testing.T) {
	e := newEngine(t, nil)
	_, err := e.Tick(context.Background())
	require.NoError(t, err)
	snap := e.Snapshot()
	snap.Sources[model.SourceSolar].OutputSplitPct = 0
	snap.Destinations[0].DemandKW = 999
	snap.Totals.PerSourceKWh[model.SourceSolar] = -1
	snap.History.Gen.Push(12345)

	again := e.Snapshot()
	assert.Equal(t, 80.0, again.Sources[model.SourceSolar].OutputSplitPct)
	assert.Equal(t, 50.0, again.Destinations[0].DemandKW)
	assert.Equal(t, 100.0, again.Totals.PerSourceKWh[model.SourceSolar])
	assert.Equal(t, []float64{100}, again.History.Gen.Values())
}

func TestTickPublishesEventsAndAlerts(t *testing.T) {
	e := newEngine(t, nil)
	bus := eventbus.NewTypedWithBuffer[events.Event](32)
	sub := bus.Subscribe()
	e.SetBus(bus)
	_, err := e.Tick(context.Background())
	require.NoError(t, err)

	names := map[string]int{}
	for len(sub) > 0 {
		names[(<-sub).EventName()]++
	}
	assert.Equal(t, 1, names["tick"])
	// soc 0.2 is low, shedding is active and the grid imports
	assert.Equal(t, 3, names["alert"])
	assert.Len(t, e.Alerts().Active(), 3)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{Speed: 500}, nil, nil)
	assert.Error(t, err)
	_, err = New(Config{GridMode: "offshore"}, nil, nil)
	assert.Error(t, err)
	_, err = New(Config{Batteries: []model.BatterySpec{{CapacityKWh: -1}}}, nil, nil)
	assert.Error(t, err)
	_, err = New(Config{Destinations: []DestinationSpec{{Priority: 9}}}, nil, nil)
	assert.Error(t, err)
}

func TestNewSeedsDefaultInventory(t *testing.T) {
	e, err := New(Config{}, nil, nil)
	require.NoError(t, err)
	snap := e.Snapshot()
	require.Len(t, snap.Batteries, 2)
	assert.Equal(t, 1250.0, snap.StoredKWh)
	require.Len(t, snap.Destinations, 2)
	assert.Equal(t, "Grid", snap.Destinations[0].Name)
	assert.Equal(t, "Local Factory", snap.Destinations[1].Name)
	assert.Equal(t, model.PriorityHigh, snap.Destinations[1].Priority)
	assert.Equal(t, model.GridConnected, snap.Grid.Mode)
	assert.False(t, snap.Sources[model.SourceDiesel].Enabled)
	assert.Equal(t, 70.0, snap.Sources[model.SourceWind].OutputSplitPct)
}
