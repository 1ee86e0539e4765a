package app

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/microgrid/config"
	"github.com/kilianp07/microgrid/core/engine"
	"github.com/kilianp07/microgrid/core/factory"
	eco "github.com/kilianp07/microgrid/core/metrics/eco"
	"github.com/kilianp07/microgrid/core/model"
)

// testConfig runs one solar source with no API, no MQTT and no tick log.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.API.Listen = ""
	cfg.Balance.Enabled = false
	cfg.Logging.Level = "warn"
	cfg.Engine.BaseTick = time.Hour
	cfg.Engine.Sources = map[string]engine.SourceConfig{
		"solar":  {Enabled: true, Control: 100, OutputSplitPct: 100},
		"wind":   {Enabled: false, OutputSplitPct: 100},
		"hydro":  {Enabled: false, OutputSplitPct: 100},
		"diesel": {Enabled: false, OutputSplitPct: 100},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunReturnsListenerError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := testConfig(t)
	cfg.API.Listen = busy.Addr().String()
	svc, err := New(&cfg)
	require.NoError(t, err)
	defer svc.Close()

	done := make(chan error, 1)
	go func() { done <- svc.Run(context.Background()) }()
	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api")
	case <-time.After(5 * time.Second):
		t.Fatalf("run still blocked after the api failed to listen")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.BaseTick = 10 * time.Millisecond
	svc, err := New(&cfg)
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	require.Eventually(t, func() bool { return svc.Engine.Snapshot().Tick >= 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
}

func TestEveryTickReachesTheSink(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "eco", Conf: map[string]any{}}}
	svc, err := New(&cfg)
	require.NoError(t, err)
	defer svc.Close()

	day := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	svc.Engine.SetClock(func() time.Time { return day })
	const ticks = 50
	for i := 0; i < ticks; i++ {
		_, err := svc.Engine.Tick(context.Background())
		require.NoError(t, err)
	}

	st := ecoStore(svc.sink)
	require.NotNil(t, st)
	recs, err := st.Query(model.SourceSolar, eco.Day(day), eco.Day(day))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	// solar at full illumination on the estimator rating, one hour per tick
	assert.InDelta(t, ticks*cfg.Estimator.Model.MaxSolarKW, recs[0].GeneratedKWh, 1e-6)
}
