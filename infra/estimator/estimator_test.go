package estimator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/microgrid/core/estimation"
	"github.com/kilianp07/microgrid/core/prediction"
)

func newTestServer(t *testing.T, fc prediction.PredictionEngine) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(estimation.NewModel(), fc, nil).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func TestClientEstimate(t *testing.T) {
	srv := newTestServer(t, nil)
	cli := NewClient(srv.URL+"/", time.Second)

	res, err := cli.Estimate(context.Background(), estimation.Request{Sunlight: 50, Wind: 50, Hydro: 100})
	require.NoError(t, err)
	assert.Equal(t, estimation.NewModel().Compute(estimation.Request{Sunlight: 50, Wind: 50, Hydro: 100}), res)
	assert.Equal(t, 500.0, res.SolarKW)
	assert.Equal(t, 125.0, res.WindKW)
	assert.Equal(t, 900.0, res.HydroKW)
}

func TestForecastFallbackAndDefaultSoC(t *testing.T) {
	var seen prediction.Input
	fc := predictFunc(func(in prediction.Input) float64 {
		seen = in
		return 42
	})
	cli := NewClient(newTestServer(t, fc).URL, time.Second)

	got, err := cli.Forecast(context.Background(), ForecastRequest{SolarKW: 1, WindKW: 2, HydroKW: 3})
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)
	assert.Equal(t, prediction.DefaultBatterySoC, seen.BatterySoC)

	soc := 0.9
	_, err = cli.Forecast(context.Background(), ForecastRequest{BatterySoC: &soc})
	require.NoError(t, err)
	assert.Equal(t, 0.9, seen.BatterySoC)

	sum := NewClient(newTestServer(t, nil).URL, time.Second)
	got, err = sum.Forecast(context.Background(), ForecastRequest{SolarKW: 1, WindKW: 2, HydroKW: 3})
	require.NoError(t, err)
	assert.Equal(t, 6.0, got)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSimulateRejectsBadBody(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Post(srv.URL+"/simulate", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClientErrors(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	if _, err := NewClient(failing.URL, time.Second).Estimate(context.Background(), estimation.Request{}); err == nil {
		t.Fatalf("expected error on 503")
	}

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer slow.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := NewClient(slow.URL, time.Second).Estimate(ctx, estimation.Request{}); err == nil {
		t.Fatalf("expected context deadline error")
	}
}

type predictFunc func(prediction.Input) float64

func (f predictFunc) PredictNext(in prediction.Input) float64 { return f(in) }
