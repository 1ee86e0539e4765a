package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/microgrid/core/metrics"
	"github.com/kilianp07/microgrid/core/model"
)

type bodyRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (b *bodyRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.bodies = append(b.bodies, strings.TrimSpace(string(data)))
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (b *bodyRecorder) get() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.bodies...)
}

func sampleSummary(now time.Time) model.TickSummary {
	return model.TickSummary{
		Tick:            7,
		Time:            now,
		DeltaHours:      1,
		AvailableKW:     map[model.SourceKind]float64{model.SourceSolar: 80, model.SourceWind: 12.3456},
		TotalGenKW:      92.3456,
		TotalOutputKW:   70,
		TotalSurplusKW:  22.3456,
		TotalDemandKW:   100,
		TotalSuppliedKW: 70,
		StoredKWh:       500,
		SoC:             0.25,
		Grid:            model.Grid{Mode: model.GridConnected, ImportKW: 30},
		Shedding:        model.Shedding{Active: true, Count: 1},
	}
}

func TestInfluxSink_RecordTick(t *testing.T) {
	rec := &bodyRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	sum := sampleSummary(now)
	if err := sink.RecordTick(sum); err != nil {
		t.Fatalf("record error: %v", err)
	}
	expected := strings.TrimSpace(write.PointToLineProtocol(TickPoint(sum), time.Nanosecond))
	bodies := rec.get()
	if len(bodies) != 1 || bodies[0] != expected {
		t.Fatalf("unexpected bodies: %#v", bodies)
	}
	for _, want := range []string{"microgrid_tick,", "grid_mode=grid", "wind_kw=12.346", "shed_count=1i", "supply_stale=false"} {
		if !strings.Contains(bodies[0], want) {
			t.Errorf("line %q lacks %q", bodies[0], want)
		}
	}
}

func TestInfluxSink_RecordAlertAndSupplyFailure(t *testing.T) {
	rec := &bodyRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	if err := sink.RecordAlert(model.Alert{Time: now, Tick: 3, Code: "soc_low", Severity: model.SeverityWarn, Message: "Battery low"}); err != nil {
		t.Fatalf("record alert: %v", err)
	}
	if err := sink.RecordSupplyFailure(coremetrics.SupplyFailure{Tick: 4, Reason: errors.New("timeout").Error(), Time: now}); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	p := write.NewPointWithMeasurement("microgrid_alert").
		AddTag("code", "soc_low").
		AddTag("severity", "warn").
		AddField("message", "Battery low").
		AddField("tick", int64(3)).
		SetTime(now)
	p2 := write.NewPointWithMeasurement("supply_failure").
		AddTag("tick", "4").
		AddTag("component", "estimator").
		AddField("reason", "timeout").
		SetTime(now)
	exp1 := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	exp2 := strings.TrimSpace(write.PointToLineProtocol(p2, time.Nanosecond))
	bodies := rec.get()
	if len(bodies) != 2 || bodies[0] != exp1 || bodies[1] != exp2 {
		t.Errorf("unexpected bodies: %#v", bodies)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
