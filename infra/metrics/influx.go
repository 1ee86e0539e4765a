package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/microgrid/core/metrics"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/infra/logger"
)

// InfluxConfig addresses an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes tick summaries to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// TickPoint builds the line protocol point of one tick.
func TickPoint(sum model.TickSummary) *write.Point {
	p := write.NewPointWithMeasurement("microgrid_tick").
		AddTag("grid_mode", string(sum.Grid.Mode)).
		AddTag("component", "engine").
		AddField("tick", int64(sum.Tick)).
		AddField("gen_kw", round3(sum.TotalGenKW)).
		AddField("output_kw", round3(sum.TotalOutputKW)).
		AddField("surplus_kw", round3(sum.TotalSurplusKW)).
		AddField("demand_kw", round3(sum.TotalDemandKW)).
		AddField("supplied_kw", round3(sum.TotalSuppliedKW)).
		AddField("stored_kwh", round3(sum.StoredKWh)).
		AddField("soc", round3(sum.SoC)).
		AddField("import_kw", round3(sum.Grid.ImportKW)).
		AddField("export_kw", round3(sum.Grid.ExportKW)).
		AddField("shed_count", sum.Shedding.Count).
		AddField("supply_stale", sum.SupplyStale)
	for _, k := range model.SourceKinds {
		p = p.AddField(k.String()+"_kw", round3(sum.AvailableKW[k]))
	}
	return p.SetTime(sum.Time)
}

// RecordTick writes the summary as one point.
func (s *InfluxSink) RecordTick(sum model.TickSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, TickPoint(sum))
}

// RecordAlert writes an alert event.
func (s *InfluxSink) RecordAlert(a model.Alert) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("microgrid_alert").
		AddTag("code", a.Code).
		AddTag("severity", string(a.Severity)).
		AddField("message", a.Message).
		AddField("tick", int64(a.Tick)).
		SetTime(a.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSupplyFailure writes an estimator outage.
func (s *InfluxSink) RecordSupplyFailure(ev coremetrics.SupplyFailure) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("supply_failure").
		AddTag("tick", strconv.FormatUint(ev.Tick, 10)).
		AddTag("component", "estimator").
		AddField("reason", ev.Reason).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
