// Package telemetry mirrors engine activity onto MQTT: tick summaries,
// alerts and command events as they happen, plus a retained snapshot on a
// fixed period.
package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/microgrid/core/events"
	"github.com/kilianp07/microgrid/core/logger"
	"github.com/kilianp07/microgrid/core/model"
	coremqtt "github.com/kilianp07/microgrid/core/mqtt"
	"github.com/kilianp07/microgrid/internal/eventbus"
)

// DefaultSnapshotInterval is the period of the retained snapshot.
const DefaultSnapshotInterval = 10 * time.Second

// Config selects what is published.
type Config struct {
	// SnapshotInterval between retained snapshots; negative disables them.
	SnapshotInterval time.Duration `json:"snapshot_interval"`
	PublishTicks     bool          `json:"publish_ticks"`
	PublishAlerts    bool          `json:"publish_alerts"`
	PublishCommands  bool          `json:"publish_commands"`
}

// SetDefaults selects DefaultSnapshotInterval when unset.
func (c *Config) SetDefaults() {
	if c.SnapshotInterval == 0 {
		c.SnapshotInterval = DefaultSnapshotInterval
	}
}

// SnapshotSource provides the state copy published on the snapshot topic.
type SnapshotSource interface {
	Snapshot() model.Snapshot
}

// Manager forwards bus events to an MQTT client.
type Manager struct {
	cfg    Config
	cli    coremqtt.Client
	topics coremqtt.Topics
	src    SnapshotSource
	bus    *eventbus.TypedBus[events.Event]
	log    logger.Logger

	published   *prometheus.CounterVec
	failures    *prometheus.CounterVec
	lastPublish prometheus.Gauge
}

// NewManager prepares the forwarder and registers its metrics on reg. A nil
// reg skips registration.
func NewManager(cfg Config, cli coremqtt.Client, topics coremqtt.Topics, src SnapshotSource, bus *eventbus.TypedBus[events.Event], reg prometheus.Registerer, log logger.Logger) (*Manager, error) {
	cfg.SetDefaults()
	m := &Manager{
		cfg:    cfg,
		cli:    cli,
		topics: topics,
		src:    src,
		bus:    bus,
		log:    logger.OrNop(log),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_messages_published_total",
			Help: "Telemetry messages published by topic kind",
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_publish_failures_total",
			Help: "Telemetry publish failures by topic kind",
		}, []string{"kind"}),
		lastPublish: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "telemetry_last_publish_timestamp_seconds",
			Help: "Unix timestamp of the last successful publish",
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.published, m.failures, m.lastPublish} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Start runs until ctx is done or the bus is closed.
func (m *Manager) Start(ctx context.Context) {
	var sub <-chan events.Event
	if m.bus != nil {
		sub = m.bus.Subscribe()
		defer m.bus.Unsubscribe(sub)
	}
	var snap <-chan time.Time
	if m.cfg.SnapshotInterval > 0 && m.src != nil {
		t := time.NewTicker(m.cfg.SnapshotInterval)
		defer t.Stop()
		snap = t.C
		m.PublishSnapshot()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-snap:
			m.PublishSnapshot()
		case ev, ok := <-sub:
			if !ok {
				return
			}
			m.handle(ev)
		}
	}
}

func (m *Manager) handle(ev events.Event) {
	switch e := ev.(type) {
	case events.TickEvent:
		if m.cfg.PublishTicks {
			m.publish("tick", m.topics.Tick(), e.Summary, false)
		}
	case events.AlertEvent:
		if m.cfg.PublishAlerts {
			m.publish("alert", m.topics.Alerts(), e.Alert, false)
		}
	case events.CommandEvent:
		if m.cfg.PublishCommands {
			m.publish("command", m.topics.Events(), e, false)
		}
	case events.SupplyFailureEvent:
		if m.cfg.PublishAlerts {
			m.publish("supply_failure", m.topics.Events(), struct {
				Event string    `json:"event"`
				Tick  uint64    `json:"tick"`
				Error string    `json:"error"`
				Time  time.Time `json:"time"`
			}{e.EventName(), e.Tick, e.Err.Error(), e.Time}, false)
		}
	}
}

// PublishSnapshot publishes the current state as a retained message.
func (m *Manager) PublishSnapshot() {
	m.publish("snapshot", m.topics.Snapshot(), m.src.Snapshot(), true)
}

func (m *Manager) publish(kind, topic string, v any, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		m.failures.WithLabelValues(kind).Inc()
		m.log.Errorf("encode %s: %v", kind, err)
		return
	}
	if err := m.cli.Publish(topic, payload, retained); err != nil {
		m.failures.WithLabelValues(kind).Inc()
		m.log.Errorf("publish %s: %v", kind, err)
		return
	}
	m.published.WithLabelValues(kind).Inc()
	m.lastPublish.SetToCurrentTime()
}
