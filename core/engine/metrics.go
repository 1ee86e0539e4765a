package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	tickDuration     prometheus.Histogram
	ticksTotal       prometheus.Counter
	ticksDropped     prometheus.Counter
	estimatorFailure prometheus.Counter
	commandsTotal    *prometheus.CounterVec
)

func newCollectors() (prometheus.Histogram, prometheus.Counter, prometheus.Counter, prometheus.Counter, *prometheus.CounterVec) {
	dur := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "microgrid_tick_duration_seconds",
		Help:    "Wall time spent executing one tick",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	})
	ticks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "microgrid_ticks_total",
		Help: "Number of completed ticks",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "microgrid_ticks_dropped_total",
		Help: "Tick requests dropped because a tick was running",
	})
	est := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "microgrid_estimator_failures_total",
		Help: "Ticks that kept stale availability after an estimator failure",
	})
	cmds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "microgrid_commands_total",
		Help: "Configuration commands by name and outcome",
	}, []string{"command", "outcome"})
	return dur, ticks, dropped, est, cmds
}

func init() {
	tickDuration, ticksTotal, ticksDropped, estimatorFailure, commandsTotal = newCollectors()
}

// MustRegisterMetrics registers the engine collectors on reg. A nil reg
// selects prometheus.DefaultRegisterer.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(tickDuration, ticksTotal, ticksDropped, estimatorFailure, commandsTotal)
}

// ResetMetrics recreates the collectors for tests and registers them on reg
// when it is not nil.
func ResetMetrics(reg prometheus.Registerer) {
	tickDuration, ticksTotal, ticksDropped, estimatorFailure, commandsTotal = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
