package metrics

import "github.com/prometheus/client_golang/prometheus"

// DropCounter is an event bus reporting how many deliveries it skipped.
type DropCounter interface {
	Dropped() uint64
}

// RegisterBusDropped exposes the drop count of bus as
// microgrid_bus_events_dropped_total. A nil registerer selects the default one.
func RegisterBusDropped(reg prometheus.Registerer, bus DropCounter) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	_, err := register(reg, prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "microgrid_bus_events_dropped_total",
		Help: "Events the bus skipped because a subscriber buffer was full",
	}, func() float64 { return float64(bus.Dropped()) }))
	return err
}
