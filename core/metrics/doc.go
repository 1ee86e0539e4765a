// Package metrics defines the sinks that record tick telemetry. Concrete
// sinks (Prometheus, InfluxDB) live in infra/metrics and register themselves
// with the factory; NewMetricsSink combines several configured sinks into a
// MultiSink.
package metrics
