// Package infra holds the adapters around the simulation core: the zerolog
// logger, metrics sinks, MQTT telemetry, the remote estimator, the SQLite KPI
// store and Sentry monitoring. Core packages never import infra; adapters are
// injected into the engine through the interfaces core declares.
package infra
