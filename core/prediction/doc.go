// Package prediction provides short-horizon forecasts of the micro-grid:
// the rolling panel forecast derived from the engine history and the
// next-step generation models served by the estimation service.
package prediction
