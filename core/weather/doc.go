// Package weather produces the synthetic availability signal of the
// renewable sources. Sunlight follows a triangular day curve peaking at
// midday while wind and hydro drift as bounded random walks. The random
// source is injectable so tests can run with a fixed sequence.
package weather
