// Package estimation converts environmental inputs into available power per
// renewable source.
package estimation

import (
	"context"
	"math"
)

// DefaultMaxKW is the rated power of each source in the physics model.
const DefaultMaxKW = 1000

// RatedWindSpeed is the wind speed in m/s at which a turbine reaches its
// rated output when driven from manual controls.
const RatedWindSpeed = 12

// Request carries the environmental inputs of one estimation. Values are
// percentages in [0,100] except when Wind is a manual speed.
type Request struct {
	Sunlight float64 `json:"sunlight"`
	Wind     float64 `json:"wind"`
	Hydro    float64 `json:"hydro"`
}

// Result is the available power per renewable source.
type Result struct {
	SolarKW float64 `json:"solar_kw"`
	WindKW  float64 `json:"wind_kw"`
	HydroKW float64 `json:"hydro_kw"`
}

// Total returns the combined power.
func (r Result) Total() float64 { return r.SolarKW + r.WindKW + r.HydroKW }

// Estimator resolves a Request. Implementations may be remote and fail.
type Estimator interface {
	Estimate(ctx context.Context, req Request) (Result, error)
}

// Model is the reference physics model: linear solar, cubic wind on the
// normalised percentage and hydro at 90 % efficiency.
type Model struct {
	MaxSolarKW float64 `json:"max_solar_kw"`
	MaxWindKW  float64 `json:"max_wind_kw"`
	MaxHydroKW float64 `json:"max_hydro_kw"`
}

// NewModel returns a Model rated at DefaultMaxKW for every source.
func NewModel() Model {
	return Model{MaxSolarKW: DefaultMaxKW, MaxWindKW: DefaultMaxKW, MaxHydroKW: DefaultMaxKW}
}

// Estimate implements Estimator. It never fails.
func (m Model) Estimate(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return m.Compute(req), nil
}

// Compute evaluates the model. Results are rounded to two decimals.
func (m Model) Compute(req Request) Result {
	windNorm := math.Min(nonNeg(req.Wind)/100, 1)
	return Result{
		SolarKW: round2(nonNeg(req.Sunlight) / 100 * m.MaxSolarKW),
		WindKW:  round2(windNorm * windNorm * windNorm * m.MaxWindKW),
		HydroKW: round2(nonNeg(req.Hydro) / 100 * m.MaxHydroKW * 0.9),
	}
}

// ControlRequest converts the manual controls into a Request: illumination
// and flow are capped at 100 percent, and the wind speed in m/s becomes the
// percentage of RatedWindSpeed.
func ControlRequest(lightPct, windSpeed, flowPct float64) Request {
	return Request{
		Sunlight: math.Min(nonNeg(lightPct), 100),
		Wind:     math.Min(nonNeg(windSpeed), RatedWindSpeed) / RatedWindSpeed * 100,
		Hydro:    math.Min(nonNeg(flowPct), 100),
	}
}

// FromControls evaluates the manual controls through ControlRequest.
func (m Model) FromControls(lightPct, windSpeed, flowPct float64) Result {
	return m.Compute(ControlRequest(lightPct, windSpeed, flowPct))
}

// IsZero reports whether no rating is set.
func (m Model) IsZero() bool { return m == (Model{}) }

// ForecastFallback is the next-step generation estimate used when no
// learned model is available: the plain sum of the current outputs.
func ForecastFallback(r Result) float64 {
	return nonNeg(r.SolarKW) + nonNeg(r.WindKW) + nonNeg(r.HydroKW)
}

func nonNeg(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
