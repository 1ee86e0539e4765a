package prediction

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/microgrid/core/estimation"
)

// Input holds the features of a next-step generation prediction.
type Input struct {
	SolarKW    float64 `json:"solar_kw"`
	WindKW     float64 `json:"wind_kw"`
	HydroKW    float64 `json:"hydro_kw"`
	BatterySoC float64 `json:"battery_soc"`
}

// DefaultBatterySoC is assumed when a request omits the state of charge.
const DefaultBatterySoC = 0.5

func (in Input) vector() []float64 {
	return []float64{in.SolarKW, in.WindKW, in.HydroKW, in.BatterySoC}
}

// PredictionEngine predicts the combined generation of the next step.
type PredictionEngine interface {
	PredictNext(in Input) float64
}

// SumModel is the fallback predictor: next generation equals the current sum
// of the renewable outputs.
type SumModel struct{}

// PredictNext implements PredictionEngine.
func (SumModel) PredictNext(in Input) float64 {
	return estimation.ForecastFallback(estimation.Result{SolarKW: in.SolarKW, WindKW: in.WindKW, HydroKW: in.HydroKW})
}

// LinearModel is a fitted linear regression over the four input features.
type LinearModel struct {
	// Weights apply to solar, wind, hydro and battery SoC in that order.
	Weights   []float64 `json:"weights" yaml:"weights"`
	Intercept float64   `json:"intercept" yaml:"intercept"`
}

// Validate checks the coefficient count.
func (m LinearModel) Validate() error {
	if len(m.Weights) != 4 {
		return fmt.Errorf("prediction: linear model needs 4 weights, got %d", len(m.Weights))
	}
	return nil
}

// PredictNext implements PredictionEngine. The result is never negative.
func (m LinearModel) PredictNext(in Input) float64 {
	return max(floats.Dot(m.Weights, in.vector())+m.Intercept, 0)
}

// NewEngine returns the linear model when coefficients are configured and
// valid, else the sum fallback.
func NewEngine(lin *LinearModel) (PredictionEngine, error) {
	if lin == nil || len(lin.Weights) == 0 {
		return SumModel{}, nil
	}
	if err := lin.Validate(); err != nil {
		return nil, err
	}
	return *lin, nil
}
