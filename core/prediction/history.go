package prediction

import (
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/microgrid/core/model"
)

// DefaultWindow is the number of generation samples averaged by FromHistory.
const DefaultWindow = 5

// Forecast is the rolling panel forecast.
type Forecast struct {
	GenKW     float64 `json:"gen_kw"`
	StoredKWh float64 `json:"stored_kwh"`
	Samples   int     `json:"samples"`
}

// FromHistory averages the newest window generation samples and keeps the
// stored energy flat at its last value. Empty history yields a zero forecast.
func FromHistory(h model.History, window int) Forecast {
	if window <= 0 {
		window = DefaultWindow
	}
	var f Forecast
	if h.Gen != nil {
		if tail := h.Gen.Tail(window); len(tail) > 0 {
			f.GenKW = stat.Mean(tail, nil)
			f.Samples = len(tail)
		}
	}
	if h.Stored != nil {
		f.StoredKWh, _ = h.Stored.Last()
	}
	return f
}
