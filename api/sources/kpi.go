package sources

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	eco "github.com/kilianp07/microgrid/core/metrics/eco"
	"github.com/kilianp07/microgrid/core/model"
)

// KPI is one day of production of a source.
type KPI struct {
	Date         string  `json:"date"`
	GeneratedKWh float64 `json:"generated_kwh"`
	CO2Avoided   float64 `json:"co2_avoided_g"`
}

// NewKPIHandler exposes daily energy KPIs via GET /api/sources/{kind}/kpis.
// It must be mounted on a chi route declaring the {kind} parameter.
func NewKPIHandler(store eco.Store, factor float64, now func() time.Time) http.Handler {
	if now == nil {
		now = time.Now
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind, err := model.ParseSourceKind(chi.URLParam(r, "kind"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		start, _ := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
		end, _ := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
		if end.IsZero() {
			end = now()
		}
		recs, err := store.Query(kind, start, end)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out := make([]KPI, len(recs))
		for i, rec := range recs {
			out[i] = KPI{
				Date:         rec.Date.Format("2006-01-02"),
				GeneratedKWh: rec.GeneratedKWh,
				CO2Avoided:   rec.CO2Avoided(factor),
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
}
