package ticks

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/core/ticklog"
)

// NewLogHandler returns an HTTP handler exposing the tick audit trail via GET /api/ticks.
// Supported filters: start and end (RFC3339), mode, shedding=true and limit.
func NewLogHandler(store ticklog.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []ticklog.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func parseQuery(r *http.Request) (ticklog.Query, error) {
	v := r.URL.Query()
	q := ticklog.Query{}
	if s := v.Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, err
		}
		q.Start = t
	}
	if s := v.Get("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, err
		}
		q.End = t
	}
	if s := v.Get("mode"); s != "" {
		m, err := model.ParseGridMode(s)
		if err != nil {
			return q, err
		}
		q.Mode = m
	}
	if s := v.Get("shedding"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return q, err
		}
		q.SheddingOnly = b
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, err
		}
		q.Limit = n
	}
	return q, nil
}
