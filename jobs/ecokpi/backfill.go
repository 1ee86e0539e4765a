// Package ecokpi rebuilds the daily energy KPIs from the tick audit log.
package ecokpi

import (
	"github.com/kilianp07/microgrid/core/metrics/eco"
	"github.com/kilianp07/microgrid/core/ticklog"
)

// Backfill processes historical tick records and populates the store. It
// returns the number of energy records written.
func Backfill(store eco.Store, history []ticklog.Record) (int, error) {
	n := 0
	for _, h := range history {
		for _, rec := range eco.FromSummary(h.Summary) {
			if err := store.Add(rec); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
