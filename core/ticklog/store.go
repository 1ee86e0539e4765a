// Package ticklog keeps an append-only audit trail of completed ticks. The
// trail is never read back into the engine.
package ticklog

import (
	"context"
	"time"

	"github.com/kilianp07/microgrid/core/model"
)

// Record captures one completed tick.
type Record struct {
	Timestamp time.Time         `json:"timestamp"`
	Tick      uint64            `json:"tick"`
	Summary   model.TickSummary `json:"summary"`
}

// FromSummary builds the record for a tick summary.
func FromSummary(s model.TickSummary) Record {
	return Record{Timestamp: s.Time, Tick: s.Tick, Summary: s}
}

// Query filters records. Zero values disable a filter.
type Query struct {
	Start        time.Time
	End          time.Time
	Mode         model.GridMode
	SheddingOnly bool
	Limit        int
}

// Match reports whether r passes the filters other than Limit.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Mode != "" && r.Summary.Grid.Mode != q.Mode {
		return false
	}
	if q.SheddingOnly && !r.Summary.Shedding.Active {
		return false
	}
	return true
}

// Store persists tick records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

func limit(recs []Record, n int) []Record {
	if n > 0 && len(recs) > n {
		return recs[len(recs)-n:]
	}
	return recs
}
