package eco

import (
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/microgrid/core/model"
)

// MemoryStore stores records in memory for testing or lightweight usage.
type MemoryStore struct {
	mu   sync.Mutex
	data map[model.SourceKind]map[time.Time]*Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[model.SourceKind]map[time.Time]*Record{}}
}

// Add accumulates the record into its source and day.
func (s *MemoryStore) Add(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[r.Source] == nil {
		s.data[r.Source] = map[time.Time]*Record{}
	}
	d := Day(r.Date)
	rec := s.data[r.Source][d]
	if rec == nil {
		rec = &Record{Source: r.Source, Date: d}
		s.data[r.Source][d] = rec
	}
	rec.GeneratedKWh += r.GeneratedKWh
	return nil
}

// Query returns records between start and end inclusive.
func (s *MemoryStore) Query(source model.SourceKind, start, end time.Time) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start = Day(start)
	end = Day(end)
	var res []Record
	for d, r := range s.data[source] {
		if d.Before(start) || d.After(end) {
			continue
		}
		res = append(res, *r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date.Before(res[j].Date) })
	return res, nil
}
