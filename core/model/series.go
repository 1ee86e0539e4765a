package model

import "encoding/json"

// DefaultHistoryPoints is the number of samples kept per series.
const DefaultHistoryPoints = 30

// Series is a bounded FIFO of samples. When full the oldest sample is
// evicted first. The zero value is unusable; use NewSeries.
type Series struct {
	size int
	vals []float64
}

// NewSeries returns an empty series holding at most size samples.
func NewSeries(size int) *Series {
	if size <= 0 {
		size = DefaultHistoryPoints
	}
	return &Series{size: size, vals: make([]float64, 0, size)}
}

// Push appends v, evicting the oldest sample when the series is full.
func (s *Series) Push(v float64) {
	if len(s.vals) == s.size {
		copy(s.vals, s.vals[1:])
		s.vals = s.vals[:s.size-1]
	}
	s.vals = append(s.vals, v)
}

// Len returns the number of stored samples.
func (s *Series) Len() int { return len(s.vals) }

// Cap returns the maximum number of samples.
func (s *Series) Cap() int { return s.size }

// Last returns the newest sample.
func (s *Series) Last() (float64, bool) {
	if len(s.vals) == 0 {
		return 0, false
	}
	return s.vals[len(s.vals)-1], true
}

// Tail returns a copy of the newest n samples, oldest first.
func (s *Series) Tail(n int) []float64 {
	if n > len(s.vals) {
		n = len(s.vals)
	}
	out := make([]float64, n)
	copy(out, s.vals[len(s.vals)-n:])
	return out
}

// Values returns a copy of all samples, oldest first.
func (s *Series) Values() []float64 { return s.Tail(len(s.vals)) }

// Clone returns an independent copy.
func (s *Series) Clone() *Series {
	if s == nil {
		return nil
	}
	c := NewSeries(s.size)
	c.vals = append(c.vals, s.vals...)
	return c
}

// Reset drops every sample.
func (s *Series) Reset() { s.vals = s.vals[:0] }

// MarshalJSON encodes the samples as a plain array.
func (s *Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.vals)
}

// UnmarshalJSON decodes a plain array. An unsized series takes the larger of
// the sample count and DefaultHistoryPoints; extra samples keep the newest.
func (s *Series) UnmarshalJSON(b []byte) error {
	var vals []float64
	if err := json.Unmarshal(b, &vals); err != nil {
		return err
	}
	if s.size <= 0 {
		s.size = max(len(vals), DefaultHistoryPoints)
	}
	if over := len(vals) - s.size; over > 0 {
		vals = vals[over:]
	}
	s.vals = append(make([]float64, 0, s.size), vals...)
	return nil
}
