// Package alerts derives advisory messages from the state after a tick and
// keeps a bounded log of them.
package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/microgrid/core/model"
)

// Thresholds of the alert rules.
const (
	CriticalSoC     = 0.15
	LowSoC          = 0.30
	HighGenKW       = 400
	DefaultLogSize  = 100
	CodeSoCCritical = "soc_critical"
	CodeSoCLow      = "soc_low"
	CodeDiesel      = "diesel_running"
	CodeHighGen     = "high_generation"
	CodeShedding    = "load_shedding"
	CodeGridImport  = "grid_import"
	CodeGridExport  = "grid_export"
	CodeSupplyStale = "supply_stale"
)

// Input is the state the rules look at.
type Input struct {
	Tick          uint64
	Time          time.Time
	SoC           float64
	DieselRunning bool
	LastGenKW     float64
	Shedding      model.Shedding
	Grid          model.Grid
	SupplyStale   bool
}

// Evaluate returns the alerts raised by in, most severe rules first.
func Evaluate(in Input) []model.Alert {
	var out []model.Alert
	add := func(code string, sev model.Severity, format string, args ...any) {
		out = append(out, model.Alert{
			Time:     in.Time,
			Tick:     in.Tick,
			Code:     code,
			Severity: sev,
			Message:  fmt.Sprintf(format, args...),
		})
	}
	switch {
	case in.SoC < CriticalSoC:
		add(CodeSoCCritical, model.SeverityHigh, "Battery critically low!")
	case in.SoC < LowSoC:
		add(CodeSoCLow, model.SeverityWarn, "Battery low")
	}
	if in.DieselRunning {
		add(CodeDiesel, model.SeverityInfo, "Diesel generator running")
	}
	if in.LastGenKW > HighGenKW {
		add(CodeHighGen, model.SeverityInfo, "High generation, consider exporting to grid")
	}
	if in.Shedding.Active {
		add(CodeShedding, model.SeverityHigh, "Load shedding active (%d destination(s) curtailed)", in.Shedding.Count)
	}
	if in.Grid.ImportKW > 0 {
		add(CodeGridImport, model.SeverityInfo, "Grid Import: %.1f kW", in.Grid.ImportKW)
	}
	if in.Grid.ExportKW > 0 {
		add(CodeGridExport, model.SeverityInfo, "Grid Export: %.1f kW", in.Grid.ExportKW)
	}
	if in.SupplyStale {
		add(CodeSupplyStale, model.SeverityWarn, "Generation estimate unavailable, using last known values")
	}
	return out
}

// Log is a bounded, concurrency safe alert history. The oldest entries are
// evicted first.
type Log struct {
	mu      sync.RWMutex
	size    int
	entries []model.Alert
	current []model.Alert
}

// NewLog returns a log holding at most size entries. A non-positive size
// selects DefaultLogSize.
func NewLog(size int) *Log {
	if size <= 0 {
		size = DefaultLogSize
	}
	return &Log{size: size}
}

// Record replaces the active alerts with as and appends them to the history.
func (l *Log) Record(as []model.Alert) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = append(l.current[:0:0], as...)
	l.entries = append(l.entries, as...)
	if over := len(l.entries) - l.size; over > 0 {
		l.entries = append(l.entries[:0:0], l.entries[over:]...)
	}
}

// Active returns the alerts raised by the last recorded tick.
func (l *Log) Active() []model.Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Alert(nil), l.current...)
}

// History returns the retained alerts, oldest first.
func (l *Log) History() []model.Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Alert(nil), l.entries...)
}

// Reset clears the log.
func (l *Log) Reset() {
	l.mu.Lock()
	l.entries = nil
	l.current = nil
	l.mu.Unlock()
}
