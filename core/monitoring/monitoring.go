// Package monitoring defines error reporting for faults that must not stop
// the simulator, such as estimator outages or a panicking tick.
package monitoring

import (
	"fmt"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Flush(timeout time.Duration)
}

// NopMonitor drops every report.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Flush(time.Duration)                       {}

// OrNop returns m, or NopMonitor when m is nil.
func OrNop(m Monitor) Monitor {
	if m == nil {
		return NopMonitor{}
	}
	return m
}

// RecoverTo converts a panic into a captured error and returns it. It must be
// called directly from a deferred function:
//
//	defer func() { err = monitoring.RecoverTo(m, recover(), tags) }()
func RecoverTo(m Monitor, r any, tags map[string]string) error {
	if r == nil {
		return nil
	}
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", r)
	}
	OrNop(m).CaptureException(err, tags)
	return err
}
