package engine

import (
	"errors"
	"fmt"
)

// ErrTickInProgress is returned when a tick is requested while another one
// is still running. The request is dropped.
var ErrTickInProgress = errors.New("tick already in progress")

// ErrConfigRejected matches every ConfigError with errors.Is.
var ErrConfigRejected = errors.New("configuration rejected")

// ErrUnknownDestination is returned when an identifier matches no destination.
var ErrUnknownDestination = errors.New("unknown destination")

// ConfigError reports an edit that was refused. Nothing was applied.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConfigRejected) hold for every ConfigError.
func (e *ConfigError) Is(target error) bool { return target == ErrConfigRejected }

func rejected(op string, format string, args ...any) error {
	return &ConfigError{Op: op, Err: fmt.Errorf(format, args...)}
}

// TransientSupplyError wraps a failed generation estimate. The tick that hit
// it ran on the last known availability.
type TransientSupplyError struct {
	Tick uint64
	Err  error
}

func (e *TransientSupplyError) Error() string {
	return fmt.Sprintf("tick %d: generation estimate unavailable: %v", e.Tick, e.Err)
}

func (e *TransientSupplyError) Unwrap() error { return e.Err }
