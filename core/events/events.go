package events

import (
	"time"

	"github.com/kilianp07/microgrid/core/model"
)

// Event is implemented by every value published on the simulator bus.
type Event interface {
	EventName() string
}

// TickEvent is published after every completed tick.
type TickEvent struct {
	Summary model.TickSummary
}

func (TickEvent) EventName() string { return "tick" }

// SupplyFailureEvent is published when a tick fell back to stale
// availability values.
type SupplyFailureEvent struct {
	Tick uint64
	Err  error
	Time time.Time
}

func (SupplyFailureEvent) EventName() string { return "supply_failure" }

// CommandEvent is published when an edit command changed the state.
type CommandEvent struct {
	Command string
	Detail  string
	Time    time.Time
}

func (CommandEvent) EventName() string { return "command" }

// AlertEvent carries an advisory alert.
type AlertEvent struct {
	Alert model.Alert
}

func (AlertEvent) EventName() string { return "alert" }
