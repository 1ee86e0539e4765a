package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/kilianp07/microgrid/core/events"
	"github.com/kilianp07/microgrid/core/model"
)

// SourceEdit changes the knobs of one source. Nil fields are left as is.
type SourceEdit struct {
	Enabled        *bool    `json:"enabled,omitempty"`
	Control        *float64 `json:"control,omitempty"`
	OutputSplitPct *float64 `json:"output_split_pct,omitempty"`
}

// DestinationEdit changes a destination. Nil fields are left as is.
type DestinationEdit struct {
	Name     *string  `json:"name,omitempty"`
	Priority *int     `json:"priority,omitempty"`
	DemandKW *float64 `json:"demand_kw,omitempty"`
}

func newDestinationID() string { return "dst-" + uuid.NewString()[:8] }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func validateSource(kind model.SourceKind, ed SourceEdit) error {
	if ed.OutputSplitPct != nil {
		v := *ed.OutputSplitPct
		if !finite(v) || v < 0 || v > 100 {
			return fmt.Errorf("output_split_pct must be in [0,100], got %v", v)
		}
	}
	if ed.Control != nil {
		v := *ed.Control
		if !finite(v) || v < 0 {
			return fmt.Errorf("control must be a non-negative number, got %v", v)
		}
		switch kind {
		case model.SourceSolar, model.SourceHydro:
			if v > 100 {
				return fmt.Errorf("%s control is a percentage, got %v", kind, v)
			}
		case model.SourceDiesel:
			if v != 0 && v != 1 {
				return fmt.Errorf("diesel control is 0 (off) or 1 (on), got %v", v)
			}
		}
	}
	return nil
}

func destinationFromSpec(spec DestinationSpec, index int) (model.Destination, error) {
	p := model.DefaultPriority
	if spec.Priority != 0 {
		var err error
		if p, err = model.ParsePriority(spec.Priority); err != nil {
			return model.Destination{}, err
		}
	}
	if !finite(spec.DemandKW) || spec.DemandKW < 0 {
		return model.Destination{}, fmt.Errorf("demand_kw must not be negative, got %v", spec.DemandKW)
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		name = fmt.Sprintf("Dest %d", index+1)
	}
	return model.Destination{Name: name, Priority: p, DemandKW: spec.DemandKW}, nil
}

// command runs fn under the lock and reports the outcome.
func (e *Engine) command(name string, fn func(s *State) (string, error)) error {
	e.mu.Lock()
	detail, err := fn(e.state)
	bus, now := e.bus, e.now
	e.mu.Unlock()
	if err != nil {
		commandsTotal.WithLabelValues(name, "rejected").Inc()
		e.log.Warnf("%s rejected: %v", name, err)
		return err
	}
	commandsTotal.WithLabelValues(name, "applied").Inc()
	e.log.Infof("%s applied: %s", name, detail)
	if bus != nil {
		bus.Publish(events.CommandEvent{Command: name, Detail: detail, Time: now()})
	}
	return nil
}

// SetSource edits one source.
func (e *Engine) SetSource(kind model.SourceKind, ed SourceEdit) error {
	const op = "set_source"
	return e.command(op, func(s *State) (string, error) {
		src, ok := s.Sources[kind]
		if !ok {
			return "", rejected(op, "unknown source %v", kind)
		}
		if err := validateSource(kind, ed); err != nil {
			return "", &ConfigError{Op: op, Err: err}
		}
		if ed.Enabled != nil {
			src.Enabled = *ed.Enabled
		}
		if ed.Control != nil {
			src.Control = *ed.Control
		}
		if ed.OutputSplitPct != nil {
			src.OutputSplitPct = *ed.OutputSplitPct
		}
		return fmt.Sprintf("%s enabled=%t control=%g split=%g", kind, src.Enabled, src.Control, src.OutputSplitPct), nil
	})
}

// AddBattery registers a battery and returns it.
func (e *Engine) AddBattery(spec model.BatterySpec) (model.Battery, error) {
	const op = "add_battery"
	var b model.Battery
	err := e.command(op, func(s *State) (string, error) {
		var err error
		if b, err = s.Fleet.Add(spec); err != nil {
			return "", &ConfigError{Op: op, Err: err}
		}
		return b.ID, nil
	})
	return b, err
}

// RemoveBattery deletes a battery.
func (e *Engine) RemoveBattery(id string) error {
	const op = "remove_battery"
	return e.command(op, func(s *State) (string, error) {
		if err := s.Fleet.Remove(id); err != nil {
			return "", &ConfigError{Op: op, Err: err}
		}
		return id, nil
	})
}

// ResetBatteries empties every battery.
func (e *Engine) ResetBatteries() error {
	return e.command("reset_batteries", func(s *State) (string, error) {
		s.Fleet.ResetCharge()
		return fmt.Sprintf("%d batteries", s.Fleet.Len()), nil
	})
}

// AddDestination registers a consumer and returns it.
func (e *Engine) AddDestination(spec DestinationSpec) (model.Destination, error) {
	const op = "add_destination"
	var d model.Destination
	err := e.command(op, func(s *State) (string, error) {
		var err error
		if d, err = destinationFromSpec(spec, len(s.Destinations)); err != nil {
			return "", &ConfigError{Op: op, Err: err}
		}
		d.ID = e.newID()
		s.Destinations = append(s.Destinations, d)
		return d.ID, nil
	})
	return d, err
}

// UpdateDestination edits a consumer.
func (e *Engine) UpdateDestination(id string, ed DestinationEdit) (model.Destination, error) {
	const op = "update_destination"
	var out model.Destination
	err := e.command(op, func(s *State) (string, error) {
		i := indexOf(s.Destinations, id)
		if i < 0 {
			return "", &ConfigError{Op: op, Err: fmt.Errorf("%w: %s", ErrUnknownDestination, id)}
		}
		d := s.Destinations[i]
		if ed.Name != nil {
			name := strings.TrimSpace(*ed.Name)
			if name == "" {
				return "", rejected(op, "name must not be empty")
			}
			d.Name = name
		}
		if ed.Priority != nil {
			p, err := model.ParsePriority(*ed.Priority)
			if err != nil {
				return "", &ConfigError{Op: op, Err: err}
			}
			d.Priority = p
		}
		if ed.DemandKW != nil {
			v := *ed.DemandKW
			if !finite(v) || v < 0 {
				return "", rejected(op, "demand_kw must not be negative, got %v", v)
			}
			d.DemandKW = v
		}
		s.Destinations[i] = d
		out = d
		return id, nil
	})
	return out, err
}

// RemoveDestination deletes a consumer.
func (e *Engine) RemoveDestination(id string) error {
	const op = "remove_destination"
	return e.command(op, func(s *State) (string, error) {
		i := indexOf(s.Destinations, id)
		if i < 0 {
			return "", &ConfigError{Op: op, Err: fmt.Errorf("%w: %s", ErrUnknownDestination, id)}
		}
		s.Destinations = append(s.Destinations[:i:i], s.Destinations[i+1:]...)
		return id, nil
	})
}

// ResetDestinations removes every consumer.
func (e *Engine) ResetDestinations() error {
	return e.command("reset_destinations", func(s *State) (string, error) {
		n := len(s.Destinations)
		s.Destinations = nil
		return fmt.Sprintf("%d removed", n), nil
	})
}

// SetGridMode selects the interconnection policy.
func (e *Engine) SetGridMode(mode string) error {
	const op = "set_grid_mode"
	return e.command(op, func(s *State) (string, error) {
		m, err := model.ParseGridMode(mode)
		if err != nil {
			return "", &ConfigError{Op: op, Err: err}
		}
		s.Grid.Mode = m
		if m == model.GridIsland {
			s.Grid.ImportKW, s.Grid.ExportKW = 0, 0
		}
		return string(m), nil
	})
}

// SetWeather toggles the weather generator and optionally moves its clock.
func (e *Engine) SetWeather(enabled bool, minutes *int) error {
	return e.command("set_weather", func(s *State) (string, error) {
		s.Weather.SetEnabled(enabled)
		if minutes != nil {
			s.Weather.SetTime(*minutes)
		}
		w := s.Weather.State()
		return fmt.Sprintf("enabled=%t time=%s", w.Enabled, w.Clock()), nil
	})
}

// SetSpeed changes the speed multiplier. Allowed values are in (0, MaxSpeed].
func (e *Engine) SetSpeed(multiplier float64) error {
	const op = "set_speed"
	return e.command(op, func(s *State) (string, error) {
		if !finite(multiplier) || multiplier <= 0 || multiplier > MaxSpeed {
			return "", rejected(op, "speed must be in (0,%d], got %v", MaxSpeed, multiplier)
		}
		s.Speed = multiplier
		return fmt.Sprintf("%gx", multiplier), nil
	})
}

// ResetAccounting zeroes the cumulative counters.
func (e *Engine) ResetAccounting() error {
	return e.command("reset_accounting", func(s *State) (string, error) {
		s.Totals = model.NewTotals()
		return "totals cleared", nil
	})
}

// ForceAll routes every source fully to output, or fully to storage.
func (e *Engine) ForceAll(toOutput bool) error {
	return e.command("force_all", func(s *State) (string, error) {
		pct := 0.0
		if toOutput {
			pct = 100
		}
		for _, src := range s.Sources {
			src.OutputSplitPct = pct
		}
		return fmt.Sprintf("split=%g", pct), nil
	})
}

// ResetAll empties the batteries, clears the last allocation results and
// zeroes the counters.
func (e *Engine) ResetAll() error {
	return e.command("reset_all", func(s *State) (string, error) {
		s.Fleet.ResetCharge()
		for i := range s.Destinations {
			s.Destinations[i].LastRecvKW = 0
			s.Destinations[i].ShedKW = 0
		}
		s.Totals = model.NewTotals()
		return "state cleared", nil
	})
}

func indexOf(dests []model.Destination, id string) int {
	for i, d := range dests {
		if d.ID == id {
			return i
		}
	}
	return -1
}
