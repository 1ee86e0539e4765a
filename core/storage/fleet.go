// Package storage manages the battery fleet of the grid.
package storage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/microgrid/core/model"
)

// ErrUnknownBattery is returned when an identifier matches no battery.
var ErrUnknownBattery = errors.New("unknown battery")

// Fleet owns the batteries in registration order. It is not safe for
// concurrent use; the engine serializes access.
type Fleet struct {
	batteries []*model.Battery
	newID     func() string
}

// NewFleet returns an empty fleet.
func NewFleet() *Fleet {
	return &Fleet{newID: func() string { return "bat-" + uuid.NewString()[:8] }}
}

// Validate checks a battery specification.
func Validate(spec model.BatterySpec) error {
	if !(spec.CapacityKWh > 0) {
		return fmt.Errorf("capacity_kwh must be positive, got %v", spec.CapacityKWh)
	}
	if spec.MaxChargeKW < 0 {
		return fmt.Errorf("max_charge_kw must not be negative, got %v", spec.MaxChargeKW)
	}
	if spec.MaxDischargeKW < 0 {
		return fmt.Errorf("max_discharge_kw must not be negative, got %v", spec.MaxDischargeKW)
	}
	return nil
}

// Add registers a new battery. The initial charge is clamped to [0, capacity].
func (f *Fleet) Add(spec model.BatterySpec) (model.Battery, error) {
	if err := Validate(spec); err != nil {
		return model.Battery{}, err
	}
	b := &model.Battery{
		ID:             f.newID(),
		CapacityKWh:    spec.CapacityKWh,
		StoredKWh:      model.Clamp(spec.InitialKWh, 0, spec.CapacityKWh),
		MaxChargeKW:    spec.MaxChargeKW,
		MaxDischargeKW: spec.MaxDischargeKW,
	}
	f.batteries = append(f.batteries, b)
	return *b, nil
}

// Remove deletes the battery with the given id.
func (f *Fleet) Remove(id string) error {
	for i, b := range f.batteries {
		if b.ID == id {
			f.batteries = append(f.batteries[:i], f.batteries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownBattery, id)
}

// ResetCharge empties every battery.
func (f *Fleet) ResetCharge() {
	for _, b := range f.batteries {
		b.StoredKWh = 0
	}
}

// Len returns the number of batteries.
func (f *Fleet) Len() int { return len(f.batteries) }

// List returns copies of the batteries in registration order.
func (f *Fleet) List() []model.Battery {
	out := make([]model.Battery, len(f.batteries))
	for i, b := range f.batteries {
		out[i] = *b
	}
	return out
}

// Charge offers surplusKWh to the batteries in registration order. Each
// battery takes at most its free room and maxChargeKW*dtHours. The energy
// that could not be absorbed is returned.
func (f *Fleet) Charge(surplusKWh, dtHours float64) float64 {
	remaining := surplusKWh
	if !(remaining > 0) {
		return 0
	}
	for _, b := range f.batteries {
		if remaining <= 0 {
			break
		}
		room := b.Room()
		if room <= 0 {
			continue
		}
		limit := max(b.MaxChargeKW*dtHours, 0)
		take := min(room, limit, remaining)
		if take <= 0 {
			continue
		}
		b.StoredKWh = model.Clamp(b.StoredKWh+take, 0, b.CapacityKWh)
		remaining -= take
	}
	return max(remaining, 0)
}

// Discharge draws up to deficitKWh from the batteries, fullest first. Each
// battery gives at most its stored energy and maxDischargeKW*dtHours. The
// energy actually provided is returned.
func (f *Fleet) Discharge(deficitKWh, dtHours float64) float64 {
	need := deficitKWh
	if !(need > 0) {
		return 0
	}
	order := make([]*model.Battery, len(f.batteries))
	copy(order, f.batteries)
	sort.SliceStable(order, func(i, j int) bool { return order[i].StoredKWh > order[j].StoredKWh })

	provided := 0.0
	for _, b := range order {
		if need <= 0 {
			break
		}
		if b.StoredKWh <= 0 {
			continue
		}
		limit := max(b.MaxDischargeKW*dtHours, 0)
		take := min(b.StoredKWh, limit, need)
		if take <= 0 {
			continue
		}
		b.StoredKWh = model.Clamp(b.StoredKWh-take, 0, b.CapacityKWh)
		need -= take
		provided += take
	}
	return provided
}

// TotalStored returns the aggregate stored energy.
func (f *Fleet) TotalStored() float64 {
	v := make([]float64, len(f.batteries))
	for i, b := range f.batteries {
		v[i] = b.StoredKWh
	}
	return floats.Sum(v)
}

// TotalCapacity returns the aggregate capacity.
func (f *Fleet) TotalCapacity() float64 {
	v := make([]float64, len(f.batteries))
	for i, b := range f.batteries {
		v[i] = b.CapacityKWh
	}
	return floats.Sum(v)
}

// SoC returns aggregate stored energy over aggregate capacity, or 0 when the
// fleet has no capacity.
func (f *Fleet) SoC() float64 {
	c := f.TotalCapacity()
	if c <= 0 {
		return 0
	}
	return model.Clamp(f.TotalStored()/c, 0, 1)
}
