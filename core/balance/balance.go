// Package balance implements the slow feedback loop that nudges the source
// splits and the diesel generator toward a healthy battery charge.
package balance

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kilianp07/microgrid/core/engine"
	"github.com/kilianp07/microgrid/core/logger"
	"github.com/kilianp07/microgrid/core/model"
)

const (
	DefaultPeriod = 3 * time.Second
	LowSoC        = 0.20
	HighSoC       = 0.80
	SplitStep     = 10.0
	MinSplitPct   = 30.0
	MaxSplitPct   = 95.0
	// LowGenKW is the combined generation below which diesel is started
	// while the batteries are low.
	LowGenKW      = 200.0
)

// Action reports what one Step changed.
type Action string

const (
	ActionNone       Action = "none"
	ActionLowerSplit Action = "lower_split"
	ActionRaiseSplit Action = "raise_split"
)

// Controller adjusts the state of an engine on its own period.
type Controller struct {
	engine  *engine.Engine
	period  time.Duration
	log     logger.Logger
	enabled atomic.Bool
}

// New returns an enabled controller. A non-positive period selects
// DefaultPeriod.
func New(e *engine.Engine, period time.Duration, log logger.Logger) *Controller {
	if period <= 0 {
		period = DefaultPeriod
	}
	c := &Controller{engine: e, period: period, log: logger.OrNop(log)}
	c.enabled.Store(true)
	return c
}

// SetEnabled toggles the controller. A disabled controller keeps its ticker
// but Step does nothing.
func (c *Controller) SetEnabled(on bool) { c.enabled.Store(on) }

// Enabled reports whether the controller acts.
func (c *Controller) Enabled() bool { return c.enabled.Load() }

// Step evaluates the battery charge once and applies the adjustment.
func (c *Controller) Step() Action {
	if !c.Enabled() {
		return ActionNone
	}
	act := ActionNone
	var dieselOn bool
	c.engine.Do(func(s *engine.State) {
		soc := s.SoC()
		switch {
		case soc < LowSoC:
			act = ActionLowerSplit
			shiftSplits(s, -SplitStep)
			if s.LastGenKW() < LowGenKW {
				setDiesel(s, true)
				dieselOn = true
			}
		case soc > HighSoC:
			act = ActionRaiseSplit
			shiftSplits(s, SplitStep)
			setDiesel(s, false)
		}
	})
	switch act {
	case ActionLowerSplit:
		c.log.Infof("auto-balance: charge low, splits lowered (diesel forced: %t)", dieselOn)
	case ActionRaiseSplit:
		c.log.Infof("auto-balance: charge high, splits raised, diesel off")
	}
	return act
}

// Run calls Step every period until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	t := time.NewTicker(c.period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Step()
		}
	}
}

func shiftSplits(s *engine.State, delta float64) {
	for _, k := range model.Renewables() {
		src := s.Sources[k]
		if delta < 0 {
			src.OutputSplitPct = max(src.OutputSplitPct+delta, MinSplitPct)
		} else {
			src.OutputSplitPct = min(src.OutputSplitPct+delta, MaxSplitPct)
		}
	}
}

func setDiesel(s *engine.State, on bool) {
	d := s.Sources[model.SourceDiesel]
	d.Enabled = on
	if on {
		d.Control = 1
	} else {
		d.Control = 0
	}
}
