// Package engine runs the tick-based allocation loop of the micro-grid and
// owns the simulation state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kilianp07/microgrid/core/alerts"
	"github.com/kilianp07/microgrid/core/dispatch"
	"github.com/kilianp07/microgrid/core/estimation"
	"github.com/kilianp07/microgrid/core/events"
	"github.com/kilianp07/microgrid/core/grid"
	"github.com/kilianp07/microgrid/core/logger"
	"github.com/kilianp07/microgrid/core/metrics"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/core/monitoring"
	"github.com/kilianp07/microgrid/core/storage"
	"github.com/kilianp07/microgrid/core/ticklog"
	"github.com/kilianp07/microgrid/core/weather"
	"github.com/kilianp07/microgrid/internal/eventbus"
)

// State is the single simulation aggregate. It is only touched with the
// engine lock held.
type State struct {
	Sources      map[model.SourceKind]*model.Source
	Fleet        *storage.Fleet
	Destinations []model.Destination
	Grid         model.Grid
	Totals       model.Totals
	History      model.History
	Weather      *weather.Generator
	Speed        float64
	Tick         uint64
	Last         *model.TickSummary
}

// SoC returns the aggregate state of charge.
func (s *State) SoC() float64 { return s.Fleet.SoC() }

// LastGenKW returns the most recent combined generation sample, or 0.
func (s *State) LastGenKW() float64 {
	v, _ := s.History.Gen.Last()
	return v
}

// Engine executes ticks and edit commands against one State.
type Engine struct {
	mu      sync.Mutex
	running atomic.Bool

	cfg        Config
	state      *State
	dispatcher dispatch.Dispatcher
	manual     estimation.Model
	estimator  estimation.Estimator

	log     logger.Logger
	sink    metrics.MetricsSink
	store   ticklog.Store
	bus     *eventbus.TypedBus[events.Event]
	monitor monitoring.Monitor
	alerts  *alerts.Log
	now     func() time.Time
	newID   func() string
}

// New builds an engine from cfg, seeding the inventory it lists. rng drives
// the weather random walks; nil selects a source seeded from the config.
func New(cfg Config, rng weather.Rand, log logger.Logger) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, _ := model.ParseGridMode(cfg.GridMode)
	gen := weather.New(cfg.Weather, rng)

	st := &State{
		Sources: make(map[model.SourceKind]*model.Source, len(model.SourceKinds)),
		Fleet:   storage.NewFleet(),
		Grid:    model.Grid{Mode: mode},
		Totals:  model.NewTotals(),
		History: model.NewHistory(cfg.HistorySize),
		Weather: gen,
		Speed:   cfg.Speed,
	}
	for _, k := range model.SourceKinds {
		sc := cfg.Sources[k.String()]
		st.Sources[k] = &model.Source{
			Kind:           k,
			Enabled:        sc.Enabled,
			Control:        sc.Control,
			OutputSplitPct: model.ClampPct(sc.OutputSplitPct),
			History:        model.NewSeries(cfg.HistorySize),
		}
	}
	for _, b := range cfg.Batteries {
		if _, err := st.Fleet.Add(b); err != nil {
			return nil, err
		}
	}

	e := &Engine{
		cfg:        cfg,
		state:      st,
		dispatcher: dispatch.PriorityDispatcher{},
		manual:     cfg.Estimation,
		log:        logger.OrNop(log),
		sink:       metrics.NopSink{},
		store:      ticklog.NopStore{},
		monitor:    monitoring.NopMonitor{},
		alerts:     alerts.NewLog(alerts.DefaultLogSize),
		now:        time.Now,
		newID:      newDestinationID,
	}
	for i, spec := range cfg.Destinations {
		d, err := destinationFromSpec(spec, i)
		if err != nil {
			return nil, err
		}
		d.ID = e.newID()
		st.Destinations = append(st.Destinations, d)
	}
	e.resolveAvailability(context.Background())
	return e, nil
}

// SetEstimator configures the remote generation estimator. nil disables it.
func (e *Engine) SetEstimator(est estimation.Estimator) {
	e.mu.Lock()
	e.estimator = est
	e.mu.Unlock()
}

// SetMetricsSink configures where tick summaries are recorded.
func (e *Engine) SetMetricsSink(s metrics.MetricsSink) {
	if s == nil {
		s = metrics.NopSink{}
	}
	e.mu.Lock()
	e.sink = s
	e.mu.Unlock()
}

// SetLogStore configures the tick audit log.
func (e *Engine) SetLogStore(s ticklog.Store) {
	if s == nil {
		s = ticklog.NopStore{}
	}
	e.mu.Lock()
	e.store = s
	e.mu.Unlock()
}

// SetBus configures the bus events are published on.
func (e *Engine) SetBus(b *eventbus.TypedBus[events.Event]) {
	e.mu.Lock()
	e.bus = b
	e.mu.Unlock()
}

// SetMonitor configures error reporting.
func (e *Engine) SetMonitor(m monitoring.Monitor) {
	e.mu.Lock()
	e.monitor = monitoring.OrNop(m)
	e.mu.Unlock()
}

// SetClock replaces the wall clock used to stamp ticks.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	e.now = now
	e.mu.Unlock()
}

// Alerts returns the alert log fed after each tick.
func (e *Engine) Alerts() *alerts.Log { return e.alerts }

// DeltaHours returns the logical duration of one tick at the current speed.
func (e *Engine) DeltaHours() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deltaHours()
}

func (e *Engine) deltaHours() float64 {
	return e.cfg.BaseTick.Hours() * e.state.Speed
}

// sideEffects are collected under the lock and performed after it is released.
type sideEffects struct {
	summary   model.TickSummary
	alerts    []model.Alert
	supplyErr error
	sink      metrics.MetricsSink
	store     ticklog.Store
	bus       *eventbus.TypedBus[events.Event]
	monitor   monitoring.Monitor
}

// Tick runs one full allocation pass. A call made while another tick is
// running returns ErrTickInProgress and changes nothing. An estimator
// failure is not an error: the tick completes on stale availability and the
// summary is flagged SupplyStale.
func (e *Engine) Tick(ctx context.Context) (summary model.TickSummary, err error) {
	if !e.running.CompareAndSwap(false, true) {
		ticksDropped.Inc()
		return model.TickSummary{}, ErrTickInProgress
	}
	defer e.running.Store(false)

	start := time.Now()
	fx, err := e.lockedTick(ctx)
	if err != nil {
		return model.TickSummary{}, err
	}
	tickDuration.Observe(time.Since(start).Seconds())
	ticksTotal.Inc()
	e.publish(ctx, fx)
	return fx.summary, nil
}

func (e *Engine) lockedTick(ctx context.Context) (fx sideEffects, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if perr := monitoring.RecoverTo(e.monitor, recover(), map[string]string{"component": "engine", "op": "tick"}); perr != nil {
			e.log.Errorf("tick %d aborted: %v", e.state.Tick, perr)
			err = perr
		}
	}()

	fx.summary, fx.supplyErr = e.step(ctx)
	s := e.state
	fx.alerts = alerts.Evaluate(alerts.Input{
		Tick:          fx.summary.Tick,
		Time:          fx.summary.Time,
		SoC:           fx.summary.SoC,
		DieselRunning: s.Sources[model.SourceDiesel].On(),
		LastGenKW:     s.LastGenKW(),
		Shedding:      fx.summary.Shedding,
		Grid:          fx.summary.Grid,
		SupplyStale:   fx.summary.SupplyStale,
	})
	e.alerts.Record(fx.alerts)
	fx.sink, fx.store, fx.bus, fx.monitor = e.sink, e.store, e.bus, e.monitor
	return fx, nil
}

// step executes the allocation pass. The caller holds the lock.
func (e *Engine) step(ctx context.Context) (model.TickSummary, error) {
	s := e.state
	dt := e.deltaHours()
	s.Tick++

	// 1. availability
	if w := s.Weather.State(); w.Enabled {
		s.Weather.Advance()
	}
	supplyErr := e.resolveAvailability(ctx)
	for _, k := range model.SourceKinds {
		s.Sources[k].History.Push(s.Sources[k].AvailableKW)
	}

	// 2. output / surplus split
	avail := make(map[model.SourceKind]float64, len(model.SourceKinds))
	var genKW, outKW, surplusKW float64
	for _, k := range model.SourceKinds {
		src := s.Sources[k]
		out, sur := src.Split()
		avail[k] = src.AvailableKW
		genKW += src.AvailableKW
		outKW += out
		surplusKW += max(sur, 0)
	}

	// 3. dispatch, optionally backed by the batteries
	alloc := e.dispatcher.Allocate(outKW, s.Destinations)
	var dischargedKWh float64
	if e.cfg.DischargeOnDeficit && alloc.DeficitKW() > 0 && dt > 0 {
		dischargedKWh = s.Fleet.Discharge(alloc.DeficitKW()*dt, dt)
		if dischargedKWh > 0 {
			alloc = e.dispatcher.Allocate(outKW+dischargedKWh/dt, s.Destinations)
			alloc.TotalOutputKW = outKW
			alloc.RemainingKW = max(alloc.RemainingKW-dischargedKWh/dt, 0)
		}
	}
	s.Destinations = alloc.Destinations

	// 4. grid policy
	soc := s.Fleet.SoC()
	decision := grid.Evaluate(s.Grid.Mode, grid.Inputs{
		DeficitKW: alloc.DeficitKW(),
		SurplusKW: alloc.SurplusKW(),
		SoC:       soc,
	})
	s.Grid = decision.Grid(s.Grid.Mode)
	if decision.ForceDiesel {
		d := s.Sources[model.SourceDiesel]
		d.Enabled = true
		d.Control = 1
	}

	// 5. charge from the storage share
	offered := surplusKW * dt
	leftover := s.Fleet.Charge(offered, dt)
	chargedKWh := max(offered-leftover, 0)

	// 6. ledger
	s.Totals.GenKWh += genKW * dt
	s.Totals.OutKWh += outKW * dt
	s.Totals.SavedKWh += chargedKWh
	for k, v := range avail {
		s.Totals.PerSourceKWh[k] += v * dt
	}

	// 7. history
	stored := s.Fleet.TotalStored()
	s.History.Gen.Push(genKW)
	s.History.Output.Push(outKW)
	s.History.Stored.Push(stored)

	summary := model.TickSummary{
		Tick:            s.Tick,
		Time:            e.now(),
		DeltaHours:      dt,
		AvailableKW:     avail,
		TotalGenKW:      genKW,
		TotalOutputKW:   outKW,
		TotalSurplusKW:  surplusKW,
		TotalDemandKW:   alloc.TotalDemandKW,
		TotalSuppliedKW: alloc.TotalSuppliedKW,
		DeficitKW:       alloc.DeficitKW(),
		DischargedKWh:   dischargedKWh,
		ChargedKWh:      chargedKWh,
		StoredKWh:       stored,
		SoC:             s.Fleet.SoC(),
		Grid:            s.Grid,
		Shedding:        alloc.Shedding,
		DieselForced:    decision.ForceDiesel,
		SupplyStale:     supplyErr != nil,
	}
	last := summary
	s.Last = &last
	return summary, supplyErr
}

// resolveAvailability refreshes AvailableKW of every source. The caller
// holds the lock (or owns the engine during construction). On estimator
// failure the renewable values are left untouched.
func (e *Engine) resolveAvailability(ctx context.Context) error {
	s := e.state
	w := s.Weather.State()
	var err error
	switch {
	case e.estimator != nil:
		req := estimation.ControlRequest(
			s.Sources[model.SourceSolar].Control,
			s.Sources[model.SourceWind].Control,
			s.Sources[model.SourceHydro].Control,
		)
		if w.Enabled {
			req = estimation.Request{Sunlight: w.SunlightPct, Wind: w.WindPct, Hydro: w.HydroPct}
		}
		cctx, cancel := context.WithTimeout(ctx, e.cfg.EstimatorTimeout)
		res, eerr := e.estimator.Estimate(cctx, req)
		cancel()
		if eerr != nil {
			err = &TransientSupplyError{Tick: s.Tick, Err: eerr}
			break
		}
		e.setRenewables(res)
	case w.Enabled:
		s.Weather.Apply(s.Sources)
		e.zeroDisabled()
	default:
		e.setRenewables(e.manual.FromControls(
			s.Sources[model.SourceSolar].Control,
			s.Sources[model.SourceWind].Control,
			s.Sources[model.SourceHydro].Control,
		))
	}
	d := s.Sources[model.SourceDiesel]
	if d.On() {
		d.SetAvailable(e.cfg.DieselKW)
	} else {
		d.SetAvailable(0)
	}
	return err
}

func (e *Engine) setRenewables(r estimation.Result) {
	s := e.state
	s.Sources[model.SourceSolar].SetAvailable(r.SolarKW)
	s.Sources[model.SourceWind].SetAvailable(r.WindKW)
	s.Sources[model.SourceHydro].SetAvailable(r.HydroKW)
	e.zeroDisabled()
}

func (e *Engine) zeroDisabled() {
	for _, k := range model.Renewables() {
		if src := e.state.Sources[k]; !src.Enabled {
			src.SetAvailable(0)
		}
	}
}

// publish performs the I/O of a completed tick outside the state lock.
func (e *Engine) publish(ctx context.Context, fx sideEffects) {
	sum := fx.summary
	tick := strconv.FormatUint(sum.Tick, 10)
	if fx.supplyErr != nil {
		estimatorFailure.Inc()
		e.log.Warnf("%v", fx.supplyErr)
		fx.monitor.CaptureException(fx.supplyErr, map[string]string{"component": "engine", "tick": tick})
		if rec, ok := fx.sink.(metrics.SupplyFailureRecorder); ok {
			if err := rec.RecordSupplyFailure(metrics.SupplyFailure{Tick: sum.Tick, Reason: fx.supplyErr.Error(), Time: sum.Time}); err != nil {
				e.log.Errorf("supply failure metrics error: %v", err)
			}
		}
		if fx.bus != nil {
			fx.bus.Publish(events.SupplyFailureEvent{Tick: sum.Tick, Err: fx.supplyErr, Time: sum.Time})
		}
	}
	e.log.Debugw("tick", map[string]any{
		"tick":      sum.Tick,
		"gen_kw":    sum.TotalGenKW,
		"output_kw": sum.TotalOutputKW,
		"supplied":  sum.TotalSuppliedKW,
		"soc":       sum.SoC,
		"import_kw": sum.Grid.ImportKW,
		"export_kw": sum.Grid.ExportKW,
		"shed":      sum.Shedding.Count,
	})
	if err := fx.sink.RecordTick(sum); err != nil {
		e.log.Errorf("tick metrics error: %v", err)
	}
	if err := fx.store.Append(ctx, ticklog.FromSummary(sum)); err != nil {
		e.log.Errorf("tick log append: %v", err)
	}
	if rec, ok := fx.sink.(metrics.AlertRecorder); ok {
		for _, a := range fx.alerts {
			if err := rec.RecordAlert(a); err != nil {
				e.log.Errorf("alert metrics error: %v", err)
				break
			}
		}
	}
	if fx.bus != nil {
		fx.bus.Publish(events.TickEvent{Summary: sum})
		for _, a := range fx.alerts {
			fx.bus.Publish(events.AlertEvent{Alert: a})
		}
	}
}

// Snapshot returns a deep copy of the state taken between ticks.
func (e *Engine) Snapshot() model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.state
	snap := model.Snapshot{
		Tick:            s.Tick,
		Time:            e.now(),
		SpeedMultiplier: s.Speed,
		Sources:         make(map[model.SourceKind]*model.Source, len(s.Sources)),
		Batteries:       s.Fleet.List(),
		Destinations:    append([]model.Destination(nil), s.Destinations...),
		Grid:            s.Grid,
		Totals:          s.Totals.Clone(),
		Weather:         s.Weather.State(),
		Shedding:        model.SummarizeShedding(s.Destinations),
		History:         s.History.Clone(),
		StoredKWh:       s.Fleet.TotalStored(),
		CapacityKWh:     s.Fleet.TotalCapacity(),
		SoC:             s.Fleet.SoC(),
	}
	for k, src := range s.Sources {
		snap.Sources[k] = src.Clone()
	}
	if s.Last != nil {
		last := *s.Last
		snap.Last = &last
	}
	return snap
}

// Update runs fn with exclusive access to the state, serialized with ticks
// and commands. fn must not retain s.
func (e *Engine) Update(fn func(s *State) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.state)
}

// Do is Update for mutations that cannot fail.
func (e *Engine) Do(fn func(s *State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.state)
}

// Close releases the tick log and closes the bus.
func (e *Engine) Close() error {
	e.mu.Lock()
	store, bus := e.store, e.bus
	e.mu.Unlock()
	var errs []error
	if err := store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close tick log: %w", err))
	}
	if bus != nil {
		bus.Close()
	}
	return errors.Join(errs...)
}
