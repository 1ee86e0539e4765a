package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kilianp07/microgrid/core/logger"
)

// Runner triggers Engine.Tick on a fixed wall-clock period. Triggers that
// find a tick still running are dropped by the engine.
type Runner struct {
	engine *Engine
	period time.Duration
	log    logger.Logger
	wg     sync.WaitGroup
}

// NewRunner returns a Runner ticking e every period. A non-positive period
// selects the engine base tick.
func NewRunner(e *Engine, period time.Duration, log logger.Logger) *Runner {
	if period <= 0 {
		period = e.cfg.BaseTick
	}
	return &Runner{engine: e, period: period, log: logger.OrNop(log)}
}

// Run blocks until ctx is done. In-flight ticks are allowed to complete
// before Run returns.
func (r *Runner) Run(ctx context.Context) {
	t := time.NewTicker(r.period)
	defer t.Stop()
	r.log.Infof("tick runner started, period %s", r.period)
	for {
		select {
		case <-ctx.Done():
			r.wg.Wait()
			r.log.Infof("tick runner stopped")
			return
		case <-t.C:
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				r.fire(context.WithoutCancel(ctx))
			}()
		}
	}
}

func (r *Runner) fire(ctx context.Context) {
	_, err := r.engine.Tick(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrTickInProgress):
		r.log.Debugf("tick skipped: previous tick still running")
	default:
		r.log.Errorf("tick failed: %v", err)
	}
}
