package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Runner struct {
	Logger   *zap.Logger
	Engine   *Engine
	Interval time.Duration
}

func NewRunner(logger *zap.Logger, engine *Engine, interval time.Duration) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval < 0 {
		interval = 0
	}
	return &Runner{Logger: logger, Engine: engine, Interval: interval}
}

// Run does an immediate pass, then one per tick until ctx is cancelled.
// A tick that overruns the interval delays the next one; ticks never overlap.
func (r *Runner) Run(ctx context.Context) {
	if r.Interval == 0 {
		// disabled
		r.Logger.Info("runner_disabled")
		return
	}
	t := time.NewTicker(r.Interval)
	defer t.Stop()

	r.Engine.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("runner_stopped")
			return
		case <-t.C:
			r.Engine.Tick(ctx)
		}
	}
}
