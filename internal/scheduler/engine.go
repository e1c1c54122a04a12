// Package scheduler runs the tick pipeline: check every monitor, fold the
// results into state, then fire hooks and notifications.
package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/uptimeengine/internal/domain"
	"github.com/hamed0406/uptimeengine/internal/evaluator"
	"github.com/hamed0406/uptimeengine/internal/metrics"
	"github.com/hamed0406/uptimeengine/internal/notify"
	"github.com/hamed0406/uptimeengine/internal/probe"
	"github.com/hamed0406/uptimeengine/internal/store"
)

const defaultConcurrency = 64

// Outcome is what one tick did for one monitor.
type Outcome struct {
	Result  domain.CheckResult      `json:"result"`
	State   domain.MonitorState     `json:"state"`
	Event   *domain.TransitionEvent `json:"event,omitempty"`
	Save    string                  `json:"save"`
	Skipped bool                    `json:"skipped,omitempty"` // state could not be loaded
}

type TickReport struct {
	At       time.Time     `json:"at"`
	Duration time.Duration `json:"duration"`
	Outcomes []Outcome     `json:"outcomes"`
}

type Engine struct {
	Logger      *zap.Logger
	Monitors    []domain.MonitorSpec
	Checker     probe.Checker
	Store       *store.Store
	Evaluator   *evaluator.Evaluator
	Alerter     *Alerter
	Hooks       *notify.Hooks
	HookEnv     notify.HookEnv
	Metrics     *metrics.Metrics
	Concurrency int

	now func() time.Time
}

func NewEngine(
	logger *zap.Logger,
	monitors []domain.MonitorSpec,
	checker probe.Checker,
	st *store.Store,
	ev *evaluator.Evaluator,
	alerter *Alerter,
	hooks *notify.Hooks,
	env notify.HookEnv,
	m *metrics.Metrics,
	concurrency int,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = min(max(len(monitors), 1), defaultConcurrency)
	}
	return &Engine{
		Logger:      logger,
		Monitors:    monitors,
		Checker:     checker,
		Store:       st,
		Evaluator:   ev,
		Alerter:     alerter,
		Hooks:       hooks,
		HookEnv:     env,
		Metrics:     m,
		Concurrency: concurrency,
		now:         time.Now,
	}
}

// Tick runs one full pass. Checks run concurrently; hooks and notifications
// run afterwards in monitor order. Nothing a single monitor does can abort
// the pass for the others.
func (e *Engine) Tick(ctx context.Context) TickReport {
	started := time.Now()
	now := e.now()
	outcomes := make([]Outcome, len(e.Monitors))

	var g errgroup.Group
	g.SetLimit(e.Concurrency)
	for i, spec := range e.Monitors {
		g.Go(func() error {
			outcomes[i] = e.checkOne(ctx, spec, now)
			return nil
		})
	}
	_ = g.Wait()

	var up, down, transitions int
	for i, spec := range e.Monitors {
		out := outcomes[i]
		if out.Skipped {
			continue
		}
		if out.State.IsDown() {
			down++
		} else {
			up++
		}
		if out.Event != nil {
			transitions++
		}
		e.afterCheck(ctx, spec, out, now)
	}

	d := time.Since(started)
	e.Metrics.ObserveTick(d)
	e.Logger.Info("tick_done",
		zap.Int("monitors", len(e.Monitors)),
		zap.Int("up", up),
		zap.Int("down", down),
		zap.Int("transitions", transitions),
		zap.Duration("took", d))
	return TickReport{At: now, Duration: d, Outcomes: outcomes}
}

func (e *Engine) checkOne(ctx context.Context, spec domain.MonitorSpec, now time.Time) Outcome {
	res := e.Checker.Check(ctx, spec)
	res.MonitorID = spec.ID
	if ctx.Err() != nil {
		// shutting down: a cancelled check says nothing about the target
		return Outcome{Result: res, Skipped: true}
	}
	e.Metrics.ObserveCheck(res)

	var ev *domain.TransitionEvent
	st, saved, err := e.Store.Update(ctx, spec.ID, now, func(prev domain.MonitorState) domain.MonitorState {
		next, event := e.Evaluator.Evaluate(prev, res, now)
		ev = event
		return next
	})
	if err != nil && !errors.Is(err, domain.ErrStoreWrite) {
		e.Logger.Warn("state_load_failed", zap.String("monitor", string(spec.ID)), zap.Error(err))
		return Outcome{Result: res, Save: saved.String(), Skipped: true}
	}

	e.Logger.Debug("monitor_checked",
		zap.String("monitor", string(spec.ID)),
		zap.Bool("up", res.Up),
		zap.String("path", string(res.Path)),
		zap.Float64("latency_ms", res.LatencyMS()),
		zap.Int("status_code", res.StatusCode),
		zap.String("reason", res.Reason),
		zap.String("status", string(st.Status)),
		zap.Int("consecutive_failures", st.ConsecutiveFailures),
		zap.String("save", saved.String()))
	return Outcome{Result: res, State: st, Event: ev, Save: saved.String()}
}

func (e *Engine) afterCheck(ctx context.Context, spec domain.MonitorSpec, out Outcome, now time.Time) {
	e.Metrics.SetStatus(spec.ID, out.State.Status)

	if ev := out.Event; ev != nil {
		e.Metrics.ObserveTransition(*ev)
		e.Logger.Info("status_changed",
			zap.String("monitor", string(spec.ID)),
			zap.String("status", string(ev.Status)),
			zap.Time("incident_start", ev.IncidentStart),
			zap.String("reason", ev.Reason))
		e.Hooks.FireStatusChange(ctx, e.HookEnv, spec, *ev)
		e.Alerter.Transition(ctx, spec, *ev)
	}

	if !out.State.IsDown() || out.State.IncidentStart == nil {
		return
	}
	e.Hooks.FireIncident(ctx, e.HookEnv, spec, *out.State.IncidentStart, now, out.State.LastReason)
	if out.Event != nil && out.Event.Status == domain.StatusDown {
		return
	}
	e.Alerter.StillDown(ctx, spec, out.State, now)
}
