package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeengine/internal/domain"
)

// HookEnv is what user hooks may touch: a logger, the configured time zone
// and a way to send a message through the configured sinks.
type HookEnv struct {
	Logger   *zap.Logger
	Location *time.Location
	Notify   func(ctx context.Context, title, body string)
}

// StatusChangeHook runs on every debounced transition, whether or not a
// notification goes out.
type StatusChangeHook interface {
	OnStatusChange(ctx context.Context, env HookEnv, monitor domain.MonitorSpec, up bool, incidentStart, now time.Time, reason string) error
}

// IncidentHook runs once per tick for every monitor that is down.
type IncidentHook interface {
	OnIncident(ctx context.Context, env HookEnv, monitor domain.MonitorSpec, incidentStart, now time.Time, reason string) error
}

type StatusChangeFunc func(ctx context.Context, env HookEnv, monitor domain.MonitorSpec, up bool, incidentStart, now time.Time, reason string) error

func (f StatusChangeFunc) OnStatusChange(ctx context.Context, env HookEnv, monitor domain.MonitorSpec, up bool, incidentStart, now time.Time, reason string) error {
	return f(ctx, env, monitor, up, incidentStart, now, reason)
}

type IncidentFunc func(ctx context.Context, env HookEnv, monitor domain.MonitorSpec, incidentStart, now time.Time, reason string) error

func (f IncidentFunc) OnIncident(ctx context.Context, env HookEnv, monitor domain.MonitorSpec, incidentStart, now time.Time, reason string) error {
	return f(ctx, env, monitor, incidentStart, now, reason)
}

// Hooks runs registered hooks in order. A failing or panicking hook is
// logged and does not stop the others.
type Hooks struct {
	StatusChange []StatusChangeHook
	Incident     []IncidentHook
	Logger       *zap.Logger
}

func (h *Hooks) FireStatusChange(ctx context.Context, env HookEnv, spec domain.MonitorSpec, ev domain.TransitionEvent) int {
	if h == nil {
		return 0
	}
	failed := 0
	for i, hook := range h.StatusChange {
		err := h.guard(func() error {
			return hook.OnStatusChange(ctx, env, spec, ev.Status == domain.StatusUp, ev.IncidentStart, ev.At, ev.Reason)
		})
		if err != nil {
			failed++
			h.logFailure("on_status_change", i, spec.ID, err)
		}
	}
	return failed
}

func (h *Hooks) FireIncident(ctx context.Context, env HookEnv, spec domain.MonitorSpec, incidentStart, now time.Time, reason string) int {
	if h == nil {
		return 0
	}
	failed := 0
	for i, hook := range h.Incident {
		err := h.guard(func() error {
			return hook.OnIncident(ctx, env, spec, incidentStart, now, reason)
		})
		if err != nil {
			failed++
			h.logFailure("on_incident", i, spec.ID, err)
		}
	}
	return failed
}

func (h *Hooks) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", domain.ErrHookExecution, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHookExecution, err)
	}
	return nil
}

func (h *Hooks) logFailure(kind string, idx int, id domain.MonitorID, err error) {
	log := h.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Warn("hook_failed",
		zap.String("hook", kind),
		zap.Int("index", idx),
		zap.String("monitor", string(id)),
		zap.Error(err))
}
