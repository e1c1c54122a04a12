package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeengine/internal/domain"
	"github.com/hamed0406/uptimeengine/internal/maintenance"
	"github.com/hamed0406/uptimeengine/internal/metrics"
	"github.com/hamed0406/uptimeengine/internal/notify"
	"github.com/hamed0406/uptimeengine/internal/repo"
)

type AlerterConfig struct {
	Location *time.Location
	// RepeatInterval spaces "still down" notices. Zero sends one every tick.
	RepeatInterval time.Duration
}

// Alerter decides which transitions and still-down notices reach the
// notification sinks. Opted-out monitors and monitors under maintenance
// are silenced; their state is still recorded elsewhere.
type Alerter struct {
	dispatcher  *notify.Dispatcher
	maintenance *maintenance.Filter
	alertDB     repo.AlertStore
	log         *zap.Logger
	metrics     *metrics.Metrics
	cfg         AlerterConfig
}

func NewAlerter(
	dispatcher *notify.Dispatcher,
	windows *maintenance.Filter,
	alertDB repo.AlertStore,
	log *zap.Logger,
	m *metrics.Metrics,
	cfg AlerterConfig,
) *Alerter {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Alerter{
		dispatcher:  dispatcher,
		maintenance: windows,
		alertDB:     alertDB,
		log:         log,
		metrics:     m,
		cfg:         cfg,
	}
}

// suppressed reports why a monitor's notifications are silenced at now.
func (a *Alerter) suppressed(spec domain.MonitorSpec, now time.Time) (string, bool) {
	if spec.SkipNotification {
		return "skip_list", true
	}
	if w := a.maintenance.Active(spec.ID, now); w != nil {
		return "maintenance:" + w.Title, true
	}
	return "", false
}

// Transition notifies about a debounced status change. It reports whether
// a message was dispatched.
func (a *Alerter) Transition(ctx context.Context, spec domain.MonitorSpec, ev domain.TransitionEvent) bool {
	if a == nil {
		return false
	}
	if why, ok := a.suppressed(spec, ev.At); ok {
		a.skip(ctx, spec, ev.Status, "transition", why)
		return false
	}
	a.dispatcher.Dispatch(ctx, notify.Transition(spec, ev, a.cfg.Location))
	a.record(ctx, spec.ID, ev.Status, ev.At)
	return true
}

// StillDown sends the repeating notice for a monitor that is down.
func (a *Alerter) StillDown(ctx context.Context, spec domain.MonitorSpec, st domain.MonitorState, now time.Time) bool {
	if a == nil || st.IncidentStart == nil {
		return false
	}
	if why, ok := a.suppressed(spec, now); ok {
		a.skip(ctx, spec, st.Status, "still_down", why)
		return false
	}
	if a.cfg.RepeatInterval > 0 && a.alertDB != nil {
		rec, err := a.alertDB.GetAlert(ctx, spec.ID)
		if err != nil {
			a.log.Warn("alert_record_read_failed", zap.String("monitor", string(spec.ID)), zap.Error(err))
		} else if rec != nil && rec.LastSentAt != nil && now.Sub(*rec.LastSentAt) < a.cfg.RepeatInterval {
			return false
		}
	}
	a.dispatcher.Dispatch(ctx, notify.StillDown(spec, *st.IncidentStart, now, st.LastReason, a.cfg.Location))
	a.record(ctx, spec.ID, st.Status, now)
	return true
}

func (a *Alerter) skip(ctx context.Context, spec domain.MonitorSpec, status domain.Status, kind, why string) {
	a.metrics.Notification(metrics.OutcomeSkipped)
	a.log.Debug("notify_suppressed",
		zap.String("monitor", string(spec.ID)),
		zap.String("kind", kind),
		zap.String("why", why))
	// remember the state without a send time
	if kind == "transition" && a.alertDB != nil {
		if err := a.alertDB.SetAlert(ctx, spec.ID, status, time.Time{}); err != nil {
			a.log.Warn("alert_record_write_failed", zap.String("monitor", string(spec.ID)), zap.Error(err))
		}
	}
}

func (a *Alerter) record(ctx context.Context, id domain.MonitorID, status domain.Status, sentAt time.Time) {
	if a.alertDB == nil {
		return
	}
	if err := a.alertDB.SetAlert(ctx, id, status, sentAt); err != nil {
		a.log.Warn("alert_record_write_failed", zap.String("monitor", string(id)), zap.Error(err))
	}
}
