// Package metrics holds the engine's Prometheus collectors. All methods are
// safe on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hamed0406/uptimeengine/internal/domain"
)

// Outcome labels for store commits and notifications.
const (
	OutcomeCommitted = "committed"
	OutcomeDropped   = "dropped"
	OutcomeFailed    = "failed"
	OutcomeSent      = "sent"
	OutcomeSkipped   = "skipped"
)

type Metrics struct {
	Registry *prometheus.Registry

	checks        *prometheus.CounterVec
	checkLatency  *prometheus.HistogramVec
	transitions   *prometheus.CounterVec
	monitorUp     *prometheus.GaugeVec
	storeCommits  *prometheus.CounterVec
	notifications *prometheus.CounterVec
	tickDuration  prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uptime_checks_total",
			Help: "Checks executed, by monitor and result.",
		}, []string{"monitor", "result"}),
		checkLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "uptime_check_latency_seconds",
			Help:    "Check latency by monitor.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"monitor"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uptime_transitions_total",
			Help: "Debounced status transitions by monitor and new status.",
		}, []string{"monitor", "status"}),
		monitorUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "uptime_monitor_up",
			Help: "1 when the monitor's debounced status is up.",
		}, []string{"monitor"}),
		storeCommits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uptime_store_commits_total",
			Help: "Status store saves by outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uptime_notifications_total",
			Help: "Notification deliveries by outcome.",
		}, []string{"outcome"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "uptime_tick_duration_seconds",
			Help:    "Wall time of one tick.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.Registry.MustRegister(
		m.checks, m.checkLatency, m.transitions, m.monitorUp,
		m.storeCommits, m.notifications, m.tickDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveCheck(res domain.CheckResult) {
	if m == nil {
		return
	}
	result := "up"
	if !res.Up {
		result = string(res.Kind)
		if result == "" {
			result = "down"
		}
	}
	id := string(res.MonitorID)
	m.checks.WithLabelValues(id, result).Inc()
	m.checkLatency.WithLabelValues(id).Observe(res.Latency.Seconds())
}

func (m *Metrics) ObserveTransition(ev domain.TransitionEvent) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(ev.MonitorID), string(ev.Status)).Inc()
}

func (m *Metrics) SetStatus(id domain.MonitorID, status domain.Status) {
	if m == nil {
		return
	}
	v := 0.0
	if status != domain.StatusDown {
		v = 1
	}
	m.monitorUp.WithLabelValues(string(id)).Set(v)
}

func (m *Metrics) StoreCommit(outcome string) {
	if m == nil {
		return
	}
	m.storeCommits.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Notification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
