package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/uptimeengine/internal/domain"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.ObserveCheck(domain.CheckResult{MonitorID: "a", Up: true, Latency: 30 * time.Millisecond})
	m.ObserveCheck(domain.CheckResult{MonitorID: "a", Up: false, Kind: domain.KindTimeout})
	m.ObserveCheck(domain.CheckResult{MonitorID: "a", Up: false, Kind: domain.KindTimeout})
	m.ObserveTransition(domain.TransitionEvent{MonitorID: "a", Status: domain.StatusDown})
	m.SetStatus("a", domain.StatusDown)
	m.StoreCommit(OutcomeDropped)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.checks.WithLabelValues("a", "up")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.checks.WithLabelValues("a", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("a", "down")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.monitorUp.WithLabelValues("a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeCommits.WithLabelValues(OutcomeDropped)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveCheck(domain.CheckResult{})
	m.ObserveTick(time.Second)
	m.Notification(OutcomeSent)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rr.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveTick(150 * time.Millisecond)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	assert.True(t, strings.Contains(string(body), "uptime_tick_duration_seconds_count 1"))
}
