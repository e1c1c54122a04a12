package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestMonitorSpec_ExpectsCode(t *testing.T) {
	def := MonitorSpec{}
	for _, c := range []int{200, 204, 299} {
		if !def.ExpectsCode(c) {
			t.Fatalf("default should accept %d", c)
		}
	}
	for _, c := range []int{199, 301, 503} {
		if def.ExpectsCode(c) {
			t.Fatalf("default should reject %d", c)
		}
	}

	explicit := MonitorSpec{ExpectedCodes: []int{200, 301}}
	if !explicit.ExpectsCode(301) || explicit.ExpectsCode(204) {
		t.Fatalf("explicit codes not honoured")
	}
}

func TestMonitorState_Validate(t *testing.T) {
	now := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)

	up := NewMonitorState("a")
	if err := up.Validate(); err != nil {
		t.Fatalf("fresh state invalid: %v", err)
	}
	up.IncidentStart = &now
	if err := up.Validate(); err == nil {
		t.Fatalf("up with incident start should be invalid")
	}

	down := MonitorState{MonitorID: "a", Status: StatusDown}
	if err := down.Validate(); err == nil {
		t.Fatalf("down without incident start should be invalid")
	}
	down.IncidentStart = &now
	if err := down.Validate(); err != nil {
		t.Fatalf("down with incident start should be valid: %v", err)
	}
}

func TestMonitorState_CloneDoesNotAlias(t *testing.T) {
	now := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	end := now.Add(time.Minute)
	s := MonitorState{
		MonitorID:     "a",
		Status:        StatusDown,
		IncidentStart: &now,
		Latency:       []LatencySample{{At: now, LatencyMS: 10}},
		Incidents:     []Incident{{ID: "1", Start: now, End: &end}},
	}
	c := s.Clone()
	c.Latency[0].LatencyMS = 99
	*c.IncidentStart = now.Add(time.Hour)
	*c.Incidents[0].End = now.Add(time.Hour)

	if s.Latency[0].LatencyMS != 10 || !s.IncidentStart.Equal(now) || !s.Incidents[0].End.Equal(end) {
		t.Fatalf("clone aliased original: %+v", s)
	}
}

func TestMaintenanceWindow_ActiveAndCovers(t *testing.T) {
	start := time.Date(2025, 4, 27, 0, 0, 0, 0, time.UTC)
	end := start.Add(72 * time.Hour)
	w := MaintenanceWindow{Monitors: []MonitorID{"foo"}, Start: start, End: &end}

	if w.ActiveAt(start.Add(-time.Second)) || !w.ActiveAt(start) || w.ActiveAt(end) {
		t.Fatalf("window bounds wrong")
	}
	if !w.Covers("foo") || w.Covers("bar") {
		t.Fatalf("monitor filter wrong")
	}

	open := MaintenanceWindow{Start: start}
	if !open.ActiveAt(start.Add(1000*time.Hour)) || !open.Covers("anything") {
		t.Fatalf("open-ended all-monitor window should apply")
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want FailureKind
	}{
		{nil, KindNone},
		{fmt.Errorf("x: %w", ErrCheckTimeout), KindTimeout},
		{fmt.Errorf("x: %w", ErrProxyUnavailable), KindProxy},
		{fmt.Errorf("x: %w", ErrPredicateFailure), KindPredicate},
		{errors.New("dial tcp: refused"), KindConnection},
	}
	for _, c := range cases {
		if got := KindOf(c.err); got != c.want {
			t.Fatalf("KindOf(%v)=%q want %q", c.err, got, c.want)
		}
	}
}
