// Package evaluator is the per-monitor up/down state machine. It is pure:
// given the prior state and one check result it returns the next state and
// at most one transition event.
package evaluator

import (
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/uptimeengine/internal/domain"
)

// History bounds for the state kept per monitor.
type History struct {
	LatencyWindow     time.Duration
	LatencyMax        int
	IncidentRetention time.Duration
	IncidentMax       int
}

var DefaultHistory = History{
	LatencyWindow:     12 * time.Hour,
	LatencyMax:        720,
	IncidentRetention: 90 * 24 * time.Hour,
	IncidentMax:       100,
}

type Evaluator struct {
	// Threshold is the number of consecutive failures that takes an up
	// monitor down. Values below 1 are treated as 1.
	Threshold int
	History   History
	NewID     func() string
}

func New(threshold int) *Evaluator {
	return &Evaluator{Threshold: threshold, History: DefaultHistory, NewID: uuid.NewString}
}

// Threshold derives the failure threshold from the grace period and the
// tick interval: ceil(grace/tick), at least 1.
func Threshold(grace, tick time.Duration) int {
	if grace <= 0 {
		return 1
	}
	if tick <= 0 {
		tick = time.Minute
	}
	n := int((grace + tick - 1) / tick)
	if n < 1 {
		return 1
	}
	return n
}

func (e *Evaluator) threshold() int {
	if e.Threshold < 1 {
		return 1
	}
	return e.Threshold
}

// Evaluate applies one check result. prev is not modified.
func (e *Evaluator) Evaluate(prev domain.MonitorState, res domain.CheckResult, now time.Time) (domain.MonitorState, *domain.TransitionEvent) {
	next := prev.Clone()
	if next.Status == "" {
		next.Status = domain.StatusUp
	}
	if !next.Seen() {
		next.FirstCheckAt = now
	}
	next.LastCheckAt = now

	at := res.At
	if at.IsZero() {
		at = now
	}
	next.Latency = append(next.Latency, domain.LatencySample{
		At:        at,
		LatencyMS: res.LatencyMS(),
		Up:        res.Up,
		Path:      res.Path,
	})

	var ev *domain.TransitionEvent
	if res.Up {
		ev = e.recover(&next, now)
	} else {
		ev = e.fail(&next, res.Reason, now)
	}
	e.trim(&next, now)
	return next, ev
}

func (e *Evaluator) recover(s *domain.MonitorState, now time.Time) *domain.TransitionEvent {
	s.ConsecutiveFailures = 0
	s.LastReason = ""
	if s.Status != domain.StatusDown {
		return nil
	}

	start := now
	if s.IncidentStart != nil {
		start = *s.IncidentStart
	}
	if inc := s.OpenIncident(); inc != nil {
		end := now
		inc.End = &end
	}
	s.Status = domain.StatusUp
	s.IncidentStart = nil
	return &domain.TransitionEvent{
		MonitorID:     s.MonitorID,
		Status:        domain.StatusUp,
		IncidentStart: start,
		At:            now,
	}
}

func (e *Evaluator) fail(s *domain.MonitorState, reason string, now time.Time) *domain.TransitionEvent {
	s.LastReason = reason
	if s.ConsecutiveFailures < e.threshold() {
		s.ConsecutiveFailures++
	}

	if s.Status == domain.StatusDown {
		inc := s.OpenIncident()
		if inc == nil {
			start := now
			if s.IncidentStart != nil {
				start = *s.IncidentStart
			}
			s.Incidents = append(s.Incidents, domain.Incident{ID: e.newID(), Start: start, Reason: reason})
			inc = &s.Incidents[len(s.Incidents)-1]
		}
		if s.IncidentStart == nil {
			start := inc.Start
			s.IncidentStart = &start
		}
		inc.LastReason = reason
		return nil
	}

	if s.ConsecutiveFailures < e.threshold() {
		return nil
	}

	start := now
	s.Status = domain.StatusDown
	s.IncidentStart = &start
	s.Incidents = append(s.Incidents, domain.Incident{
		ID:         e.newID(),
		Start:      start,
		Reason:     reason,
		LastReason: reason,
	})
	return &domain.TransitionEvent{
		MonitorID:     s.MonitorID,
		Status:        domain.StatusDown,
		IncidentStart: start,
		At:            now,
		Reason:        reason,
	}
}

func (e *Evaluator) newID() string {
	if e.NewID == nil {
		return uuid.NewString()
	}
	return e.NewID()
}
