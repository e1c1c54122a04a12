package domain

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

type LatencySample struct {
	At        time.Time `json:"at"`
	LatencyMS float64   `json:"latency_ms"`
	Up        bool      `json:"up"`
	Path      CheckPath `json:"path,omitempty"`
}

type Incident struct {
	ID         string     `json:"id"`
	Start      time.Time  `json:"start"`
	End        *time.Time `json:"end,omitempty"` // nil while ongoing
	Reason     string     `json:"reason"`
	LastReason string     `json:"last_reason,omitempty"`
}

func (i Incident) Ongoing() bool { return i.End == nil }

// MonitorState is the durable per-monitor record owned by the evaluator.
type MonitorState struct {
	MonitorID           MonitorID       `json:"monitor_id"`
	Status              Status          `json:"status"`
	IncidentStart       *time.Time      `json:"incident_start,omitempty"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
	FirstCheckAt        time.Time       `json:"first_check_at"`
	LastCheckAt         time.Time       `json:"last_check_at"`
	LastReason          string          `json:"last_reason,omitempty"`
	LastPersistedAt     time.Time       `json:"last_persisted_at"`
	Latency             []LatencySample `json:"latency,omitempty"`
	Incidents           []Incident      `json:"incidents,omitempty"`
}

// NewMonitorState is the state of a monitor that has never been checked.
func NewMonitorState(id MonitorID) MonitorState {
	return MonitorState{MonitorID: id, Status: StatusUp}
}

func (s MonitorState) IsDown() bool { return s.Status == StatusDown }

// Seen reports whether the state has recorded at least one check.
func (s MonitorState) Seen() bool { return !s.LastCheckAt.IsZero() }

// OpenIncident returns the ongoing incident, if any.
func (s *MonitorState) OpenIncident() *Incident {
	for i := len(s.Incidents) - 1; i >= 0; i-- {
		if s.Incidents[i].Ongoing() {
			return &s.Incidents[i]
		}
	}
	return nil
}

// Validate checks the incident-start invariant.
func (s MonitorState) Validate() error {
	switch s.Status {
	case StatusUp:
		if s.IncidentStart != nil {
			return fmt.Errorf("monitor %s: up with incident start %s", s.MonitorID, s.IncidentStart.Format(time.RFC3339))
		}
	case StatusDown:
		if s.IncidentStart == nil {
			return fmt.Errorf("monitor %s: down without incident start", s.MonitorID)
		}
	default:
		return fmt.Errorf("monitor %s: unknown status %q", s.MonitorID, s.Status)
	}
	return nil
}

// Clone returns a deep copy so callers can mutate it without aliasing slices.
func (s MonitorState) Clone() MonitorState {
	out := s
	if s.IncidentStart != nil {
		t := *s.IncidentStart
		out.IncidentStart = &t
	}
	out.Latency = append([]LatencySample(nil), s.Latency...)
	out.Incidents = make([]Incident, len(s.Incidents))
	for i, inc := range s.Incidents {
		if inc.End != nil {
			e := *inc.End
			inc.End = &e
		}
		out.Incidents[i] = inc
	}
	if len(out.Incidents) == 0 {
		out.Incidents = nil
	}
	return out
}
