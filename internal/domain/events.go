package domain

import "time"

// TransitionEvent is emitted when the debounced status of a monitor changes.
type TransitionEvent struct {
	MonitorID     MonitorID
	Status        Status
	IncidentStart time.Time // start of the incident being opened or closed
	At            time.Time
	Reason        string
}

type MaintenanceWindow struct {
	Monitors []MonitorID `json:"monitors,omitempty"`
	Title    string      `json:"title"`
	Body     string      `json:"body"`
	Start    time.Time   `json:"start"`
	End      *time.Time  `json:"end,omitempty"`
	Color    string      `json:"color"`
}

// Covers reports whether the window's monitor filter includes id.
func (w MaintenanceWindow) Covers(id MonitorID) bool {
	if len(w.Monitors) == 0 {
		return true
	}
	for _, m := range w.Monitors {
		if m == id {
			return true
		}
	}
	return false
}

// ActiveAt reports whether now falls in [Start, End).
func (w MaintenanceWindow) ActiveAt(now time.Time) bool {
	if now.Before(w.Start) {
		return false
	}
	return w.End == nil || now.Before(*w.End)
}
