package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/hamed0406/uptimeengine/internal/domain"
)

// Message is one formatted notification.
type Message struct {
	MonitorID domain.MonitorID
	Title     string
	Body      string
}

const timeLayout = "2006-01-02 15:04:05 MST"

// Transition formats a debounced status change.
func Transition(spec domain.MonitorSpec, ev domain.TransitionEvent, loc *time.Location) Message {
	if loc == nil {
		loc = time.UTC
	}
	name := displayName(spec)
	if ev.Status == domain.StatusUp {
		return Message{
			MonitorID: spec.ID,
			Title:     fmt.Sprintf("🟢 %s is up", name),
			Body: fmt.Sprintf("%s is back up after %s of downtime.\nRecovered: %s\nDown since: %s",
				name,
				Duration(ev.At.Sub(ev.IncidentStart)),
				ev.At.In(loc).Format(timeLayout),
				ev.IncidentStart.In(loc).Format(timeLayout)),
		}
	}
	return Message{
		MonitorID: spec.ID,
		Title:     fmt.Sprintf("🔴 %s is down", name),
		Body: fmt.Sprintf("%s is not responding.\nReason: %s\nDown since: %s",
			name,
			reasonOrUnknown(ev.Reason),
			ev.IncidentStart.In(loc).Format(timeLayout)),
	}
}

// StillDown formats the repeating notice for a monitor that stays down.
func StillDown(spec domain.MonitorSpec, incidentStart, now time.Time, reason string, loc *time.Location) Message {
	if loc == nil {
		loc = time.UTC
	}
	name := displayName(spec)
	return Message{
		MonitorID: spec.ID,
		Title:     fmt.Sprintf("🔴 %s is still down", name),
		Body: fmt.Sprintf("%s has been down for %s.\nReason: %s\nDown since: %s\nChecked: %s",
			name,
			Duration(now.Sub(incidentStart)),
			reasonOrUnknown(reason),
			incidentStart.In(loc).Format(timeLayout),
			now.In(loc).Format(timeLayout)),
	}
}

// Duration renders d as "2d 3h 4m", rounding down to minutes. Anything
// under a minute is "less than a minute".
func Duration(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	d = d.Truncate(time.Minute)
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	mins := int(d / time.Minute)

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	return strings.Join(parts, " ")
}

func displayName(spec domain.MonitorSpec) string {
	if spec.Name != "" {
		return spec.Name
	}
	return string(spec.ID)
}

func reasonOrUnknown(r string) string {
	if r == "" {
		return "unknown"
	}
	return r
}
