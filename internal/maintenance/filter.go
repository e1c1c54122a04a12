// Package maintenance decides which monitors are inside a maintenance window.
package maintenance

import (
	"sort"
	"time"

	"github.com/hamed0406/uptimeengine/internal/domain"
)

// Filter answers maintenance questions over a static list of windows.
type Filter struct {
	windows []domain.MaintenanceWindow
}

func NewFilter(windows []domain.MaintenanceWindow) *Filter {
	return &Filter{windows: append([]domain.MaintenanceWindow(nil), windows...)}
}

// Active returns the first window covering id at now, or nil.
func (f *Filter) Active(id domain.MonitorID, now time.Time) *domain.MaintenanceWindow {
	if f == nil {
		return nil
	}
	for i := range f.windows {
		w := f.windows[i]
		if w.Covers(id) && w.ActiveAt(now) {
			return &w
		}
	}
	return nil
}

// Current lists every window active at now, in configured order.
func (f *Filter) Current(now time.Time) []domain.MaintenanceWindow {
	if f == nil {
		return nil
	}
	var out []domain.MaintenanceWindow
	for _, w := range f.windows {
		if w.ActiveAt(now) {
			out = append(out, w)
		}
	}
	return out
}

// Upcoming lists windows that start after now, soonest first.
func (f *Filter) Upcoming(now time.Time) []domain.MaintenanceWindow {
	if f == nil {
		return nil
	}
	var out []domain.MaintenanceWindow
	for _, w := range f.windows {
		if w.Start.After(now) {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
