// Package statuspage builds the read-only projection served to the public
// status page: grouped monitors with their current state, uptime and
// history, plus maintenance notices.
package statuspage

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/hamed0406/uptimeengine/internal/config"
	"github.com/hamed0406/uptimeengine/internal/domain"
	"github.com/hamed0406/uptimeengine/internal/maintenance"
)

// UptimeWindow is how far back uptime percentages look.
const UptimeWindow = 90 * 24 * time.Hour

var ErrUnknownMonitor = errors.New("unknown monitor")

// StateReader is satisfied by the status store.
type StateReader interface {
	Load(ctx context.Context, id domain.MonitorID) (domain.MonitorState, error)
}

type Monitor struct {
	ID            domain.MonitorID       `json:"id"`
	Name          string                 `json:"name"`
	Tooltip       string                 `json:"tooltip,omitempty"`
	Link          string                 `json:"link,omitempty"`
	Status        domain.Status          `json:"status"`
	IncidentStart *time.Time             `json:"incidentStart"`
	LastCheckAt   *time.Time             `json:"lastCheckAt"`
	LastReason    string                 `json:"lastReason,omitempty"`
	UptimePercent *float64               `json:"uptimePercent"`
	InMaintenance bool                   `json:"inMaintenance,omitempty"`
	Latency       []domain.LatencySample `json:"latency,omitempty"`
	Incidents     []domain.Incident      `json:"incidents"`
}

type Group struct {
	Name     string    `json:"name"`
	Monitors []Monitor `json:"monitors"`
}

type Window struct {
	Title    string             `json:"title"`
	Body     string             `json:"body,omitempty"`
	Start    time.Time          `json:"start"`
	End      *time.Time         `json:"end,omitempty"`
	Color    string             `json:"color"`
	Monitors []domain.MonitorID `json:"monitors,omitempty"`
}

type Maintenance struct {
	Active   []Window `json:"active"`
	Upcoming []Window `json:"upcoming"`
}

type Page struct {
	Title       string        `json:"title"`
	Links       []config.Link `json:"links"`
	Groups      []Group       `json:"groups"`
	Maintenance Maintenance   `json:"maintenance"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

type Builder struct {
	Page            config.Page
	Monitors        []domain.MonitorSpec
	States          StateReader
	Maintenance     *maintenance.Filter
	// RecentIncidents caps how many incidents each monitor shows.
	RecentIncidents int

	byID map[domain.MonitorID]domain.MonitorSpec
}

func NewBuilder(page config.Page, monitors []domain.MonitorSpec, states StateReader, windows *maintenance.Filter) *Builder {
	byID := make(map[domain.MonitorID]domain.MonitorSpec, len(monitors))
	for _, m := range monitors {
		byID[m.ID] = m
	}
	return &Builder{
		Page:            page,
		Monitors:        monitors,
		States:          states,
		Maintenance:     windows,
		RecentIncidents: 10,
		byID:            byID,
	}
}

// Status builds the whole page. Groups keep their configured order; with
// no groups configured every monitor goes into one unnamed group. Monitors
// not listed in any group are still checked but not shown.
func (b *Builder) Status(ctx context.Context, now time.Time) (Page, error) {
	p := Page{
		Title:       b.Page.Title,
		Links:       b.Page.Links,
		Groups:      []Group{},
		GeneratedAt: now,
		Maintenance: Maintenance{
			Active:   windows(b.Maintenance.Current(now)),
			Upcoming: windows(b.Maintenance.Upcoming(now)),
		},
	}
	if p.Links == nil {
		p.Links = []config.Link{}
	}

	groups := b.Page.Group
	if len(groups) == 0 {
		all := config.Group{}
		for _, m := range b.Monitors {
			all.Monitors = append(all.Monitors, string(m.ID))
		}
		groups = config.Groups{all}
	}
	for _, g := range groups {
		out := Group{Name: g.Name, Monitors: []Monitor{}}
		for _, id := range g.Monitors {
			spec, ok := b.byID[domain.MonitorID(id)]
			if !ok {
				continue
			}
			m, err := b.project(ctx, spec, now)
			if err != nil {
				return Page{}, err
			}
			out.Monitors = append(out.Monitors, m)
		}
		p.Groups = append(p.Groups, out)
	}
	return p, nil
}

// Monitor projects a single monitor.
func (b *Builder) Monitor(ctx context.Context, id domain.MonitorID, now time.Time) (Monitor, error) {
	spec, ok := b.byID[id]
	if !ok {
		return Monitor{}, ErrUnknownMonitor
	}
	return b.project(ctx, spec, now)
}

func (b *Builder) project(ctx context.Context, spec domain.MonitorSpec, now time.Time) (Monitor, error) {
	st, err := b.States.Load(ctx, spec.ID)
	if err != nil {
		return Monitor{}, err
	}
	name := spec.Name
	if name == "" {
		name = string(spec.ID)
	}
	m := Monitor{
		ID:            spec.ID,
		Name:          name,
		Tooltip:       spec.Tooltip,
		Link:          spec.StatusPageLink,
		Status:        st.Status,
		IncidentStart: st.IncidentStart,
		LastReason:    st.LastReason,
		UptimePercent: Uptime(st, now),
		InMaintenance: b.Maintenance.Active(spec.ID, now) != nil,
		Incidents:     recent(st.Incidents, b.RecentIncidents),
	}
	if st.Seen() {
		t := st.LastCheckAt
		m.LastCheckAt = &t
	}
	if !spec.HideLatencyChart {
		m.Latency = st.Latency
	}
	return m, nil
}

// Uptime is the share of the last 90 days (or of the time since the first
// check, if shorter) not covered by an incident. Nil before any check.
func Uptime(st domain.MonitorState, now time.Time) *float64 {
	if st.FirstCheckAt.IsZero() {
		return nil
	}
	from := now.Add(-UptimeWindow)
	if st.FirstCheckAt.After(from) {
		from = st.FirstCheckAt
	}
	total := now.Sub(from)
	pct := 100.0
	if total > 0 {
		var down time.Duration
		for _, inc := range st.Incidents {
			start, end := inc.Start, now
			if inc.End != nil {
				end = *inc.End
			}
			if start.Before(from) {
				start = from
			}
			if end.After(now) {
				end = now
			}
			if end.After(start) {
				down += end.Sub(start)
			}
		}
		pct = 100 * (1 - float64(down)/float64(total))
		pct = math.Round(pct*1000) / 1000
	}
	return &pct
}

// recent returns up to n incidents, newest first.
func recent(incs []domain.Incident, n int) []domain.Incident {
	out := make([]domain.Incident, 0, min(len(incs), max(n, 0)))
	for i := len(incs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, incs[i])
	}
	return out
}

func windows(ws []domain.MaintenanceWindow) []Window {
	out := make([]Window, 0, len(ws))
	for _, w := range ws {
		out = append(out, Window{
			Title:    w.Title,
			Body:     w.Body,
			Start:    w.Start,
			End:      w.End,
			Color:    w.Color,
			Monitors: w.Monitors,
		})
	}
	return out
}
