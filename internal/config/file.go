package config

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/goccy/go-yaml"
	"go.uber.org/multierr"

	"github.com/hamed0406/uptimeengine/internal/domain"
	"github.com/hamed0406/uptimeengine/internal/proxy"
)

const (
	defaultTimeoutMS        = 10000
	defaultMaintenanceTitle = "Scheduled Maintenance"
	defaultMaintenanceColor = "yellow"
	defaultTimeZone         = "Etc/GMT"
)

// File is the monitor configuration document (uptime.yaml).
type File struct {
	Page         Page          `yaml:"page"`
	Worker       Worker        `yaml:"worker"`
	Notification Notification  `yaml:"notification"`
	Callbacks    Callbacks     `yaml:"callbacks"`
	Maintenances []Maintenance `yaml:"maintenances"`
}

type Page struct {
	Title string `yaml:"title"`
	Links []Link `yaml:"links"`
	Group Groups `yaml:"group"`
}

type Link struct {
	Link      string `yaml:"link" json:"link"`
	Label     string `yaml:"label" json:"label"`
	Highlight bool   `yaml:"highlight" json:"highlight,omitempty"`
}

type Group struct {
	Name     string
	Monitors []string
}

// Groups keeps page groups in the order they appear in the file.
type Groups []Group

func (g *Groups) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var ms yaml.MapSlice
	if err := unmarshal(&ms); err != nil {
		return err
	}
	out := make(Groups, 0, len(ms))
	for _, item := range ms {
		name := fmt.Sprint(item.Key)
		raw, ok := item.Value.([]interface{})
		if !ok && item.Value != nil {
			return fmt.Errorf("group %q: expected a list of monitor ids", name)
		}
		ids := make([]string, 0, len(raw))
		for _, v := range raw {
			ids = append(ids, fmt.Sprint(v))
		}
		out = append(out, Group{Name: name, Monitors: ids})
	}
	*g = out
	return nil
}

type Worker struct {
	KVWriteCooldownMinutes int       `yaml:"kvWriteCooldownMinutes"`
	PasswordProtection     string    `yaml:"passwordProtection"`
	CheckProxy             ProxyConf `yaml:"checkProxy"`
	Relay                  RelayConf `yaml:"relay"`
	Monitors               []Monitor `yaml:"monitors"`
}

// RelayConf controls POST /api/check, which lets other instances run checks
// from here. It is served only when enabled or when passwordProtection is set.
type RelayConf struct {
	Enabled           bool `yaml:"enabled"`
	MaxTimeoutSeconds int  `yaml:"maxTimeoutSeconds"`
}

// MaxTimeout caps the timeout a relay caller may ask for. Defaults to 30s.
func (r RelayConf) MaxTimeout() time.Duration {
	if r.MaxTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.MaxTimeoutSeconds) * time.Second
}

type ProxyConf struct {
	// Channels maps worker://<name> proxy channels to relay base URLs.
	Channels map[string]string `yaml:"channels"`
}

type Monitor struct {
	ID                       string            `yaml:"id"`
	Name                     string            `yaml:"name"`
	Method                   string            `yaml:"method"`
	Target                   string            `yaml:"target"`
	Tooltip                  string            `yaml:"tooltip"`
	StatusPageLink           string            `yaml:"statusPageLink"`
	HideLatencyChart         bool              `yaml:"hideLatencyChart"`
	ExpectedCodes            []int             `yaml:"expectedCodes"`
	Timeout                  int               `yaml:"timeout"` // milliseconds
	Headers                  map[string]string `yaml:"headers"`
	Body                     string            `yaml:"body"`
	ResponseKeyword          string            `yaml:"responseKeyword"`
	ResponseForbiddenKeyword string            `yaml:"responseForbiddenKeyword"`
	CheckProxy               string            `yaml:"checkProxy"`
	CheckProxyFallback       bool              `yaml:"checkProxyFallback"`
}

type Notification struct {
	AppriseAPIServer      string   `yaml:"appriseApiServer"`
	RecipientURL          string   `yaml:"recipientUrl"`
	SlackWebhook          string   `yaml:"slackWebhook"`
	TimeZone              string   `yaml:"timeZone"`
	GracePeriod           int      `yaml:"gracePeriod"` // minutes
	SkipNotificationIDs   []string `yaml:"skipNotificationIds"`
	RepeatIntervalMinutes int      `yaml:"repeatIntervalMinutes"`
}

type Callbacks struct {
	OnStatusChangeWebhook string `yaml:"onStatusChangeWebhook"`
	OnIncidentWebhook     string `yaml:"onIncidentWebhook"`
}

type Maintenance struct {
	Monitors []string   `yaml:"monitors"`
	Title    string     `yaml:"title"`
	Body     string     `yaml:"body"`
	Start    *Timestamp `yaml:"start"`
	End      *Timestamp `yaml:"end"`
	Color    string     `yaml:"color"`
}

// Load reads, defaults and validates the monitor configuration file.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&f)
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func applyDefaults(f *File) {
	for i := range f.Worker.Monitors {
		m := &f.Worker.Monitors[i]
		m.ID = strings.TrimSpace(m.ID)
		m.Target = strings.TrimSpace(m.Target)
		m.Method = strings.ToUpper(strings.TrimSpace(m.Method))
		if m.Method == "" {
			m.Method = http.MethodGet
		}
		if strings.TrimSpace(m.Name) == "" {
			m.Name = m.ID
		}
		if m.Timeout <= 0 {
			m.Timeout = defaultTimeoutMS
		}
	}
	if strings.TrimSpace(f.Notification.TimeZone) == "" {
		f.Notification.TimeZone = defaultTimeZone
	}
	for i := range f.Maintenances {
		w := &f.Maintenances[i]
		if strings.TrimSpace(w.Title) == "" {
			w.Title = defaultMaintenanceTitle
		}
		if strings.TrimSpace(w.Color) == "" {
			w.Color = defaultMaintenanceColor
		}
	}
}

// Validate reports every problem in the file at once.
func (f *File) Validate() error {
	var errs error
	if len(f.Worker.Monitors) == 0 {
		errs = multierr.Append(errs, errors.New("config: no monitors provided"))
	}
	if f.Worker.KVWriteCooldownMinutes < 0 {
		errs = multierr.Append(errs, errors.New("config: kvWriteCooldownMinutes cannot be negative"))
	}
	if f.Worker.Relay.MaxTimeoutSeconds < 0 {
		errs = multierr.Append(errs, errors.New("config: relay.maxTimeoutSeconds cannot be negative"))
	}
	if pp := f.Worker.PasswordProtection; pp != "" && !strings.Contains(pp, ":") {
		errs = multierr.Append(errs, errors.New("config: passwordProtection must be <user>:<password>"))
	}
	for name, raw := range f.Worker.CheckProxy.Channels {
		if !isHTTPURL(raw) {
			errs = multierr.Append(errs, fmt.Errorf("config: proxy channel %q url %q must be http(s)", name, raw))
		}
	}

	seen := make(map[string]struct{}, len(f.Worker.Monitors))
	for i, m := range f.Worker.Monitors {
		if m.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("config: monitor[%d] missing id", i))
			continue
		}
		if _, dup := seen[m.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("config: duplicate monitor id %q", m.ID))
		}
		seen[m.ID] = struct{}{}
		errs = multierr.Append(errs, validateMonitor(m))
	}

	if _, err := time.LoadLocation(f.Notification.TimeZone); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("config: invalid timeZone %q: %w", f.Notification.TimeZone, err))
	}
	if f.Notification.GracePeriod < 0 {
		errs = multierr.Append(errs, errors.New("config: gracePeriod cannot be negative"))
	}
	if f.Notification.RepeatIntervalMinutes < 0 {
		errs = multierr.Append(errs, errors.New("config: repeatIntervalMinutes cannot be negative"))
	}
	for _, id := range f.Notification.SkipNotificationIDs {
		if _, ok := seen[id]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("config: skipNotificationIds references unknown monitor %q", id))
		}
	}
	for _, g := range f.Page.Group {
		for _, id := range g.Monitors {
			if _, ok := seen[id]; !ok {
				errs = multierr.Append(errs, fmt.Errorf("config: group %q references unknown monitor %q", g.Name, id))
			}
		}
	}
	for i, w := range f.Maintenances {
		if w.Start == nil {
			errs = multierr.Append(errs, fmt.Errorf("config: maintenance[%d] missing start", i))
			continue
		}
		if w.End != nil && !w.End.After(w.Start.Time) {
			errs = multierr.Append(errs, fmt.Errorf("config: maintenance[%d] end must be after start", i))
		}
	}
	for _, raw := range []string{f.Callbacks.OnStatusChangeWebhook, f.Callbacks.OnIncidentWebhook, f.Notification.SlackWebhook, f.Notification.AppriseAPIServer} {
		if raw != "" && !isHTTPURL(raw) {
			errs = multierr.Append(errs, fmt.Errorf("config: %q must be an http(s) url", raw))
		}
	}
	return errs
}

func validateMonitor(m Monitor) error {
	var errs error
	if domain.CheckMethod(m.Method).IsTCP() {
		host, port, err := net.SplitHostPort(m.Target)
		if err != nil || host == "" || port == "" {
			errs = multierr.Append(errs, fmt.Errorf("config: monitor %q target %q must be host:port", m.ID, m.Target))
		}
	} else {
		if !validHTTPMethod(m.Method) {
			errs = multierr.Append(errs, fmt.Errorf("config: monitor %q invalid method %q", m.ID, m.Method))
		}
		if !isHTTPURL(m.Target) {
			errs = multierr.Append(errs, fmt.Errorf("config: monitor %q target %q must be an http(s) url", m.ID, m.Target))
		}
	}
	for _, c := range m.ExpectedCodes {
		if c < 100 || c > 599 {
			errs = multierr.Append(errs, fmt.Errorf("config: monitor %q expected code %d out of range", m.ID, c))
		}
	}
	if _, err := proxy.Parse(m.CheckProxy); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("config: monitor %q: %w", m.ID, err))
	}
	return errs
}

func validHTTPMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Specs converts the monitor section into immutable monitor specs.
// The file must already be validated.
func (f *File) Specs() []domain.MonitorSpec {
	skip := make(map[string]bool, len(f.Notification.SkipNotificationIDs))
	for _, id := range f.Notification.SkipNotificationIDs {
		skip[id] = true
	}
	out := make([]domain.MonitorSpec, 0, len(f.Worker.Monitors))
	for _, m := range f.Worker.Monitors {
		pref, _ := proxy.Parse(m.CheckProxy)
		out = append(out, domain.MonitorSpec{
			ID:                       domain.MonitorID(m.ID),
			Name:                     m.Name,
			Method:                   domain.CheckMethod(m.Method),
			Target:                   m.Target,
			Timeout:                  time.Duration(m.Timeout) * time.Millisecond,
			ExpectedCodes:            m.ExpectedCodes,
			Headers:                  m.Headers,
			Body:                     m.Body,
			ResponseKeyword:          m.ResponseKeyword,
			ResponseForbiddenKeyword: m.ResponseForbiddenKeyword,
			Proxy:                    pref,
			ProxyFallback:            m.CheckProxyFallback,
			SkipNotification:         skip[m.ID],
			Tooltip:                  m.Tooltip,
			StatusPageLink:           m.StatusPageLink,
			HideLatencyChart:         m.HideLatencyChart,
		})
	}
	return out
}

// Windows converts the maintenance section into domain windows.
func (f *File) Windows() []domain.MaintenanceWindow {
	out := make([]domain.MaintenanceWindow, 0, len(f.Maintenances))
	for _, w := range f.Maintenances {
		if w.Start == nil {
			continue
		}
		mw := domain.MaintenanceWindow{
			Title: w.Title,
			Body:  w.Body,
			Start: w.Start.Time,
			Color: w.Color,
		}
		if w.End != nil {
			end := w.End.Time
			mw.End = &end
		}
		for _, id := range w.Monitors {
			mw.Monitors = append(mw.Monitors, domain.MonitorID(id))
		}
		out = append(out, mw)
	}
	return out
}

// Location returns the notification time zone, falling back to UTC.
func (f *File) Location() *time.Location {
	loc, err := time.LoadLocation(f.Notification.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (f *File) WriteCooldown() time.Duration {
	return time.Duration(f.Worker.KVWriteCooldownMinutes) * time.Minute
}

func (f *File) GracePeriod() time.Duration {
	return time.Duration(f.Notification.GracePeriod) * time.Minute
}

func (f *File) RepeatInterval() time.Duration {
	return time.Duration(f.Notification.RepeatIntervalMinutes) * time.Minute
}
