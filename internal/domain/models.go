package domain

import (
	"strings"
	"time"
)

type MonitorID string

type CheckMethod string

const (
	MethodTCPPing CheckMethod = "TCP_PING"
)

// IsTCP reports whether the method is a plain TCP connect check.
func (m CheckMethod) IsTCP() bool {
	return strings.EqualFold(string(m), string(MethodTCPPing))
}

// MonitorSpec is the immutable description of one monitor, built from config.
type MonitorSpec struct {
	ID                       MonitorID         `json:"id"`
	Name                     string            `json:"name"`
	Method                   CheckMethod       `json:"method"`
	Target                   string            `json:"target"`
	Timeout                  time.Duration     `json:"timeout"`
	ExpectedCodes            []int             `json:"expected_codes,omitempty"`
	Headers                  map[string]string `json:"headers,omitempty"`
	Body                     string            `json:"body,omitempty"`
	ResponseKeyword          string            `json:"response_keyword,omitempty"`
	ResponseForbiddenKeyword string            `json:"response_forbidden_keyword,omitempty"`
	Proxy                    ProxyPreference   `json:"-"`
	ProxyFallback            bool              `json:"-"`
	SkipNotification         bool              `json:"-"`

	// display only
	Tooltip          string `json:"-"`
	StatusPageLink   string `json:"-"`
	HideLatencyChart bool   `json:"-"`
}

// ExpectsCode reports whether an HTTP status code satisfies the monitor.
// With no configured codes any 2xx passes.
func (m MonitorSpec) ExpectsCode(code int) bool {
	if len(m.ExpectedCodes) == 0 {
		return code >= 200 && code < 300
	}
	for _, c := range m.ExpectedCodes {
		if c == code {
			return true
		}
	}
	return false
}

type ProxyKind int

const (
	ProxyNone ProxyKind = iota
	ProxyNamedChannel
	ProxyExplicitEndpoint
)

// ProxyPreference is the parsed form of a monitor's checkProxy setting.
// Exactly one of Name or URL is set, according to Kind.
type ProxyPreference struct {
	Kind ProxyKind
	Name string // worker://<name>
	URL  string // http(s)://...
}

func (p ProxyPreference) IsSet() bool { return p.Kind != ProxyNone }

func (p ProxyPreference) String() string {
	switch p.Kind {
	case ProxyNamedChannel:
		return "worker://" + p.Name
	case ProxyExplicitEndpoint:
		return p.URL
	default:
		return ""
	}
}

type CheckPath string

const PathDirect CheckPath = "direct"

// ProxyPath labels a result produced through the named proxy channel.
func ProxyPath(label string) CheckPath { return CheckPath("proxy:" + label) }

type CheckResult struct {
	MonitorID  MonitorID     `json:"monitor_id"`
	At         time.Time     `json:"at"`
	Up         bool          `json:"up"`
	Latency    time.Duration `json:"latency"`
	StatusCode int           `json:"status_code,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Kind       FailureKind   `json:"kind,omitempty"`
	Path       CheckPath     `json:"path"`
}

// LatencyMS is the result latency in fractional milliseconds.
func (r CheckResult) LatencyMS() float64 {
	return float64(r.Latency) / float64(time.Millisecond)
}
