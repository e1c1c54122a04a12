// Package proxy turns a monitor's checkProxy preference into a concrete
// relay channel.
package proxy

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/hamed0406/uptimeengine/internal/domain"
)

const workerScheme = "worker://"

// Parse reads a checkProxy string. An empty string means direct checks.
func Parse(raw string) (domain.ProxyPreference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.ProxyPreference{}, nil
	}
	if strings.Contains(raw, " ") {
		return domain.ProxyPreference{}, fmt.Errorf("checkProxy %q: exactly one proxy may be set", raw)
	}
	if strings.HasPrefix(raw, workerScheme) {
		name := strings.Trim(strings.TrimPrefix(raw, workerScheme), "/")
		if name == "" {
			return domain.ProxyPreference{}, fmt.Errorf("checkProxy %q: missing channel name", raw)
		}
		return domain.ProxyPreference{Kind: domain.ProxyNamedChannel, Name: name}, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return domain.ProxyPreference{}, fmt.Errorf("checkProxy %q: want worker://<name> or an http(s) url", raw)
	}
	return domain.ProxyPreference{Kind: domain.ProxyExplicitEndpoint, URL: raw}, nil
}

// Channel is a resolved relay. The zero value means a direct check.
type Channel struct {
	Label string
	URL   string
}

func (c Channel) Direct() bool { return c.URL == "" }

// Path is the check path a result produced through c should report.
func (c Channel) Path() domain.CheckPath {
	if c.Direct() {
		return domain.PathDirect
	}
	return domain.ProxyPath(c.Label)
}

// Resolver maps named channels to relay base URLs.
type Resolver struct {
	Channels map[string]string
}

func NewResolver(channels map[string]string) *Resolver {
	return &Resolver{Channels: channels}
}

// Resolve picks the channel for spec. Failures wrap domain.ErrProxyUnavailable;
// the caller decides whether to fall back to a direct check.
func (r *Resolver) Resolve(spec domain.MonitorSpec) (Channel, error) {
	switch spec.Proxy.Kind {
	case domain.ProxyNone:
		return Channel{}, nil
	case domain.ProxyNamedChannel:
		base, ok := r.Channels[spec.Proxy.Name]
		if !ok || strings.TrimSpace(base) == "" {
			return Channel{}, fmt.Errorf("%w: unknown channel %q", domain.ErrProxyUnavailable, spec.Proxy.Name)
		}
		return Channel{Label: spec.Proxy.Name, URL: base}, nil
	case domain.ProxyExplicitEndpoint:
		u, err := url.Parse(spec.Proxy.URL)
		if err != nil || u.Host == "" {
			return Channel{}, fmt.Errorf("%w: invalid endpoint %q", domain.ErrProxyUnavailable, spec.Proxy.URL)
		}
		return Channel{Label: u.Host, URL: spec.Proxy.URL}, nil
	default:
		return Channel{}, fmt.Errorf("%w: unknown proxy kind %d", domain.ErrProxyUnavailable, spec.Proxy.Kind)
	}
}
