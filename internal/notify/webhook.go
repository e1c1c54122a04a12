package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hamed0406/uptimeengine/internal/domain"
)

// WebhookHook posts hook invocations as JSON to a fixed URL. It serves both
// hook slots; the event field tells them apart.
type WebhookHook struct {
	URL    string
	Client *http.Client
}

// NewWebhookHook returns nil when url is empty.
func NewWebhookHook(url string) *WebhookHook {
	if url == "" {
		return nil
	}
	return &WebhookHook{URL: url, Client: &http.Client{Timeout: 5 * time.Second}}
}

type hookMonitor struct {
	ID     domain.MonitorID `json:"id"`
	Name   string           `json:"name"`
	Method string           `json:"method"`
	Target string           `json:"target"`
}

type hookPayload struct {
	Event         string      `json:"event"`
	Monitor       hookMonitor `json:"monitor"`
	Up            *bool       `json:"up,omitempty"`
	IncidentStart time.Time   `json:"incident_start"`
	Now           time.Time   `json:"now"`
	Reason        string      `json:"reason,omitempty"`
	TimeZone      string      `json:"time_zone,omitempty"`
}

func (w *WebhookHook) OnStatusChange(ctx context.Context, env HookEnv, m domain.MonitorSpec, up bool, incidentStart, now time.Time, reason string) error {
	return w.post(ctx, env, hookPayload{Event: "status_change", Up: &up, IncidentStart: incidentStart, Now: now, Reason: reason}, m)
}

func (w *WebhookHook) OnIncident(ctx context.Context, env HookEnv, m domain.MonitorSpec, incidentStart, now time.Time, reason string) error {
	return w.post(ctx, env, hookPayload{Event: "incident", IncidentStart: incidentStart, Now: now, Reason: reason}, m)
}

func (w *WebhookHook) post(ctx context.Context, env HookEnv, p hookPayload, m domain.MonitorSpec) error {
	p.Monitor = hookMonitor{ID: m.ID, Name: m.Name, Method: string(m.Method), Target: m.Target}
	if env.Location != nil {
		p.TimeZone = env.Location.String()
	}
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("webhook %s: status %d", w.URL, resp.StatusCode)
	}
	return nil
}
