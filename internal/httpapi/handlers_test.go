package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeengine/internal/config"
	"github.com/hamed0406/uptimeengine/internal/domain"
	"github.com/hamed0406/uptimeengine/internal/metrics"
	"github.com/hamed0406/uptimeengine/internal/probe"
	"github.com/hamed0406/uptimeengine/internal/proxy"
	"github.com/hamed0406/uptimeengine/internal/repo/memory"
	"github.com/hamed0406/uptimeengine/internal/statuspage"
	"github.com/hamed0406/uptimeengine/internal/store"
)

// ---- test helpers ----

type fakeChecker struct {
	mu   sync.Mutex
	out  domain.CheckResult
	seen []domain.MonitorSpec
}

func (f *fakeChecker) Direct(_ context.Context, spec domain.MonitorSpec) domain.CheckResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, spec)
	// always return the same result so tests are deterministic
	return f.out
}

var testNow = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func setupServer(t *testing.T, chk DirectChecker, opts Options) *httptest.Server {
	t.Helper()
	log := zap.NewNop()
	specs := []domain.MonitorSpec{
		{ID: "api", Name: "API", Method: "GET", Target: "https://api.example.com"},
		{ID: "db", Name: "DB", Method: "TCP_PING", Target: "db.internal:5432"},
	}
	st := store.New(memory.New(), 0, log)
	_, _, err := st.Update(context.Background(), "db", testNow, func(s domain.MonitorState) domain.MonitorState {
		start := testNow.Add(-10 * time.Minute)
		s.Status = domain.StatusDown
		s.IncidentStart = &start
		s.FirstCheckAt = testNow.Add(-time.Hour)
		s.LastCheckAt = testNow
		s.LastReason = "connection error: connection refused"
		s.Incidents = []domain.Incident{{ID: "i1", Start: start, Reason: s.LastReason}}
		return s
	})
	if err != nil {
		t.Fatalf("seed state: %v", err)
	}

	page := statuspage.NewBuilder(config.Page{Title: "Acme status"}, specs, st, nil)
	srv := NewServer(log, page, chk, metrics.New(), opts)
	srv.now = func() time.Time { return testNow }

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ---- tests ----

func TestHealthz(t *testing.T) {
	ts := setupServer(t, &fakeChecker{}, Options{PasswordProtection: "u:p"})
	resp := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200 got %d", resp.StatusCode)
	}
	b, _ := io.ReadAll(resp.Body)
	if string(b) != "ok" {
		t.Fatalf("want ok got %q", b)
	}
}

func TestStatus(t *testing.T) {
	ts := setupServer(t, &fakeChecker{}, Options{})
	resp := get(t, ts.URL+"/api/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200 got %d", resp.StatusCode)
	}
	var page statuspage.Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Title != "Acme status" {
		t.Fatalf("title %q", page.Title)
	}
	if len(page.Groups) != 1 || len(page.Groups[0].Monitors) != 2 {
		t.Fatalf("want one group with 2 monitors, got %+v", page.Groups)
	}
	db := page.Groups[0].Monitors[1]
	if db.Status != domain.StatusDown || db.IncidentStart == nil {
		t.Fatalf("db should be down with an incident start, got %+v", db)
	}
	if db.UptimePercent == nil || *db.UptimePercent < 83 || *db.UptimePercent > 84 {
		t.Fatalf("db uptime %v", db.UptimePercent)
	}
}

func TestMonitor_FoundAndUnknown(t *testing.T) {
	ts := setupServer(t, &fakeChecker{}, Options{})

	resp := get(t, ts.URL+"/api/monitors/db")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200 got %d", resp.StatusCode)
	}
	var m statuspage.Monitor
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.LastReason != "connection error: connection refused" {
		t.Fatalf("lastReason %q", m.LastReason)
	}

	resp = get(t, ts.URL+"/api/monitors/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404 got %d", resp.StatusCode)
	}
}

func TestPasswordProtection(t *testing.T) {
	ts := setupServer(t, &fakeChecker{}, Options{PasswordProtection: "viewer:hunter2"})

	resp := get(t, ts.URL+"/api/status")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401 got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/status", nil)
	req.SetBasicAuth("viewer", "hunter2")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("want 200 got %d", resp2.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupServer(t, &fakeChecker{}, Options{})
	resp := get(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200 got %d", resp.StatusCode)
	}
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), "go_goroutines") {
		t.Fatal("expected runtime metrics in exposition")
	}
}

func TestCheck_RunsDirectAndClearsProxy(t *testing.T) {
	chk := &fakeChecker{out: domain.CheckResult{Up: true, StatusCode: 200, Latency: 12 * time.Millisecond, Path: domain.PathDirect}}
	ts := setupServer(t, chk, Options{RelayEnabled: true})

	body, _ := json.Marshal(probe.RelayRequest{Spec: domain.MonitorSpec{
		ID:     "api",
		Method: "GET",
		Target: "https://api.example.com",
		Proxy:  domain.ProxyPreference{Kind: domain.ProxyNamedChannel, Name: "loop"},
	}})
	resp, err := http.Post(ts.URL+"/api/check", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200 got %d", resp.StatusCode)
	}
	var res domain.CheckResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Up || res.StatusCode != 200 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(chk.seen) != 1 || chk.seen[0].Proxy.IsSet() {
		t.Fatalf("checker should run once without proxy, saw %+v", chk.seen)
	}
}

func TestCheck_RejectsBadInput(t *testing.T) {
	ts := setupServer(t, &fakeChecker{}, Options{RelayEnabled: true})
	for _, body := range []string{
		`not json`,
		`{"spec":{"method":"GET","target":"ftp://x"}}`,
		`{"spec":{"method":"TCP_PING","target":"no-port"}}`,
	} {
		resp, err := http.Post(ts.URL+"/api/check", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: want 400 got %d", body, resp.StatusCode)
		}
	}
}

func postCheck(t *testing.T, url string, spec domain.MonitorSpec) *http.Response {
	t.Helper()
	body, _ := json.Marshal(probe.RelayRequest{Spec: spec})
	resp, err := http.Post(url+"/api/check", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCheck_RefusedOnOpenAPIUnlessEnabled(t *testing.T) {
	chk := &fakeChecker{out: domain.CheckResult{Up: true}}
	ts := setupServer(t, chk, Options{})

	resp := postCheck(t, ts.URL, domain.MonitorSpec{
		Method:          "GET",
		Target:          "http://10.0.0.5/admin",
		ResponseKeyword: "secret",
		Timeout:         24 * time.Hour,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("want 403 got %d", resp.StatusCode)
	}
	if len(chk.seen) != 0 {
		t.Fatalf("checker must not run, saw %+v", chk.seen)
	}
}

func TestCheck_CapsRequestedTimeout(t *testing.T) {
	chk := &fakeChecker{out: domain.CheckResult{Up: true}}
	ts := setupServer(t, chk, Options{RelayEnabled: true, RelayMaxTimeout: 5 * time.Second})

	for _, asked := range []time.Duration{24 * time.Hour, 0} {
		resp := postCheck(t, ts.URL, domain.MonitorSpec{Method: "GET", Target: "https://api.example.com", Timeout: asked})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("want 200 got %d", resp.StatusCode)
		}
	}
	resp := postCheck(t, ts.URL, domain.MonitorSpec{Method: "GET", Target: "https://api.example.com", Timeout: time.Second})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200 got %d", resp.StatusCode)
	}

	want := []time.Duration{5 * time.Second, 5 * time.Second, time.Second}
	if len(chk.seen) != len(want) {
		t.Fatalf("checker calls = %d", len(chk.seen))
	}
	for i, w := range want {
		if chk.seen[i].Timeout != w {
			t.Fatalf("call %d: timeout %s, want %s", i, chk.seen[i].Timeout, w)
		}
	}
}

func TestCheck_IsRateLimited(t *testing.T) {
	ts := setupServer(t, &fakeChecker{}, Options{RelayEnabled: true, PublicRPM: 1, PublicBurst: 1})
	spec := domain.MonitorSpec{Method: "GET", Target: "https://api.example.com"}

	if resp := postCheck(t, ts.URL, spec); resp.StatusCode != http.StatusOK {
		t.Fatalf("first request: want 200 got %d", resp.StatusCode)
	}
	if resp := postCheck(t, ts.URL, spec); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request: want 429 got %d", resp.StatusCode)
	}
}

func TestRelayRoundTrip(t *testing.T) {
	chk := &fakeChecker{out: domain.CheckResult{Up: false, Reason: "unexpected status code 503", StatusCode: 503, Path: domain.PathDirect}}
	ts := setupServer(t, chk, Options{PasswordProtection: "relay:secret"})

	u := strings.Replace(ts.URL, "http://", "http://relay:secret@", 1)
	spec := domain.MonitorSpec{ID: "api", Method: "GET", Target: "https://api.example.com", Timeout: 2 * time.Second}
	res, err := probe.NewRelayClient().Check(context.Background(), spec, proxy.Channel{Label: "weur", URL: u})
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	if res.Up || res.Reason != "unexpected status code 503" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Path != domain.ProxyPath("weur") {
		t.Fatalf("path %q", res.Path)
	}
	if got := chk.seen[0].Timeout; got != 1800*time.Millisecond {
		t.Fatalf("relay should get 90%% of the timeout, got %s", got)
	}
}
