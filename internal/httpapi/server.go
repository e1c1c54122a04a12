package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeengine/internal/domain"
	apimw "github.com/hamed0406/uptimeengine/internal/httpapi/middleware"
	"github.com/hamed0406/uptimeengine/internal/metrics"
	"github.com/hamed0406/uptimeengine/internal/probe"
	"github.com/hamed0406/uptimeengine/internal/statuspage"
)

// maxRelayBody bounds POST /api/check payloads.
const maxRelayBody = 64 << 10

// DirectChecker runs a check from this instance, bypassing any proxy.
type DirectChecker interface {
	Direct(ctx context.Context, spec domain.MonitorSpec) domain.CheckResult
}

type Options struct {
	// PasswordProtection is "user:pass"; empty leaves the API open.
	PasswordProtection string
	PublicRPM          int
	PublicBurst        int
	// RelayEnabled serves relay checks even without PasswordProtection.
	RelayEnabled bool
	// RelayMaxTimeout caps the timeout of a relayed check; 0 means 30s.
	RelayMaxTimeout time.Duration
}

// relayServed reports whether POST /api/check runs checks. An open API
// never relays unless the operator opted in.
func (o Options) relayServed() bool {
	return o.RelayEnabled || o.PasswordProtection != ""
}

func (o Options) relayMaxTimeout() time.Duration {
	if o.RelayMaxTimeout <= 0 {
		return 30 * time.Second
	}
	return o.RelayMaxTimeout
}

type Server struct {
	Logger  *zap.Logger
	Page    *statuspage.Builder
	Checker DirectChecker
	Metrics *metrics.Metrics
	Options Options

	now func() time.Time
}

func NewServer(l *zap.Logger, page *statuspage.Builder, c DirectChecker, m *metrics.Metrics, opts Options) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Page: page, Checker: c, Metrics: m, Options: opts, now: time.Now}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.BasicAuth(s.Options.PasswordProtection, ""))
		if s.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
		}

		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(s.Options.PublicRPM, s.Options.PublicBurst))
			r.Get("/api/status", s.handleStatus)
			r.Get("/api/monitors/{id}", s.handleMonitor)
			r.Post(probe.RelayPath, s.handleCheck)
		})
	})

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	p, err := s.Page.Status(r.Context(), s.now())
	if err != nil {
		s.Logger.Warn("status_build_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "status unavailable")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	id := domain.MonitorID(chi.URLParam(r, "id"))
	m, err := s.Page.Monitor(r.Context(), id, s.now())
	switch {
	case errors.Is(err, statuspage.ErrUnknownMonitor):
		writeError(w, http.StatusNotFound, "unknown monitor")
	case err != nil:
		s.Logger.Warn("monitor_build_error", zap.String("monitor", string(id)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "status unavailable")
	default:
		writeJSON(w, http.StatusOK, m)
	}
}

// handleCheck serves relay requests from other instances: one direct check
// of the posted monitor, answered with its result. The requested timeout is
// capped at RelayMaxTimeout.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if !s.Options.relayServed() {
		writeError(w, http.StatusForbidden, "relay disabled")
		return
	}
	var req probe.RelayRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRelayBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	spec := req.Spec
	if !validTarget(spec) {
		writeError(w, http.StatusBadRequest, "invalid target")
		return
	}
	spec.Proxy = domain.ProxyPreference{}
	if limit := s.Options.relayMaxTimeout(); spec.Timeout <= 0 || spec.Timeout > limit {
		spec.Timeout = limit
	}

	res := s.Checker.Direct(r.Context(), spec)
	s.Logger.Info("relay_checked",
		zap.String("monitor", string(spec.ID)),
		zap.String("target", spec.Target),
		zap.Bool("up", res.Up),
		zap.Float64("latency_ms", res.LatencyMS()),
		zap.String("reason", res.Reason),
	)
	writeJSON(w, http.StatusOK, res)
}

func validTarget(spec domain.MonitorSpec) bool {
	if spec.Method.IsTCP() {
		host, port, err := net.SplitHostPort(spec.Target)
		return err == nil && host != "" && port != ""
	}
	return isValidHTTPURL(spec.Target)
}

// isValidHTTPURL accepts absolute http(s) URLs with a host.
func isValidHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
