package probe

import (
	"context"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeengine/internal/domain"
	"github.com/hamed0406/uptimeengine/internal/proxy"
)

// Prober picks the check path for a monitor: direct by method, or through
// the relay its proxy preference resolves to.
type Prober struct {
	HTTP     Checker
	TCP      Checker
	Relay    *RelayClient
	Resolver *proxy.Resolver
	Logger   *zap.Logger
}

func NewProber(resolver *proxy.Resolver, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = proxy.NewResolver(nil)
	}
	return &Prober{
		HTTP:     NewHTTPChecker(),
		TCP:      NewTCPChecker(),
		Relay:    NewRelayClient(),
		Resolver: resolver,
		Logger:   logger,
	}
}

// Check runs spec through its proxy when one is configured. A proxy that
// cannot be used yields a down result unless the monitor allows falling
// back to a direct check; no other proxy is tried. The relay attempt and
// the fallback share one deadline of spec.Timeout.
func (p *Prober) Check(ctx context.Context, spec domain.MonitorSpec) domain.CheckResult {
	if !spec.Proxy.IsSet() {
		return p.Direct(ctx, spec)
	}
	ctx, cancel, _ := withTimeout(ctx, spec)
	defer cancel()

	ch, err := p.Resolver.Resolve(spec)
	if err == nil {
		var res domain.CheckResult
		res, err = p.Relay.Check(ctx, spec, ch)
		if err == nil {
			return res
		}
	}

	if spec.ProxyFallback {
		p.Logger.Warn("proxy_fallback_direct",
			zap.String("monitor", string(spec.ID)),
			zap.String("proxy", spec.Proxy.String()),
			zap.Error(err))
		return p.Direct(ctx, spec)
	}

	res := newResult(spec, timeNow())
	res.Path = domain.ProxyPath(spec.Proxy.String())
	return fail(res, domain.KindOf(err), err.Error())
}

// Direct runs spec against its target from this instance.
func (p *Prober) Direct(ctx context.Context, spec domain.MonitorSpec) domain.CheckResult {
	if spec.Method.IsTCP() {
		return p.TCP.Check(ctx, spec)
	}
	return p.HTTP.Check(ctx, spec)
}
