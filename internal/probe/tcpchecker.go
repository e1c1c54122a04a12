package probe

import (
	"context"
	"net"
	"time"

	"github.com/hamed0406/uptimeengine/internal/domain"
)

// TCPChecker opens and immediately closes a connection to host:port.
type TCPChecker struct {
	Dialer *net.Dialer
}

func NewTCPChecker() *TCPChecker {
	return &TCPChecker{Dialer: &net.Dialer{}}
}

func (c *TCPChecker) Check(ctx context.Context, spec domain.MonitorSpec) domain.CheckResult {
	start := time.Now()
	res := newResult(spec, start)
	ctx, cancel, timeout := withTimeout(ctx, spec)
	defer cancel()

	conn, err := c.Dialer.DialContext(ctx, "tcp", spec.Target)
	res.Latency = time.Since(start)
	if err != nil {
		if isTimeout(err) {
			return fail(res, domain.KindTimeout, timeoutReason(timeout))
		}
		return fail(res, domain.KindConnection, "connection error: "+err.Error())
	}
	_ = conn.Close()
	res.Up = true
	return res
}
