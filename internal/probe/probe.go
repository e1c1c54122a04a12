// Package probe executes single HTTP and TCP checks, either directly or
// through a relay instance.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/hamed0406/uptimeengine/internal/domain"
)

// Checker performs one direct check of a monitor. Implementations bound the
// check by spec.Timeout and never return a fault: failures are down results.
type Checker interface {
	Check(ctx context.Context, spec domain.MonitorSpec) domain.CheckResult
}

func newResult(spec domain.MonitorSpec, start time.Time) domain.CheckResult {
	return domain.CheckResult{MonitorID: spec.ID, At: start, Path: domain.PathDirect}
}

func fail(r domain.CheckResult, kind domain.FailureKind, reason string) domain.CheckResult {
	r.Up = false
	r.Kind = kind
	r.Reason = reason
	return r
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

var timeNow = time.Now

func timeoutReason(d time.Duration) string {
	return fmt.Sprintf("timeout after %s", d)
}

// withTimeout applies the monitor timeout, falling back to 10s when unset.
func withTimeout(ctx context.Context, spec domain.MonitorSpec) (context.Context, context.CancelFunc, time.Duration) {
	d := spec.Timeout
	if d <= 0 {
		d = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, cancel, d
}
