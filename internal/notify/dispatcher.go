package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeengine/internal/domain"
	"github.com/hamed0406/uptimeengine/internal/metrics"
)

// Dispatcher delivers messages without blocking the caller. Each sink of a
// message gets its own goroutine, a bounded context and a few immediate
// retries; after that the delivery is dropped and logged. A sink that fails
// never causes the message to be resent to sinks that already accepted it.
type Dispatcher struct {
	Notifier Notifier
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Timeout  time.Duration
	Retries  int

	wg sync.WaitGroup
}

func NewDispatcher(n Notifier, logger *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		Notifier: n,
		Logger:   logger,
		Metrics:  m,
		Timeout:  15 * time.Second,
		Retries:  2,
	}
}

// Dispatch queues msg for delivery and returns immediately. Cancelling ctx
// does not cancel the delivery; only the dispatcher's own timeout does.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	if d == nil || d.Notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, sink := range d.sinks() {
		d.wg.Add(1)
		go func(sink Notifier) {
			defer d.wg.Done()
			name := fmt.Sprintf("%T", sink)
			if err := d.deliver(ctx, sink, msg); err != nil {
				d.Metrics.Notification(metrics.OutcomeFailed)
				d.Logger.Warn("notify_delivery_failed",
					zap.String("monitor", string(msg.MonitorID)),
					zap.String("sink", name),
					zap.String("title", msg.Title),
					zap.Error(err))
				return
			}
			d.Metrics.Notification(metrics.OutcomeSent)
			d.Logger.Info("notify_delivered",
				zap.String("monitor", string(msg.MonitorID)),
				zap.String("sink", name),
				zap.String("title", msg.Title))
		}(sink)
	}
}

// sinks splits a Multi so every sink is retried on its own.
func (d *Dispatcher) sinks() []Notifier {
	m, ok := d.Notifier.(Multi)
	if !ok {
		return []Notifier{d.Notifier}
	}
	out := make([]Notifier, 0, len(m))
	for _, n := range m {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (d *Dispatcher) deliver(ctx context.Context, sink Notifier, msg Message) error {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	retries := d.Retries
	if retries < 0 {
		retries = 0
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(retries)), ctx)
	err := backoff.Retry(func() error {
		return sink.Send(ctx, msg.Title, msg.Body)
	}, bo)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotificationDelivery, err)
	}
	return nil
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
