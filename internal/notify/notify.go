// Package notify formats monitor events and delivers them to external sinks.
package notify

import (
	"context"

	"go.uber.org/multierr"
)

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans a message out to every configured sink. All sinks are tried;
// their errors are combined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var errs error
	for _, n := range m {
		if n == nil {
			continue
		}
		errs = multierr.Append(errs, n.Send(ctx, title, text))
	}
	return errs
}

// Compact drops nil sinks, typically those whose constructor found no
// configuration.
func Compact(sinks ...Notifier) Multi {
	out := make(Multi, 0, len(sinks))
	for _, n := range sinks {
		if n == nil || isNilSink(n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func isNilSink(n Notifier) bool {
	switch v := n.(type) {
	case *Slack:
		return v == nil
	case *Apprise:
		return v == nil
	case *Telegram:
		return v == nil
	}
	return false
}
