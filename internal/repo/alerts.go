package repo

import (
	"context"
	"time"

	"github.com/hamed0406/uptimeengine/internal/domain"
)

// AlertRecord holds the last status we notified about for a monitor and the
// last time a notification went out (used to space "still down" notices).
type AlertRecord struct {
	MonitorID  domain.MonitorID
	LastStatus domain.Status
	LastSentAt *time.Time
}

// AlertStore is implemented by a persistence layer to store alert state.
type AlertStore interface {
	// GetAlert returns nil, nil if there's no record yet.
	GetAlert(ctx context.Context, id domain.MonitorID) (*AlertRecord, error)
	// SetAlert upserts the record. If sentAt.IsZero() no send time is stored.
	SetAlert(ctx context.Context, id domain.MonitorID, lastStatus domain.Status, sentAt time.Time) error
}
