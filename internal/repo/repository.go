package repo

import (
	"context"

	"github.com/hamed0406/uptimeengine/internal/domain"
)

// Ports (interfaces). The status store commits through StateBackend; the
// alerter keeps its delivery bookkeeping in AlertStore.
type StateBackend interface {
	// GetState returns nil, nil if the monitor has never been committed.
	GetState(ctx context.Context, id domain.MonitorID) (*domain.MonitorState, error)
	PutState(ctx context.Context, s domain.MonitorState) error
	ListStates(ctx context.Context) ([]domain.MonitorState, error)
}

// Backend is everything a storage driver provides.
type Backend interface {
	StateBackend
	AlertStore
	Close() error
}
