package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hamed0406/uptimeengine/internal/domain"
	"github.com/hamed0406/uptimeengine/internal/repo"
)

var _ repo.Backend = (*Store)(nil)

// Store keeps committed state in process memory. It is the default driver
// and what tests run against.
type Store struct {
	mu     sync.RWMutex
	states map[domain.MonitorID]domain.MonitorState
	alerts map[domain.MonitorID]repo.AlertRecord
}

func New() *Store {
	return &Store{
		states: make(map[domain.MonitorID]domain.MonitorState),
		alerts: make(map[domain.MonitorID]repo.AlertRecord),
	}
}

func (m *Store) GetState(ctx context.Context, id domain.MonitorID) (*domain.MonitorState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[id]
	if !ok {
		return nil, nil
	}
	out := s.Clone()
	return &out, nil
}

func (m *Store) PutState(ctx context.Context, s domain.MonitorState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[s.MonitorID] = s.Clone()
	return nil
}

func (m *Store) ListStates(ctx context.Context) ([]domain.MonitorState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.MonitorState, 0, len(m.states))
	for _, s := range m.states {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonitorID < out[j].MonitorID })
	return out, nil
}

func (m *Store) GetAlert(ctx context.Context, id domain.MonitorID) (*repo.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.alerts[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Store) SetAlert(ctx context.Context, id domain.MonitorID, lastStatus domain.Status, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := repo.AlertRecord{MonitorID: id, LastStatus: lastStatus}
	if !sentAt.IsZero() {
		r.LastSentAt = &sentAt
	}
	m.alerts[id] = r
	return nil
}

func (m *Store) Close() error { return nil }
