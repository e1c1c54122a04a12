// Package store is the status store: a per-monitor working copy of state in
// front of a durable backend, with a write budget on durable commits.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeengine/internal/domain"
	"github.com/hamed0406/uptimeengine/internal/metrics"
	"github.com/hamed0406/uptimeengine/internal/repo"
)

// SaveOutcome reports what Save did with the durable backend.
type SaveOutcome int

const (
	// Dropped: same status as the last commit and inside the cooldown.
	Dropped SaveOutcome = iota
	Committed
	Failed
)

func (o SaveOutcome) String() string {
	switch o {
	case Committed:
		return metrics.OutcomeCommitted
	case Failed:
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeDropped
	}
}

// statusChangeAttempts is how many times a status-change commit is tried.
const statusChangeAttempts = 3

type entry struct {
	mu         sync.Mutex
	loaded     bool
	state      domain.MonitorState
	committed  bool
	lastStatus domain.Status
	lastCommit time.Time
}

type Store struct {
	backend  repo.StateBackend
	cooldown time.Duration
	log      *zap.Logger
	metrics  *metrics.Metrics
	entries  *xsync.Map[domain.MonitorID, *entry]

	// retryPolicy builds the backoff used for status-change commits.
	retryPolicy func() backoff.BackOff
}

type Option func(*Store)

func WithMetrics(m *metrics.Metrics) Option { return func(s *Store) { s.metrics = m } }

func WithRetryPolicy(f func() backoff.BackOff) Option {
	return func(s *Store) { s.retryPolicy = f }
}

func New(backend repo.StateBackend, cooldown time.Duration, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		backend:  backend,
		cooldown: cooldown,
		log:      log,
		entries:  xsync.NewMap[domain.MonitorID, *entry](),

		retryPolicy: defaultRetryPolicy,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func defaultRetryPolicy() backoff.BackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(50*time.Millisecond),
		backoff.WithMaxInterval(time.Second),
		backoff.WithMaxElapsedTime(5*time.Second),
	)
}

func (s *Store) entry(id domain.MonitorID) *entry {
	e, _ := s.entries.LoadOrStore(id, &entry{})
	return e
}

// Load returns the current state of id, hydrating it from the backend on
// first access. A monitor never committed starts as a fresh up state.
func (s *Store) Load(ctx context.Context, id domain.MonitorID) (domain.MonitorState, error) {
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := s.hydrate(ctx, id, e); err != nil {
		return domain.MonitorState{}, err
	}
	return e.state.Clone(), nil
}

// Save records st as the working copy and commits it durably when the
// status changed since the last commit or the cooldown has elapsed.
func (s *Store) Save(ctx context.Context, st domain.MonitorState, now time.Time) (SaveOutcome, error) {
	e := s.entry(st.MonitorID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return s.save(ctx, e, st, now)
}

// Update runs a read-modify-write of id under its lock. fn receives a copy
// of the current state and returns the next one.
func (s *Store) Update(ctx context.Context, id domain.MonitorID, now time.Time, fn func(domain.MonitorState) domain.MonitorState) (domain.MonitorState, SaveOutcome, error) {
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := s.hydrate(ctx, id, e); err != nil {
		return domain.MonitorState{}, Failed, err
	}
	next := fn(e.state.Clone())
	next.MonitorID = id
	out, err := s.save(ctx, e, next, now)
	return e.state.Clone(), out, err
}

// Warm preloads every committed state so the first tick after a restart
// does not hit the backend once per monitor.
func (s *Store) Warm(ctx context.Context) (int, error) {
	all, err := s.backend.ListStates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list states: %w", err)
	}
	n := 0
	for _, st := range all {
		e := s.entry(st.MonitorID)
		e.mu.Lock()
		if !e.loaded {
			s.adopt(e, st)
			n++
		}
		e.mu.Unlock()
	}
	return n, nil
}

func (s *Store) hydrate(ctx context.Context, id domain.MonitorID, e *entry) error {
	if e.loaded {
		return nil
	}
	st, err := s.backend.GetState(ctx, id)
	if err != nil {
		return fmt.Errorf("load state %s: %w", id, err)
	}
	if st == nil {
		e.state = domain.NewMonitorState(id)
		e.loaded = true
		return nil
	}
	s.adopt(e, *st)
	return nil
}

func (s *Store) adopt(e *entry, st domain.MonitorState) {
	if st.Status == "" {
		st.Status = domain.StatusUp
	}
	e.state = st
	e.loaded = true
	e.committed = true
	e.lastStatus = st.Status
	e.lastCommit = st.LastPersistedAt
}

func (s *Store) save(ctx context.Context, e *entry, st domain.MonitorState, now time.Time) (SaveOutcome, error) {
	e.state = st.Clone()
	e.loaded = true

	changed := !e.committed || st.Status != e.lastStatus
	if !changed && now.Sub(e.lastCommit) < s.cooldown {
		s.metrics.StoreCommit(metrics.OutcomeDropped)
		return Dropped, nil
	}

	doc := e.state.Clone()
	doc.LastPersistedAt = now
	put := func() error { return s.backend.PutState(ctx, doc) }

	var err error
	if changed {
		bo := backoff.WithContext(backoff.WithMaxRetries(s.retryPolicy(), statusChangeAttempts-1), ctx)
		err = backoff.RetryNotify(put, bo, func(err error, wait time.Duration) {
			s.log.Warn("store_commit_retry",
				zap.String("monitor", string(st.MonitorID)),
				zap.Duration("wait", wait),
				zap.Error(err))
		})
	} else {
		err = put()
	}
	if err != nil {
		s.metrics.StoreCommit(metrics.OutcomeFailed)
		s.log.Error("store_commit_failed",
			zap.String("monitor", string(st.MonitorID)),
			zap.Bool("status_change", changed),
			zap.Error(err))
		return Failed, fmt.Errorf("%w: %s: %v", domain.ErrStoreWrite, st.MonitorID, err)
	}

	e.committed = true
	e.lastStatus = st.Status
	e.lastCommit = now
	e.state.LastPersistedAt = now
	s.metrics.StoreCommit(metrics.OutcomeCommitted)
	return Committed, nil
}
