package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/uptimeengine/internal/domain"
	"github.com/hamed0406/uptimeengine/internal/repo/memory"
)

var t0 = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

// flakyBackend fails the next n puts, then delegates to memory.
type flakyBackend struct {
	*memory.Store
	failNext atomic.Int32
	puts     atomic.Int32
}

func (f *flakyBackend) PutState(ctx context.Context, s domain.MonitorState) error {
	f.puts.Add(1)
	if f.failNext.Load() > 0 {
		f.failNext.Add(-1)
		return errors.New("kv unavailable")
	}
	return f.Store.PutState(ctx, s)
}

func noWait() backoff.BackOff { return &backoff.ZeroBackOff{} }

func newStore(cooldown time.Duration) (*Store, *flakyBackend) {
	b := &flakyBackend{Store: memory.New()}
	return New(b, cooldown, nil, WithRetryPolicy(noWait)), b
}

func down(id domain.MonitorID, at time.Time) domain.MonitorState {
	s := domain.NewMonitorState(id)
	s.Status = domain.StatusDown
	s.IncidentStart = &at
	return s
}

func TestLoad_UnknownIsFreshUp(t *testing.T) {
	s, _ := newStore(time.Minute)
	st, err := s.Load(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUp, st.Status)
	assert.Equal(t, domain.MonitorID("a"), st.MonitorID)
	assert.False(t, st.Seen())
}

func TestSave_SameStatusInsideCooldownIsDropped(t *testing.T) {
	ctx := context.Background()
	s, b := newStore(3 * time.Minute)

	st := domain.NewMonitorState("a")
	out, err := s.Save(ctx, st, t0)
	require.NoError(t, err)
	assert.Equal(t, Committed, out, "first save establishes the record")

	st.ConsecutiveFailures = 1
	out, err = s.Save(ctx, st, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, Dropped, out)
	assert.EqualValues(t, 1, b.puts.Load())

	// working copy still advanced
	cur, _ := s.Load(ctx, "a")
	assert.Equal(t, 1, cur.ConsecutiveFailures)
	durable, _ := b.GetState(ctx, "a")
	assert.Equal(t, 0, durable.ConsecutiveFailures)

	out, err = s.Save(ctx, st, t0.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, Committed, out, "cooldown elapsed")
	durable, _ = b.GetState(ctx, "a")
	assert.Equal(t, 1, durable.ConsecutiveFailures)
	assert.Equal(t, t0.Add(3*time.Minute), durable.LastPersistedAt)
}

func TestSave_StatusChangeBypassesCooldown(t *testing.T) {
	ctx := context.Background()
	s, b := newStore(time.Hour)
	_, _ = s.Save(ctx, domain.NewMonitorState("a"), t0)

	out, err := s.Save(ctx, down("a", t0.Add(time.Second)), t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, Committed, out)
	durable, _ := b.GetState(ctx, "a")
	assert.Equal(t, domain.StatusDown, durable.Status)

	back := domain.NewMonitorState("a")
	out, err = s.Save(ctx, back, t0.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, Committed, out)
}

func TestSave_StatusChangeIsRetried(t *testing.T) {
	ctx := context.Background()
	s, b := newStore(time.Hour)
	_, _ = s.Save(ctx, domain.NewMonitorState("a"), t0)

	b.failNext.Store(2)
	out, err := s.Save(ctx, down("a", t0), t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, Committed, out)
	assert.EqualValues(t, 4, b.puts.Load(), "1 initial + 3 attempts")
}

func TestSave_StatusChangeFailureSurfacesAndRetriesNextTick(t *testing.T) {
	ctx := context.Background()
	s, b := newStore(time.Hour)
	_, _ = s.Save(ctx, domain.NewMonitorState("a"), t0)

	b.failNext.Store(10)
	out, err := s.Save(ctx, down("a", t0), t0.Add(time.Minute))
	assert.Equal(t, Failed, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStoreWrite))

	cur, _ := s.Load(ctx, "a")
	assert.Equal(t, domain.StatusDown, cur.Status, "working copy keeps the transition")

	// still uncommitted, so the next save is treated as a status change
	b.failNext.Store(0)
	out, err = s.Save(ctx, cur, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, Committed, out)
}

func TestSave_ThrottledFailureIsNotRetried(t *testing.T) {
	ctx := context.Background()
	s, b := newStore(time.Minute)
	_, _ = s.Save(ctx, domain.NewMonitorState("a"), t0)

	b.failNext.Store(1)
	before := b.puts.Load()
	out, err := s.Save(ctx, domain.NewMonitorState("a"), t0.Add(2*time.Minute))
	assert.Equal(t, Failed, out)
	require.Error(t, err)
	assert.EqualValues(t, before+1, b.puts.Load())
}

func TestLoad_HydratesCommitBookkeeping(t *testing.T) {
	ctx := context.Background()
	b := &flakyBackend{Store: memory.New()}
	st := down("a", t0)
	st.LastPersistedAt = t0
	require.NoError(t, b.Store.PutState(ctx, st))

	s := New(b, 10*time.Minute, nil, WithRetryPolicy(noWait))
	cur, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDown, cur.Status)

	// same status as the hydrated record, inside its cooldown
	out, _ := s.Save(ctx, cur, t0.Add(time.Minute))
	assert.Equal(t, Dropped, out)
}

func TestWarm(t *testing.T) {
	ctx := context.Background()
	b := &flakyBackend{Store: memory.New()}
	require.NoError(t, b.Store.PutState(ctx, down("a", t0)))
	require.NoError(t, b.Store.PutState(ctx, domain.NewMonitorState("b")))

	s := New(b, time.Minute, nil)
	n, err := s.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	cur, _ := s.Load(ctx, "a")
	assert.Equal(t, domain.StatusDown, cur.Status)
}

func TestUpdate_SerializesPerMonitor(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Update(ctx, "a", t0, func(prev domain.MonitorState) domain.MonitorState {
				prev.ConsecutiveFailures++
				return prev
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	cur, _ := s.Load(ctx, "a")
	assert.Equal(t, 50, cur.ConsecutiveFailures)
}
