package jobs

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CreditProcess/internal/reminders"
)

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker(2, 50*time.Millisecond)
	boom := errors.New("boom")

	assert.Error(t, cb.Execute(func() error { return boom }))
	assert.Error(t, cb.Execute(func() error { return boom }))

	// Open: calls are refused without running fn.
	ran := false
	err := cb.Execute(func() error { ran = true; return nil })
	assert.Error(t, err)
	assert.False(t, ran)

	// After the reset timeout the breaker half-opens and a success closes it.
	time.Sleep(60 * time.Millisecond)
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.NoError(t, cb.Execute(func() error { return nil }))
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = RetryWithBackoff(1, time.Millisecond, func() error {
		calls++
		return errors.New("always")
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func newTestReminderStore(t *testing.T) *reminders.Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s, err := reminders.NewStore(db)
	require.NoError(t, err)
	return s
}

func TestReminderSweepNotifiesOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestReminderStore(t)

	base := time.Now().Add(-time.Hour)
	s.SetClock(func() time.Time { return base })
	due, err := s.Add(ctx, "T-1", "chase billing", base.Add(time.Minute))
	require.NoError(t, err)

	sweep := NewReminderSweep(s, nil)

	require.NoError(t, sweep.Run(ctx))
	_, seen := sweep.notified[due.ID]
	assert.True(t, seen)

	// A second sweep does not re-notify a still-pending reminder.
	require.NoError(t, sweep.Run(ctx))
	assert.Len(t, sweep.notified, 1)

	// Dismissing it drops the bookkeeping on the next sweep.
	require.NoError(t, s.MarkDone(ctx, due.ID))
	require.NoError(t, sweep.Run(ctx))
	assert.Empty(t, sweep.notified)
}
