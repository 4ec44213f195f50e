package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	t.Setenv("APP_PASSWORD", "")
	t.Setenv("MAX_LOGIN_ATTEMPTS", "")
	t.Setenv("ACCOUNT_LOCK_SEC", "")
	t.Setenv("SESSION_TIMEOUT_SEC", "")
	t.Setenv("MAX_USERS", "")
	return NewAuthService()
}

func TestLoginSuccess(t *testing.T) {
	a := newTestAuthService(t)

	s, err := a.Login("test123", "10.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "10.0.0.1", s.ClientIP)

	got, ok := a.Validate(s.ID)
	require.True(t, ok)
	assert.Equal(t, s.ID, got.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	a := newTestAuthService(t)

	_, err := a.Login("nope", "10.0.0.1")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestLoginLockoutAfterMaxAttempts(t *testing.T) {
	a := newTestAuthService(t)
	base := time.Now()
	a.SetClock(func() time.Time { return base })

	for i := 0; i < 4; i++ {
		_, err := a.Login("nope", "10.0.0.1")
		assert.ErrorIs(t, err, ErrWrongPassword)
	}
	// Fifth failure trips the lockout.
	_, err := a.Login("nope", "10.0.0.1")
	assert.ErrorIs(t, err, ErrLockedOut)

	// Even the right password is refused while locked.
	_, err = a.Login("test123", "10.0.0.1")
	assert.ErrorIs(t, err, ErrLockedOut)

	// A different client is unaffected.
	_, err = a.Login("test123", "10.0.0.2")
	assert.NoError(t, err)

	// Lockout lapses after a minute.
	a.SetClock(func() time.Time { return base.Add(61 * time.Second) })
	_, err = a.Login("test123", "10.0.0.1")
	assert.NoError(t, err)
}

func TestLoginSuccessResetsFailureCount(t *testing.T) {
	a := newTestAuthService(t)

	for i := 0; i < 4; i++ {
		_, err := a.Login("nope", "10.0.0.1")
		require.ErrorIs(t, err, ErrWrongPassword)
	}
	_, err := a.Login("test123", "10.0.0.1")
	require.NoError(t, err)

	// The slate is clean: the next failure is attempt one, not five.
	_, err = a.Login("nope", "10.0.0.1")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestLogout(t *testing.T) {
	a := newTestAuthService(t)

	s, err := a.Login("test123", "10.0.0.1")
	require.NoError(t, err)

	require.NoError(t, a.Logout(s.ID))
	_, ok := a.Validate(s.ID)
	assert.False(t, ok)
	assert.Error(t, a.Logout(s.ID))
}

func TestSessionExpiry(t *testing.T) {
	a := newTestAuthService(t)
	base := time.Now()
	a.SetClock(func() time.Time { return base })

	s, err := a.Login("test123", "10.0.0.1")
	require.NoError(t, err)

	// Inside the TTL the session validates and slides forward.
	a.SetClock(func() time.Time { return base.Add(29 * time.Minute) })
	_, ok := a.Validate(s.ID)
	require.True(t, ok)

	// 29 more minutes later it is still alive thanks to the slide.
	a.SetClock(func() time.Time { return base.Add(58 * time.Minute) })
	_, ok = a.Validate(s.ID)
	require.True(t, ok)

	// A full TTL of silence expires it.
	a.SetClock(func() time.Time { return base.Add(98 * time.Minute) })
	_, ok = a.Validate(s.ID)
	assert.False(t, ok)
}

func TestPasswordFromEnv(t *testing.T) {
	t.Setenv("APP_PASSWORD", "hunter2")
	a := NewAuthService()

	_, err := a.Login("test123", "10.0.0.1")
	assert.ErrorIs(t, err, ErrWrongPassword)
	_, err = a.Login("hunter2", "10.0.0.1")
	assert.NoError(t, err)
}

func TestSweepLocksAgesOutStrayFailures(t *testing.T) {
	a := newTestAuthService(t)
	base := time.Now()
	a.SetClock(func() time.Time { return base })

	// Two stray mistypes, well short of the lockout threshold.
	_, err := a.Login("nope", "10.0.0.1")
	assert.ErrorIs(t, err, ErrWrongPassword)
	_, err = a.Login("nope", "10.0.0.2")
	assert.ErrorIs(t, err, ErrWrongPassword)

	// A sweep inside the lockout window keeps the counters alive.
	a.sweepLocks()
	a.mu.Lock()
	assert.Len(t, a.attempts, 2)
	a.mu.Unlock()

	// Another failure keeps one client fresh past the first window.
	a.SetClock(func() time.Time { return base.Add(45 * time.Second) })
	_, err = a.Login("nope", "10.0.0.2")
	assert.ErrorIs(t, err, ErrWrongPassword)

	// After the window lapses only the quiet client is dropped.
	a.SetClock(func() time.Time { return base.Add(70 * time.Second) })
	a.sweepLocks()
	a.mu.Lock()
	assert.Len(t, a.attempts, 1)
	_, kept := a.attempts["10.0.0.2"]
	a.mu.Unlock()
	assert.True(t, kept)

	// Once everyone goes quiet the map empties out.
	a.SetClock(func() time.Time { return base.Add(10 * time.Minute) })
	a.sweepLocks()
	a.mu.Lock()
	assert.Empty(t, a.attempts)
	a.mu.Unlock()
}
