package auth

import (
	"crypto/subtle"
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"CreditProcess/internal/config"
	"CreditProcess/internal/logger"
	"CreditProcess/internal/serviceiface"
	"CreditProcess/internal/session"
)

var (
	// ErrLockedOut is returned while a client is inside its lockout window.
	ErrLockedOut = errors.New("too many failed attempts, try again shortly")
	// ErrWrongPassword is returned on a bad password outside a lockout.
	ErrWrongPassword = errors.New("incorrect password")
)

// lockState tracks failed attempts per client address.
type lockState struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

// AuthService runs the shared-password gate. One password guards the
// whole dashboard; sessions carry a sliding TTL and repeated failures
// lock the client address out for a minute.
type AuthService struct {
	password    string
	maxAttempts int
	lockFor     time.Duration
	sessions    *session.Manager
	attempts    map[string]*lockState
	mu          sync.Mutex
	now         func() time.Time
	stopCh      chan struct{}
	cleanEvery  time.Duration
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// NewAuthService builds the gate from the environment: APP_PASSWORD,
// SESSION_TIMEOUT_SEC, MAX_LOGIN_ATTEMPTS, ACCOUNT_LOCK_SEC, MAX_USERS.
func NewAuthService() *AuthService {
	password := os.Getenv("APP_PASSWORD")
	if password == "" {
		password = "test123"
	}
	ttl := time.Duration(envInt("SESSION_TIMEOUT_SEC", config.DefaultSessionTimeoutSec)) * time.Second
	maxUsers := envInt("MAX_USERS", config.DefaultMaxUsers)
	return &AuthService{
		password:    password,
		maxAttempts: envInt("MAX_LOGIN_ATTEMPTS", config.DefaultMaxLoginAttempts),
		lockFor:     time.Duration(envInt("ACCOUNT_LOCK_SEC", config.DefaultAccountLockSec)) * time.Second,
		sessions:    session.NewManager(ttl, maxUsers),
		attempts:    make(map[string]*lockState),
		now:         time.Now,
		stopCh:      make(chan struct{}),
		cleanEvery:  time.Duration(config.DefaultSessionCleanerPeriod) * time.Second,
	}
}

func (a *AuthService) Name() string { return "auth" }

func (a *AuthService) Start() error {
	go a.sessionCleaner()
	return nil
}

func (a *AuthService) Stop() error {
	close(a.stopCh)
	return nil
}

// SetClock overrides the time source, for tests.
func (a *AuthService) SetClock(now func() time.Time) {
	a.mu.Lock()
	a.now = now
	a.mu.Unlock()
	a.sessions.SetClock(now)
}

// Login checks the shared password for one client address. The lockout
// check runs before the password check, so a locked client learns
// nothing about its guesses. Hitting the attempt cap starts the lockout
// and resets the counter; success resets it too.
func (a *AuthService) Login(password, clientIP string) (*session.Session, error) {
	a.mu.Lock()
	now := a.now()
	st := a.attempts[clientIP]
	if st != nil && now.Before(st.lockedUntil) {
		a.mu.Unlock()
		return nil, ErrLockedOut
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) != 1 {
		if st == nil {
			st = &lockState{}
			a.attempts[clientIP] = st
		}
		st.failures++
		st.lastFailure = now
		if st.failures >= a.maxAttempts {
			st.lockedUntil = now.Add(a.lockFor)
			st.failures = 0
			a.mu.Unlock()
			logger.Auditf("Login lockout for %s", clientIP)
			return nil, ErrLockedOut
		}
		a.mu.Unlock()
		return nil, ErrWrongPassword
	}

	delete(a.attempts, clientIP)
	a.mu.Unlock()

	s, err := a.sessions.Create(clientIP)
	if err != nil {
		return nil, err
	}
	logger.Auditf("Login from %s, session %s", clientIP, s.ID)
	return s, nil
}

// Logout drops a session.
func (a *AuthService) Logout(sessionID string) error {
	if !a.sessions.Delete(sessionID) {
		return errors.New("session not found")
	}
	logger.Auditf("Logout, session %s", sessionID)
	return nil
}

// Validate checks a session id and slides its TTL forward.
func (a *AuthService) Validate(sessionID string) (*session.Session, bool) {
	return a.sessions.Touch(sessionID)
}

// ActiveSessions returns a snapshot of the live sessions.
func (a *AuthService) ActiveSessions() []*session.Session {
	return a.sessions.All()
}

func (a *AuthService) sessionCleaner() {
	ticker := time.NewTicker(a.cleanEvery)
	defer ticker.Stop()
	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			if n := a.sessions.Sweep(); n > 0 {
				logger.Auditf("Session cleaner evicted %d expired sessions", n)
			}
			a.sweepLocks()
		}
	}
}

// sweepLocks drops attempt counters that have gone quiet: any entry
// whose lockout has lapsed and whose last failure is older than the
// lockout window, so stray mistypes do not accumulate forever.
func (a *AuthService) sweepLocks() {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	for ip, st := range a.attempts {
		if now.After(st.lockedUntil) && now.Sub(st.lastFailure) > a.lockFor {
			delete(a.attempts, ip)
		}
	}
}

var globalAuthService *AuthService

// SetGlobalAuthService sets the global AuthService instance
func SetGlobalAuthService(svc *AuthService) {
	globalAuthService = svc
}

// ValidateSession validates a session id against the global service.
func ValidateSession(sessionID string) (*session.Session, bool) {
	if globalAuthService == nil {
		return nil, false
	}
	return globalAuthService.Validate(sessionID)
}

var _ serviceiface.Service = (*AuthService)(nil)
