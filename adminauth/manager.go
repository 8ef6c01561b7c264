// Package adminauth gates the internal dashboard behind the single shared
// administrator password. The password itself is never configured: only a
// precomputed bcrypt digest is, and a missing digest fails every login
// closed.
package adminauth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-site-auth/identity"
	"github.com/jrsteele09/go-site-auth/internal/config"
	ierrors "github.com/jrsteele09/go-site-auth/internal/errors"
	"github.com/jrsteele09/go-site-auth/securitylog"
	"github.com/jrsteele09/go-site-auth/sessions"
	"github.com/jrsteele09/go-site-auth/tokenproxy"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const origin = "adminauth"

// Config is the slice of build-time configuration the manager needs.
type Config interface {
	config.AdminConfig
	config.SecurityConfig
}

// Snapshot is the read model published to subscribers. Err carries the last
// user-facing error message, or empty.
type Snapshot struct {
	Identity        *sessions.Identity
	IsAuthenticated bool
	IsLoading       bool
	Session         *sessions.Record
	Err             string
}

// Manager is the admin session manager: an observable store with login,
// logout and session-check commands. Commands are serialized; a second
// login cannot interleave with one still in flight.
type Manager struct {
	store   sessions.Store
	config  Config
	journal *securitylog.Journal
	proxy   *tokenproxy.Proxy
	guard   *lockoutGuard
	logger  zerolog.Logger
	nowTime func() time.Time

	mu          sync.Mutex
	snapshot    Snapshot
	subscribers map[int]func(Snapshot)
	nextSubID   int
	stop        chan struct{}
}

// Option modifies a Manager instance.
type Option func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithLogger attaches a zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// New creates the admin session manager.
func New(store sessions.Store, cfg Config, journal *securitylog.Journal, proxy *tokenproxy.Proxy, options ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[adminauth.New] store is required")
	}
	if cfg == nil {
		return nil, errors.New("[adminauth.New] config is required")
	}
	if journal == nil {
		return nil, errors.New("[adminauth.New] journal is required")
	}
	if proxy == nil {
		return nil, errors.New("[adminauth.New] token proxy is required")
	}

	manager := &Manager{
		store:       store,
		config:      cfg,
		journal:     journal,
		proxy:       proxy,
		logger:      zerolog.Nop(),
		nowTime:     time.Now,
		snapshot:    Snapshot{IsLoading: true},
		subscribers: make(map[int]func(Snapshot)),
	}
	for _, opt := range options {
		opt(manager)
	}
	manager.guard = newLockoutGuard(store, cfg.GetLockoutThreshold(), cfg.GetLockoutCooldown(), manager.nowTime)
	return manager, nil
}

// Login validates the shared password and creates a session. rememberMe
// selects the durable tier with a lifetime of RememberMultiplier times the
// base duration. The other tier is always cleared so at most one admin
// session is live.
func (m *Manager) Login(password string, rememberMe bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if remaining := m.guard.status(); remaining > 0 {
		m.journal.LogEvent("login_blocked", map[string]any{"remaining_seconds": int(remaining.Seconds())}, origin)
		err := errors.Wrapf(ierrors.ErrLockedOut, "[Manager.Login] try again in %s", remaining.Round(time.Second))
		m.publishLocked(m.failureLocked(err.Error()))
		return err
	}

	reference := m.config.GetAdminPasswordHash()
	if reference == "" {
		// Build misconfiguration: fail closed, never open
		m.logger.Error().Msg("admin password digest is not configured, refusing login")
		m.journal.LogEvent("login_misconfigured", nil, origin)
		err := errors.Wrap(ierrors.ErrConfiguration, "[Manager.Login] no password digest configured")
		m.publishLocked(m.unauthenticated(err.Error()))
		return err
	}

	if !identity.CheckPasswordHash(password, reference) {
		locked := m.guard.recordFailure()
		if locked {
			m.journal.LogEvent("lockout", map[string]any{"cooldown_seconds": int(m.config.GetLockoutCooldown().Seconds())}, origin)
			m.logger.Warn().Msg("admin login locked out after repeated failures")
		} else {
			m.journal.LogEvent("login_failure", nil, origin)
		}
		// Generic failure either way: no oracle about how close the guess was
		err := errors.Wrap(ierrors.ErrInvalidCredentials, "[Manager.Login]")
		m.publishLocked(m.failureLocked("invalid credentials"))
		return err
	}

	m.guard.reset()

	csrfToken, err := m.proxy.GenerateCSRFToken()
	if err != nil {
		return errors.Wrap(err, "[Manager.Login] csrf generation")
	}

	duration := m.config.GetSessionDuration()
	tier := sessions.TierSession
	if rememberMe {
		duration *= time.Duration(m.config.GetRememberMultiplier())
		tier = sessions.TierDurable
	}

	now := m.nowTime()
	record := &sessions.Record{
		ID:              uuid.New().String(),
		Identity:        identity.Admin(),
		SecretReference: reference,
		CSRFToken:       csrfToken,
		CreatedAt:       now,
		ExpiresAt:       now.Add(duration),
	}
	if err := sessions.WriteRecord(m.store, tier, sessions.KeyAdminSession, record); err != nil {
		return errors.Wrap(err, "[Manager.Login] persist session")
	}

	m.journal.LogEvent("login_success", map[string]any{"remember": rememberMe}, origin)
	m.publishLocked(Snapshot{
		Identity:        &record.Identity,
		IsAuthenticated: true,
		Session:         record,
	})
	return nil
}

// Logout deletes the session from both tiers. Idempotent.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasAuthenticated := m.snapshot.IsAuthenticated
	sessions.ClearRecord(m.store, sessions.KeyAdminSession)
	if wasAuthenticated {
		m.journal.LogEvent("logout", nil, origin)
	}
	m.publishLocked(m.unauthenticated(""))
}

// CheckSession reads the persisted session (session tier first), validates
// it, and publishes the result. Invalid or missing sessions publish a nil
// identity. Calling it twice with no state change publishes the same
// snapshot and journals nothing new.
func (m *Manager) CheckSession() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkSessionLocked()
}

func (m *Manager) checkSessionLocked() Snapshot {
	wasAuthenticated := m.snapshot.IsAuthenticated

	record, _, err := sessions.ReadRecord(m.store, sessions.KeyAdminSession, m.nowTime())
	if err != nil {
		if wasAuthenticated {
			m.journal.LogEvent("session_expired", nil, origin)
		}
		return m.publishLocked(m.unauthenticated(""))
	}

	// A rotated password digest invalidates sessions created before it
	if record.SecretReference != m.config.GetAdminPasswordHash() {
		sessions.ClearRecord(m.store, sessions.KeyAdminSession)
		m.journal.LogEvent("session_digest_mismatch", nil, origin)
		return m.publishLocked(m.unauthenticated(""))
	}

	return m.publishLocked(Snapshot{
		Identity:        &record.Identity,
		IsAuthenticated: true,
		Session:         record,
	})
}

// ForceRevalidate re-runs the session check outside the timer, used when
// the client regains foreground visibility.
func (m *Manager) ForceRevalidate() Snapshot {
	return m.CheckSession()
}

// Snapshot returns the current read model.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// Subscribe registers fn to be called on every published snapshot and
// returns an unsubscribe function.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// Start runs the first session check and begins background revalidation.
// The ticker stops when ctx is done or Close is called.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.stop != nil {
		m.mu.Unlock()
		return
	}
	m.stop = make(chan struct{})
	stop := m.stop
	m.checkSessionLocked()
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(m.config.GetAdminRevalidateInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				m.CheckSession()
			}
		}
	}()
}

// Close stops background revalidation.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}

// publishLocked stores the snapshot and notifies subscribers. Callers must
// hold m.mu.
func (m *Manager) publishLocked(snapshot Snapshot) Snapshot {
	m.snapshot = snapshot
	for _, fn := range m.subscribers {
		fn(snapshot)
	}
	return snapshot
}

func (m *Manager) unauthenticated(errMessage string) Snapshot {
	return Snapshot{Err: errMessage}
}

// failureLocked records a login failure in the read model without disturbing
// a session that is still live. A mistyped re-login must not report the
// dashboard as logged out.
func (m *Manager) failureLocked(errMessage string) Snapshot {
	snapshot := m.snapshot
	snapshot.Err = errMessage
	snapshot.IsLoading = false
	return snapshot
}
