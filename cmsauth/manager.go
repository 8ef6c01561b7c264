// Package cmsauth gates the visual content editor. One of three providers
// is selected from build-time configuration and supplies the same operation
// set: filesystem (always valid, offline), repository token (validated
// against the source-control host through the token proxy), and cloud OAuth
// (provisional sessions completed by a redirect flow).
package cmsauth

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

const (
	origin       = "cmsauth"
	loginPurpose = "login"
)

// Config is the slice of build-time configuration the manager needs.
type Config interface {
	config.EnvConfig
	config.EditorConfig
	config.SecurityConfig
}

// Host is the remote capability checker. *githost.Client satisfies it.
type Host interface {
	VerifyWriteCapability(ctx context.Context, token, tokenDigest, repo, branch string) error
}

// Snapshot is the read model published to subscribers.
type Snapshot struct {
	Identity        *sessions.Identity
	IsAuthenticated bool
	IsLoading       bool
	Session         *sessions.Record
	Err             string
}

// Manager is the CMS session manager. Commands are serialized per
// subsystem; the revalidation timer only runs remote checks while a session
// exists.
type Manager struct {
	store    sessions.Store
	config   Config
	journal  *securitylog.Journal
	proxy    *tokenproxy.Proxy
	host     Host
	provider ProviderKind
	logger   zerolog.Logger
	nowTime  func() time.Time

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

// WithProvider overrides the selected provider (primarily for testing)
func WithProvider(kind ProviderKind) Option {
	return func(m *Manager) {
		m.provider = kind
	}
}

// New creates the CMS session manager. The provider is selected once, here.
func New(store sessions.Store, cfg Config, journal *securitylog.Journal, proxy *tokenproxy.Proxy, host Host, options ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[cmsauth.New] store is required")
	}
	if cfg == nil {
		return nil, errors.New("[cmsauth.New] config is required")
	}
	if journal == nil {
		return nil, errors.New("[cmsauth.New] journal is required")
	}
	if proxy == nil {
		return nil, errors.New("[cmsauth.New] token proxy is required")
	}
	if host == nil {
		return nil, errors.New("[cmsauth.New] host is required")
	}

	manager := &Manager{
		store:       store,
		config:      cfg,
		journal:     journal,
		proxy:       proxy,
		host:        host,
		logger:      zerolog.Nop(),
		nowTime:     time.Now,
		snapshot:    Snapshot{IsLoading: true},
		subscribers: make(map[int]func(Snapshot)),
	}
	for _, opt := range options {
		opt(manager)
	}
	if manager.provider == "" {
		manager.provider = SelectProvider(cfg)
	}
	return manager, nil
}

// Provider returns the provider selected for this process.
func (m *Manager) Provider() ProviderKind {
	return m.provider
}

// Login authenticates against the selected provider. candidateToken is only
// consulted by the repository-token provider.
func (m *Manager) Login(ctx context.Context, candidateToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.config.GetEditorEnabled() {
		err := errors.Wrap(ierrors.ErrConfiguration, "[Manager.Login] editor is disabled")
		m.publishLocked(m.unauthenticated(err.Error()))
		return err
	}

	switch m.provider {
	case ProviderFilesystem:
		return m.loginFilesystem()
	case ProviderCloudOAuth:
		return m.loginCloudOAuth()
	default:
		return m.loginRepositoryToken(ctx, candidateToken)
	}
}

func (m *Manager) loginFilesystem() error {
	record, err := m.createSession(sentinelLocalDevelopment)
	if err != nil {
		return err
	}
	m.journal.LogEvent("login_success", map[string]any{"provider": string(ProviderFilesystem)}, origin)
	m.publishLocked(Snapshot{Identity: &record.Identity, IsAuthenticated: true, Session: record})
	return nil
}

func (m *Manager) loginCloudOAuth() error {
	if m.config.GetCloudClientID() == "" || m.config.GetRepoPath() == "" {
		m.journal.LogEvent("login_misconfigured", map[string]any{"provider": string(ProviderCloudOAuth)}, origin)
		err := errors.Wrap(ierrors.ErrConfiguration, "[Manager.Login] cloud client id and repository are required")
		m.publishLocked(m.unauthenticated(err.Error()))
		return err
	}

	// The credential exchange itself happens in the redirect flow; the
	// session is provisional until that completes.
	record, err := m.createSession(sentinelCloudOAuth)
	if err != nil {
		return err
	}
	m.journal.LogEvent("login_success", map[string]any{"provider": string(ProviderCloudOAuth)}, origin)
	m.publishLocked(Snapshot{Identity: &record.Identity, IsAuthenticated: true, Session: record})
	return nil
}

func (m *Manager) loginRepositoryToken(ctx context.Context, candidateToken string) error {
	result := m.proxy.ValidateTokenSecurely(candidateToken, loginPurpose)
	if !result.Valid {
		m.journal.LogEvent("login_failure", map[string]any{"provider": string(ProviderRepositoryToken), "reason": result.Reason}, origin)
		// Wrong and malformed look identical to the caller
		err := errors.Wrap(ierrors.ErrInvalidCredentials, "[Manager.Login]")
		m.publishLocked(m.unauthenticated("invalid credentials"))
		return err
	}

	digest := tokenproxy.HashToken(candidateToken)
	if err := m.host.VerifyWriteCapability(ctx, candidateToken, digest, m.config.GetRepoPath(), m.config.GetRepoBranch()); err != nil {
		m.journal.LogEvent("login_failure", map[string]any{"provider": string(ProviderRepositoryToken)}, origin)
		m.publishLocked(m.unauthenticated(userMessage(err)))
		return errors.Wrap(err, "[Manager.Login] capability check")
	}

	record, err := m.createSession(digest)
	if err != nil {
		return err
	}
	m.journal.LogEvent("login_success", map[string]any{"provider": string(ProviderRepositoryToken)}, origin)
	m.publishLocked(Snapshot{Identity: &record.Identity, IsAuthenticated: true, Session: record})
	return nil
}

// Logout deletes the session and clears the proxy's validation budget so
// the next legitimate login is not penalized. Idempotent.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasAuthenticated := m.snapshot.IsAuthenticated
	sessions.ClearRecord(m.store, sessions.KeyEditorSession)
	m.proxy.ClearValidationAttempts(loginPurpose)
	if wasAuthenticated {
		m.journal.LogEvent("logout", nil, origin)
	}
	m.publishLocked(m.unauthenticated(""))
}

// ValidateSession checks the persisted session. Filesystem sessions are
// valid whenever present and unexpired. The other providers additionally
// require the stored secret reference to match the current build-time
// reference (detecting credential rotation) and, for repository tokens, a
// remote write-capability check. A definitive remote rejection destroys the
// session; a transient remote failure keeps it.
func (m *Manager) ValidateSession(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validateSessionLocked(ctx)
}

func (m *Manager) validateSessionLocked(ctx context.Context) bool {
	wasAuthenticated := m.snapshot.IsAuthenticated

	record, _, err := sessions.ReadRecord(m.store, sessions.KeyEditorSession, m.nowTime())
	if err != nil {
		if wasAuthenticated {
			m.journal.LogEvent("session_expired", nil, origin)
		}
		m.publishLocked(m.unauthenticated(""))
		return false
	}

	if record.SecretReference != referenceFor(m.provider, m.config) {
		// Stale session surviving a credential rotation
		sessions.ClearRecord(m.store, sessions.KeyEditorSession)
		m.journal.LogEvent("session_digest_mismatch", nil, origin)
		m.publishLocked(m.unauthenticated(""))
		return false
	}

	if m.provider == ProviderRepositoryToken {
		if ok := m.remoteCheckLocked(ctx, record); !ok {
			return false
		}
	}

	m.publishLocked(Snapshot{Identity: &record.Identity, IsAuthenticated: true, Session: record})
	return true
}

func (m *Manager) remoteCheckLocked(ctx context.Context, record *sessions.Record) bool {
	err := m.proxy.UseToken(func(token string) error {
		return m.host.VerifyWriteCapability(ctx, token, record.SecretReference, m.config.GetRepoPath(), m.config.GetRepoBranch())
	})
	if err == nil {
		return true
	}
	if ierrors.Is(err, ierrors.ErrRemoteUnavailable) || ierrors.Is(err, ierrors.ErrRateLimited) {
		// Transient: the session survives, the next tick retries
		m.logger.Warn().Err(err).Msg("editor revalidation deferred, remote unavailable")
		return true
	}

	sessions.ClearRecord(m.store, sessions.KeyEditorSession)
	m.journal.LogEvent("session_revoked", nil, origin)
	m.publishLocked(m.unauthenticated(userMessage(err)))
	return false
}

// Snapshot returns the current read model.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// Subscribe registers fn to be called on every published snapshot and
// returns an unsubscribe function. fn must not call back into the Manager.
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

// Start restores an existing session, silently auto-authenticates a fully
// configured cloud provider when nothing was restorable, and begins
// periodic revalidation. Revalidation idles while no session exists.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.stop != nil {
		m.mu.Unlock()
		return
	}
	m.stop = make(chan struct{})
	stop := m.stop

	restored := m.validateSessionLocked(ctx)
	if !restored && m.provider == ProviderCloudOAuth && m.config.GetCloudClientID() != "" && m.config.GetRepoPath() != "" {
		// The cloud provider's trust boundary is the redirect state, not
		// a user-entered secret, so one silent attempt is safe.
		_ = m.loginCloudOAuth()
	}
	m.mu.Unlock()

	go m.revalidateLoop(ctx, stop)
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

func (m *Manager) revalidateLoop(ctx context.Context, stop chan struct{}) {
	ticker := time.NewTicker(m.config.GetEditorRevalidateInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if !m.Snapshot().IsAuthenticated {
				// No session: skip the remote call entirely
				continue
			}
			m.ValidateSession(ctx)
		}
	}
}

func (m *Manager) createSession(secretReference string) (*sessions.Record, error) {
	csrfToken, err := m.proxy.GenerateCSRFToken()
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.createSession] csrf generation")
	}
	now := m.nowTime()
	record := &sessions.Record{
		ID:              uuid.New().String(),
		Identity:        identity.Editor(string(m.provider), m.config.GetRepoPath(), m.config.GetRepoBranch()),
		SecretReference: secretReference,
		CSRFToken:       csrfToken,
		CreatedAt:       now,
		ExpiresAt:       now.Add(m.config.GetSessionDuration()),
	}
	if err := sessions.WriteRecord(m.store, sessions.TierDurable, sessions.KeyEditorSession, record); err != nil {
		return nil, errors.Wrap(err, "[Manager.createSession] persist session")
	}
	return record, nil
}

// publishLocked stores the snapshot and notifies subscribers. Callers must
// hold m.mu.
func (m *Manager) publishLocked(snapshot Snapshot) {
	m.snapshot = snapshot
	for _, fn := range m.subscribers {
		fn(snapshot)
	}
}

func (m *Manager) unauthenticated(errMessage string) Snapshot {
	return Snapshot{Err: errMessage}
}

// userMessage maps an internal error to the message shown to the editor.
func userMessage(err error) string {
	switch {
	case ierrors.Is(err, ierrors.ErrInsufficientScope):
		return ierrors.ErrInsufficientScope.Error()
	case ierrors.Is(err, ierrors.ErrRateLimited):
		return "the content host is rate limiting requests, try again in a few minutes"
	case ierrors.Is(err, ierrors.ErrRemoteUnavailable):
		return "could not reach the content host, check your connection and retry"
	case ierrors.Is(err, ierrors.ErrRepositoryNotFound), ierrors.Is(err, ierrors.ErrBranchNotFound):
		return "the configured repository or branch is not accessible"
	case ierrors.Is(err, ierrors.ErrConfiguration):
		return ierrors.ErrConfiguration.Error()
	default:
		return "invalid credentials"
	}
}
