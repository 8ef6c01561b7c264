package adminauth_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jrsteele09/go-site-auth/adminauth"
	"github.com/jrsteele09/go-site-auth/identity"
	"github.com/jrsteele09/go-site-auth/internal/config"
	ierrors "github.com/jrsteele09/go-site-auth/internal/errors"
	"github.com/jrsteele09/go-site-auth/securitylog"
	"github.com/jrsteele09/go-site-auth/sessions"
	"github.com/jrsteele09/go-site-auth/sessions/memstore"
	"github.com/jrsteele09/go-site-auth/tokenproxy"
	"github.com/stretchr/testify/require"
)

const (
	testPassword      = "correct-horse-battery"
	testWrongPassword = "not-the-password"
)

// testConfig satisfies adminauth.Config with a settable password digest.
type testConfig struct {
	config.Security
	passwordHash string
}

func (c *testConfig) GetAdminPasswordHash() string {
	return c.passwordHash
}

// testFixture holds all test dependencies
type testFixture struct {
	store   *memstore.Store
	cfg     *testConfig
	journal *securitylog.Journal
	manager *adminauth.Manager
	now     time.Time
}

// setupTestFixture creates a manager with a known password digest and a
// controllable clock.
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	passwordHash, err := identity.HashPassword(testPassword)
	require.NoError(t, err)

	f := &testFixture{
		store: memstore.New(),
		cfg:   &testConfig{passwordHash: passwordHash},
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	nowFunc := func() time.Time { return f.now }

	f.journal, err = securitylog.New(f.store, "admin", securitylog.WithNowTime(nowFunc))
	require.NoError(t, err)

	proxy, err := tokenproxy.New(config.Editor{})
	require.NoError(t, err)

	f.manager, err = adminauth.New(f.store, f.cfg, f.journal, proxy, adminauth.WithNowTime(nowFunc))
	require.NoError(t, err)

	return f
}

// eventNames returns the journal's event names in order.
func (f *testFixture) eventNames() []string {
	events := f.journal.Logs()
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.Name)
	}
	return names
}

// storeRecord writes a raw record directly into one tier, bypassing the
// single-tier guarantee of a normal login.
func (f *testFixture) storeRecord(t *testing.T, tier sessions.Tier, record sessions.Record) {
	t.Helper()

	raw, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, f.store.Set(tier, sessions.KeyAdminSession, raw))
}

func validRecord(f *testFixture, subject string) sessions.Record {
	return sessions.Record{
		ID:              "test-" + subject,
		Identity:        sessions.Identity{Subject: subject, Role: "admin"},
		SecretReference: f.cfg.passwordHash,
		CSRFToken:       "csrf-" + subject,
		CreatedAt:       f.now,
		ExpiresAt:       f.now.Add(time.Hour),
	}
}

// TestLogin_Success tests a correct password creating a session-tier record
func TestLogin_Success(t *testing.T) {
	f := setupTestFixture(t)

	err := f.manager.Login(testPassword, false)
	require.NoError(t, err)

	snapshot := f.manager.Snapshot()
	require.True(t, snapshot.IsAuthenticated)
	require.NotNil(t, snapshot.Identity)
	require.Equal(t, "site-admin", snapshot.Identity.Subject)
	require.Equal(t, f.cfg.passwordHash, snapshot.Session.SecretReference)
	require.NotEmpty(t, snapshot.Session.CSRFToken)
	require.False(t, snapshot.Session.Durable)
	require.Equal(t, f.now.Add(4*time.Hour), snapshot.Session.ExpiresAt)

	_, tier, err := sessions.ReadRecord(f.store, sessions.KeyAdminSession, f.now)
	require.NoError(t, err)
	require.Equal(t, sessions.TierSession, tier)
	require.Contains(t, f.eventNames(), "admin_login_success")
}

// TestLogin_RememberMe tests that remember-me extends the lifetime and
// selects the durable tier
func TestLogin_RememberMe(t *testing.T) {
	f := setupTestFixture(t)

	err := f.manager.Login(testPassword, true)
	require.NoError(t, err)

	snapshot := f.manager.Snapshot()
	require.True(t, snapshot.Session.Durable)
	require.Equal(t, f.now.Add(24*time.Hour), snapshot.Session.ExpiresAt)

	_, tier, err := sessions.ReadRecord(f.store, sessions.KeyAdminSession, f.now)
	require.NoError(t, err)
	require.Equal(t, sessions.TierDurable, tier)
}

// TestLogin_WrongPassword tests the generic failure path
func TestLogin_WrongPassword(t *testing.T) {
	f := setupTestFixture(t)

	err := f.manager.Login(testWrongPassword, false)

	require.Error(t, err)
	require.True(t, ierrors.Is(err, ierrors.ErrInvalidCredentials))
	require.Equal(t, "invalid credentials", f.manager.Snapshot().Err)
	require.Contains(t, f.eventNames(), "admin_login_failure")
}

// TestLogin_MissingDigestFailsClosed tests that an unconfigured digest
// refuses every password rather than accepting any
func TestLogin_MissingDigestFailsClosed(t *testing.T) {
	f := setupTestFixture(t)
	f.cfg.passwordHash = ""

	err := f.manager.Login(testPassword, false)

	require.Error(t, err)
	require.True(t, ierrors.Is(err, ierrors.ErrConfiguration))
	require.False(t, f.manager.Snapshot().IsAuthenticated)
	require.Contains(t, f.eventNames(), "admin_login_misconfigured")
}

// TestLogin_LockoutAfterThreshold tests that five failures trigger a
// cooldown that blocks even the correct password
func TestLogin_LockoutAfterThreshold(t *testing.T) {
	f := setupTestFixture(t)

	for i := 0; i < 5; i++ {
		err := f.manager.Login(testWrongPassword, false)
		require.True(t, ierrors.Is(err, ierrors.ErrInvalidCredentials))
	}
	require.Contains(t, f.eventNames(), "admin_lockout")

	err := f.manager.Login(testPassword, false)
	require.True(t, ierrors.Is(err, ierrors.ErrLockedOut))
	require.False(t, f.manager.Snapshot().IsAuthenticated)
}

// TestLogin_LockoutCooldownExpires tests that the counter starts over once
// the cooldown has elapsed
func TestLogin_LockoutCooldownExpires(t *testing.T) {
	f := setupTestFixture(t)

	for i := 0; i < 5; i++ {
		_ = f.manager.Login(testWrongPassword, false)
	}
	require.True(t, ierrors.Is(f.manager.Login(testPassword, false), ierrors.ErrLockedOut))

	f.now = f.now.Add(16 * time.Minute)

	err := f.manager.Login(testPassword, false)
	require.NoError(t, err)
	require.True(t, f.manager.Snapshot().IsAuthenticated)
}

// TestLogin_SuccessResetsFailureCounter tests that failures do not
// accumulate across a successful login
func TestLogin_SuccessResetsFailureCounter(t *testing.T) {
	f := setupTestFixture(t)

	for i := 0; i < 4; i++ {
		_ = f.manager.Login(testWrongPassword, false)
	}
	require.NoError(t, f.manager.Login(testPassword, false))

	// Four more failures would lock out if the counter had survived
	for i := 0; i < 4; i++ {
		err := f.manager.Login(testWrongPassword, false)
		require.True(t, ierrors.Is(err, ierrors.ErrInvalidCredentials))
	}
	require.NoError(t, f.manager.Login(testPassword, false))
}

// TestLogin_FailureKeepsLiveSession tests that a mistyped re-login leaves
// the existing session in the read model, carrying only the error message
func TestLogin_FailureKeepsLiveSession(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.manager.Login(testPassword, false))
	sessionID := f.manager.Snapshot().Session.ID

	err := f.manager.Login(testWrongPassword, false)
	require.ErrorIs(t, err, ierrors.ErrInvalidCredentials)

	snapshot := f.manager.Snapshot()
	require.True(t, snapshot.IsAuthenticated)
	require.NotNil(t, snapshot.Session)
	require.Equal(t, sessionID, snapshot.Session.ID)
	require.Equal(t, "invalid credentials", snapshot.Err)
}

// TestLogin_LockoutKeepsLiveSession tests that a lockout triggered by
// repeated failures does not evict the current session from the read model
func TestLogin_LockoutKeepsLiveSession(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.manager.Login(testPassword, false))
	sessionID := f.manager.Snapshot().Session.ID

	for i := 0; i < 5; i++ {
		err := f.manager.Login(testWrongPassword, false)
		require.ErrorIs(t, err, ierrors.ErrInvalidCredentials)
	}

	err := f.manager.Login(testPassword, false)
	require.ErrorIs(t, err, ierrors.ErrLockedOut)

	snapshot := f.manager.Snapshot()
	require.True(t, snapshot.IsAuthenticated)
	require.Equal(t, sessionID, snapshot.Session.ID)
	require.NotEmpty(t, snapshot.Err)
}

// TestLockout_SurvivesRestart tests that an active cooldown persists in the
// durable tier across a new manager instance
func TestLockout_SurvivesRestart(t *testing.T) {
	f := setupTestFixture(t)

	for i := 0; i < 5; i++ {
		_ = f.manager.Login(testWrongPassword, false)
	}

	proxy, err := tokenproxy.New(config.Editor{})
	require.NoError(t, err)
	restarted, err := adminauth.New(f.store, f.cfg, f.journal, proxy, adminauth.WithNowTime(func() time.Time { return f.now }))
	require.NoError(t, err)

	err = restarted.Login(testPassword, false)
	require.True(t, ierrors.Is(err, ierrors.ErrLockedOut))
}

// TestLogout_ClearsBothTiers tests logout idempotency
func TestLogout_ClearsBothTiers(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(testPassword, true))

	f.manager.Logout()

	require.False(t, f.manager.Snapshot().IsAuthenticated)
	_, _, err := sessions.ReadRecord(f.store, sessions.KeyAdminSession, f.now)
	require.True(t, ierrors.Is(err, ierrors.ErrSessionNotFound))
	require.Contains(t, f.eventNames(), "admin_logout")

	// A second logout changes nothing and journals nothing new
	before := len(f.journal.Logs())
	f.manager.Logout()
	require.Len(t, f.journal.Logs(), before)
}

// TestCheckSession_RestoresPersistedSession tests restoration from storage
func TestCheckSession_RestoresPersistedSession(t *testing.T) {
	f := setupTestFixture(t)
	f.storeRecord(t, sessions.TierDurable, validRecord(f, "restored"))

	snapshot := f.manager.CheckSession()

	require.True(t, snapshot.IsAuthenticated)
	require.Equal(t, "restored", snapshot.Identity.Subject)
}

// TestCheckSession_SessionTierWins tests read priority when both tiers hold
// a record
func TestCheckSession_SessionTierWins(t *testing.T) {
	f := setupTestFixture(t)
	f.storeRecord(t, sessions.TierDurable, validRecord(f, "durable-user"))
	f.storeRecord(t, sessions.TierSession, validRecord(f, "session-user"))

	snapshot := f.manager.CheckSession()

	require.True(t, snapshot.IsAuthenticated)
	require.Equal(t, "session-user", snapshot.Identity.Subject)
}

// TestCheckSession_DiscardsCorruptRecord tests that a record without a CSRF
// token is treated as absent and removed
func TestCheckSession_DiscardsCorruptRecord(t *testing.T) {
	f := setupTestFixture(t)
	record := validRecord(f, "no-csrf")
	record.CSRFToken = ""
	f.storeRecord(t, sessions.TierSession, record)

	snapshot := f.manager.CheckSession()

	require.False(t, snapshot.IsAuthenticated)
	_, err := f.store.Get(sessions.TierSession, sessions.KeyAdminSession)
	require.True(t, ierrors.Is(err, ierrors.ErrNotFound))
}

// TestCheckSession_Expiry tests that an aged-out session unauthenticates and
// journals the transition once
func TestCheckSession_Expiry(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(testPassword, false))

	f.now = f.now.Add(5 * time.Hour)

	snapshot := f.manager.CheckSession()
	require.False(t, snapshot.IsAuthenticated)
	require.Contains(t, f.eventNames(), "admin_session_expired")

	// Only the authenticated-to-absent transition journals
	expiredBefore := countEvents(f, "admin_session_expired")
	f.manager.CheckSession()
	require.Equal(t, expiredBefore, countEvents(f, "admin_session_expired"))
}

// TestCheckSession_DigestRotation tests that rotating the password digest
// invalidates sessions created before it
func TestCheckSession_DigestRotation(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(testPassword, true))

	rotated, err := identity.HashPassword("a-new-password")
	require.NoError(t, err)
	f.cfg.passwordHash = rotated

	snapshot := f.manager.CheckSession()

	require.False(t, snapshot.IsAuthenticated)
	require.Contains(t, f.eventNames(), "admin_session_digest_mismatch")
	_, _, err = sessions.ReadRecord(f.store, sessions.KeyAdminSession, f.now)
	require.True(t, ierrors.Is(err, ierrors.ErrSessionNotFound))
}

// TestCheckSession_Idempotent tests that repeating the check with no state
// change publishes the same snapshot and journals nothing new
func TestCheckSession_Idempotent(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(testPassword, false))

	first := f.manager.CheckSession()
	before := len(f.journal.Logs())
	second := f.manager.CheckSession()

	require.Equal(t, first.IsAuthenticated, second.IsAuthenticated)
	require.Equal(t, first.Session.ID, second.Session.ID)
	require.Len(t, f.journal.Logs(), before)
}

// TestLogin_ReplacesOtherTier tests that a login always leaves at most one
// live admin session
func TestLogin_ReplacesOtherTier(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(testPassword, true))
	require.NoError(t, f.manager.Login(testPassword, false))

	_, err := f.store.Get(sessions.TierDurable, sessions.KeyAdminSession)
	require.True(t, ierrors.Is(err, ierrors.ErrNotFound))
	_, tier, err := sessions.ReadRecord(f.store, sessions.KeyAdminSession, f.now)
	require.NoError(t, err)
	require.Equal(t, sessions.TierSession, tier)
}

// TestSubscribe_ReceivesSnapshots tests subscription and unsubscription
func TestSubscribe_ReceivesSnapshots(t *testing.T) {
	f := setupTestFixture(t)

	var received []adminauth.Snapshot
	unsubscribe := f.manager.Subscribe(func(s adminauth.Snapshot) {
		received = append(received, s)
	})

	require.NoError(t, f.manager.Login(testPassword, false))
	require.NotEmpty(t, received)
	require.True(t, received[len(received)-1].IsAuthenticated)

	unsubscribe()
	count := len(received)
	f.manager.Logout()
	require.Len(t, received, count)
}

func countEvents(f *testFixture, name string) int {
	count := 0
	for _, n := range f.eventNames() {
		if n == name {
			count++
		}
	}
	return count
}
