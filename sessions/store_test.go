package sessions_test

import (
	"encoding/json"
	"testing"
	"time"

	ierrors "github.com/jrsteele09/go-site-auth/internal/errors"
	"github.com/jrsteele09/go-site-auth/sessions"
	"github.com/jrsteele09/go-site-auth/sessions/memstore"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRecord(subject string) *sessions.Record {
	return &sessions.Record{
		ID:              "session-" + subject,
		Identity:        sessions.Identity{Subject: subject},
		SecretReference: "digest-" + subject,
		CSRFToken:       "csrf-" + subject,
		CreatedAt:       testNow,
		ExpiresAt:       testNow.Add(time.Hour),
	}
}

func setRaw(t *testing.T, store sessions.Store, tier sessions.Tier, record *sessions.Record) {
	t.Helper()

	raw, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, store.Set(tier, sessions.KeyAdminSession, raw))
}

// TestWriteRecord_SingleTier tests that a write clears the other tier
func TestWriteRecord_SingleTier(t *testing.T) {
	store := memstore.New()
	setRaw(t, store, sessions.TierSession, testRecord("old"))

	err := sessions.WriteRecord(store, sessions.TierDurable, sessions.KeyAdminSession, testRecord("new"))
	require.NoError(t, err)

	_, err = store.Get(sessions.TierSession, sessions.KeyAdminSession)
	require.True(t, ierrors.Is(err, ierrors.ErrNotFound))

	record, tier, err := sessions.ReadRecord(store, sessions.KeyAdminSession, testNow)
	require.NoError(t, err)
	require.Equal(t, sessions.TierDurable, tier)
	require.Equal(t, "new", record.Identity.Subject)
	require.True(t, record.Durable)
}

// TestReadRecord_SessionTierPriority tests the fixed read order
func TestReadRecord_SessionTierPriority(t *testing.T) {
	store := memstore.New()
	setRaw(t, store, sessions.TierDurable, testRecord("durable"))
	setRaw(t, store, sessions.TierSession, testRecord("session"))

	record, tier, err := sessions.ReadRecord(store, sessions.KeyAdminSession, testNow)

	require.NoError(t, err)
	require.Equal(t, sessions.TierSession, tier)
	require.Equal(t, "session", record.Identity.Subject)
}

// TestReadRecord_FallsThroughExpired tests that an expired session-tier
// record is removed and the durable tier still serves
func TestReadRecord_FallsThroughExpired(t *testing.T) {
	store := memstore.New()
	expired := testRecord("expired")
	expired.ExpiresAt = testNow.Add(-time.Minute)
	setRaw(t, store, sessions.TierSession, expired)
	setRaw(t, store, sessions.TierDurable, testRecord("durable"))

	record, tier, err := sessions.ReadRecord(store, sessions.KeyAdminSession, testNow)

	require.NoError(t, err)
	require.Equal(t, sessions.TierDurable, tier)
	require.Equal(t, "durable", record.Identity.Subject)

	_, err = store.Get(sessions.TierSession, sessions.KeyAdminSession)
	require.True(t, ierrors.Is(err, ierrors.ErrNotFound), "expired record is removed from its tier")
}

// TestReadRecord_ExpiryBoundary tests that a record expires exactly at
// ExpiresAt, not after it
func TestReadRecord_ExpiryBoundary(t *testing.T) {
	store := memstore.New()
	record := testRecord("boundary")
	setRaw(t, store, sessions.TierSession, record)

	_, _, err := sessions.ReadRecord(store, sessions.KeyAdminSession, record.ExpiresAt)
	require.True(t, ierrors.Is(err, ierrors.ErrSessionNotFound))
}

// TestReadRecord_DiscardsCorrupt tests removal of unparseable and CSRF-less
// records
func TestReadRecord_DiscardsCorrupt(t *testing.T) {
	t.Run("unparseable json", func(t *testing.T) {
		store := memstore.New()
		require.NoError(t, store.Set(sessions.TierSession, sessions.KeyAdminSession, []byte("{not json")))

		_, _, err := sessions.ReadRecord(store, sessions.KeyAdminSession, testNow)
		require.True(t, ierrors.Is(err, ierrors.ErrSessionNotFound))

		_, err = store.Get(sessions.TierSession, sessions.KeyAdminSession)
		require.True(t, ierrors.Is(err, ierrors.ErrNotFound))
	})

	t.Run("missing csrf token", func(t *testing.T) {
		store := memstore.New()
		record := testRecord("no-csrf")
		record.CSRFToken = ""
		setRaw(t, store, sessions.TierSession, record)

		_, _, err := sessions.ReadRecord(store, sessions.KeyAdminSession, testNow)
		require.True(t, ierrors.Is(err, ierrors.ErrSessionNotFound))
	})
}

// TestReadRecord_NotFound tests the empty-store read
func TestReadRecord_NotFound(t *testing.T) {
	_, _, err := sessions.ReadRecord(memstore.New(), sessions.KeyAdminSession, testNow)
	require.True(t, ierrors.Is(err, ierrors.ErrSessionNotFound))
}

// TestClearRecord tests removal from both tiers
func TestClearRecord(t *testing.T) {
	store := memstore.New()
	setRaw(t, store, sessions.TierSession, testRecord("a"))
	setRaw(t, store, sessions.TierDurable, testRecord("b"))

	sessions.ClearRecord(store, sessions.KeyAdminSession)

	_, _, err := sessions.ReadRecord(store, sessions.KeyAdminSession, testNow)
	require.True(t, ierrors.Is(err, ierrors.ErrSessionNotFound))

	// Clearing again is a no-op
	sessions.ClearRecord(store, sessions.KeyAdminSession)
}

// TestIdentity_HasPermission tests the permission lookup
func TestIdentity_HasPermission(t *testing.T) {
	id := sessions.Identity{Permissions: []string{"view_dashboard", "view_logs"}}

	require.True(t, id.HasPermission("view_logs"))
	require.False(t, id.HasPermission("manage_posts"))
	require.False(t, sessions.Identity{}.HasPermission("view_logs"))
}
