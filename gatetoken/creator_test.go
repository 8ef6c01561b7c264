package gatetoken_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-site-auth/gatetoken"
	ierrors "github.com/jrsteele09/go-site-auth/internal/errors"
	"github.com/jrsteele09/go-site-auth/sessions"
	"github.com/stretchr/testify/require"
)

const testSecret = "gate-token-test-secret"

func testRecord(now time.Time) *sessions.Record {
	return &sessions.Record{
		ID:              "session-1",
		Identity:        sessions.Identity{Subject: "site-admin", Role: "admin"},
		SecretReference: "digest",
		CSRFToken:       "csrf",
		CreatedAt:       now,
		ExpiresAt:       now.Add(4 * time.Hour),
	}
}

func withFixedTime(t *testing.T, now time.Time) {
	t.Helper()

	original := gatetoken.NowTimeFunc
	t.Cleanup(func() { gatetoken.NowTimeFunc = original })
	gatetoken.NowTimeFunc = func() time.Time { return now }
}

// TestNew_RequiresSecret tests the fail-closed constructor
func TestNew_RequiresSecret(t *testing.T) {
	_, err := gatetoken.New("")
	require.True(t, ierrors.Is(err, ierrors.ErrConfiguration))
}

// TestMintAndVerify tests the round trip
func TestMintAndVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	withFixedTime(t, now)

	creator, err := gatetoken.New(testSecret)
	require.NoError(t, err)

	token, err := creator.Mint(testRecord(now))
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := creator.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "session-1", claims.SessionID)
	require.Equal(t, "site-admin", claims.Subject)
	require.Equal(t, "admin", claims.Role)
}

// TestVerify_Expired tests that a token dies after its TTL
func TestVerify_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	withFixedTime(t, now)

	creator, err := gatetoken.New(testSecret)
	require.NoError(t, err)
	token, err := creator.Mint(testRecord(now))
	require.NoError(t, err)

	gatetoken.NowTimeFunc = func() time.Time { return now.Add(16 * time.Minute) }

	_, err = creator.Verify(token)
	require.True(t, ierrors.Is(err, ierrors.ErrSessionInvalid))
}

// TestMint_CappedBySessionExpiry tests that the token never outlives the
// session it points at
func TestMint_CappedBySessionExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	withFixedTime(t, now)

	creator, err := gatetoken.New(testSecret)
	require.NoError(t, err)

	record := testRecord(now)
	record.ExpiresAt = now.Add(5 * time.Minute)
	token, err := creator.Mint(record)
	require.NoError(t, err)

	gatetoken.NowTimeFunc = func() time.Time { return now.Add(6 * time.Minute) }

	_, err = creator.Verify(token)
	require.True(t, ierrors.Is(err, ierrors.ErrSessionInvalid))
}

// TestVerify_WrongSecret tests signature enforcement
func TestVerify_WrongSecret(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	withFixedTime(t, now)

	creator, err := gatetoken.New(testSecret)
	require.NoError(t, err)
	token, err := creator.Mint(testRecord(now))
	require.NoError(t, err)

	other, err := gatetoken.New("a-different-secret")
	require.NoError(t, err)

	_, err = other.Verify(token)
	require.True(t, ierrors.Is(err, ierrors.ErrSessionInvalid))
}

// TestVerify_Garbage tests rejection of non-token input
func TestVerify_Garbage(t *testing.T) {
	creator, err := gatetoken.New(testSecret)
	require.NoError(t, err)

	_, err = creator.Verify("not-a-token")
	require.True(t, ierrors.Is(err, ierrors.ErrSessionInvalid))
}
