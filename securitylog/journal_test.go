package securitylog_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/jrsteele09/go-site-auth/securitylog"
	"github.com/jrsteele09/go-site-auth/sessions"
	"github.com/jrsteele09/go-site-auth/sessions/memstore"
	"github.com/stretchr/testify/require"
)

func newJournal(t *testing.T, store *memstore.Store, namespace string) *securitylog.Journal {
	t.Helper()

	journal, err := securitylog.New(store, namespace,
		securitylog.WithNowTime(func() time.Time {
			return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		}))
	require.NoError(t, err)
	return journal
}

// TestLogEvent tests namespacing and payload persistence
func TestLogEvent(t *testing.T) {
	store := memstore.New()
	journal := newJournal(t, store, "admin")

	journal.LogEvent("login_failure", map[string]any{"attempt": 3}, "adminauth")

	events := journal.Logs()
	require.Len(t, events, 1)
	require.Equal(t, "admin_login_failure", events[0].Name)
	require.Equal(t, "adminauth", events[0].Origin)
	require.EqualValues(t, 3, events[0].Payload["attempt"])
	require.False(t, events[0].Timestamp.IsZero())
}

// TestLogEvent_CapsAtFifty tests that the journal keeps only the newest
// entries
func TestLogEvent_CapsAtFifty(t *testing.T) {
	journal := newJournal(t, memstore.New(), "admin")

	for i := 0; i < 60; i++ {
		journal.LogEvent("event", map[string]any{"seq": i}, fmt.Sprintf("test-%d", i))
	}

	events := journal.Logs()
	require.Len(t, events, 50)
	require.EqualValues(t, 10, events[0].Payload["seq"], "oldest entries are dropped first")
	require.EqualValues(t, 59, events[len(events)-1].Payload["seq"])
}

// TestLogs_NamespaceIsolation tests that admin and cms journals never mix
func TestLogs_NamespaceIsolation(t *testing.T) {
	store := memstore.New()
	admin := newJournal(t, store, "admin")
	cms := newJournal(t, store, "cms")

	admin.LogEvent("login_success", nil, "adminauth")
	cms.LogEvent("login_failure", nil, "cmsauth")

	require.Len(t, admin.Logs(), 1)
	require.Len(t, cms.Logs(), 1)
	require.Equal(t, "admin_login_success", admin.Logs()[0].Name)
	require.Equal(t, "cms_login_failure", cms.Logs()[0].Name)
}

// TestLogs_EmptyJournal tests the missing-journal read
func TestLogs_EmptyJournal(t *testing.T) {
	journal := newJournal(t, memstore.New(), "admin")
	require.Empty(t, journal.Logs())
}

// TestLogEvent_SessionTier tests that the journal lives in the session tier
// and disappears with it
func TestLogEvent_SessionTier(t *testing.T) {
	store := memstore.New()
	journal := newJournal(t, store, "cms")
	journal.LogEvent("logout", nil, "cmsauth")

	_, err := store.Get(sessions.TierSession, sessions.KeyEditorEvents)
	require.NoError(t, err)

	store.ClearSessionTier()
	require.Empty(t, journal.Logs())
}
