package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestStateRepo_AddSweepsExpired tests that states from abandoned authorize
// flows are removed once their TTL passes, keeping the repo bounded
func TestStateRepo_AddSweepsExpired(t *testing.T) {
	repo := newStateRepo()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.nowTime = func() time.Time { return now }

	repo.Add("stale-one")
	repo.Add("stale-two")
	require.Len(t, repo.states, 2)

	now = now.Add(stateTTL + time.Minute)
	repo.Add("fresh")

	require.Len(t, repo.states, 1)
	require.False(t, repo.Consume("stale-one"))
	require.True(t, repo.Consume("fresh"))
}

// TestStateRepo_ConsumeExpired tests that a known but stale state is refused
func TestStateRepo_ConsumeExpired(t *testing.T) {
	repo := newStateRepo()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.nowTime = func() time.Time { return now }

	repo.Add("pending")

	now = now.Add(stateTTL + time.Second)
	require.False(t, repo.Consume("pending"))
}
