package adminauth

import (
	"encoding/json"
	"time"

	"github.com/jrsteele09/go-site-auth/internal/utils"
	"github.com/jrsteele09/go-site-auth/sessions"
)

// lockoutRecord throttles repeated failed logins. It is persisted to the
// durable tier so a restart does not reset an active cooldown.
type lockoutRecord struct {
	AttemptCount int        `json:"attempt_count"`
	LockedUntil  *time.Time `json:"locked_until,omitempty"`
	LastAttempt  time.Time  `json:"last_attempt"` // retained for audit
}

// lockoutGuard owns the lockout record for the admin subsystem.
type lockoutGuard struct {
	store     sessions.Store
	threshold int
	cooldown  time.Duration
	nowTime   func() time.Time
}

func newLockoutGuard(store sessions.Store, threshold int, cooldown time.Duration, nowTime func() time.Time) *lockoutGuard {
	return &lockoutGuard{
		store:     store,
		threshold: threshold,
		cooldown:  cooldown,
		nowTime:   nowTime,
	}
}

// status returns the remaining cooldown, or zero when attempts are allowed.
// An elapsed cooldown resets the attempt counter.
func (g *lockoutGuard) status() time.Duration {
	record := g.load()
	if record.LockedUntil == nil {
		return 0
	}
	now := g.nowTime()
	if now.Before(*record.LockedUntil) {
		return record.LockedUntil.Sub(now)
	}
	// Cooldown elapsed: the counter starts over
	g.save(lockoutRecord{LastAttempt: record.LastAttempt})
	return 0
}

// recordFailure increments the counter and arms the cooldown once the
// threshold is reached. Returns true when this failure triggered a lockout.
func (g *lockoutGuard) recordFailure() bool {
	record := g.load()
	record.AttemptCount++
	record.LastAttempt = g.nowTime()

	locked := record.AttemptCount >= g.threshold
	if locked {
		record.LockedUntil = utils.Ptr(g.nowTime().Add(g.cooldown))
	}
	g.save(record)
	return locked
}

// reset clears the counter and cooldown after a successful login.
func (g *lockoutGuard) reset() {
	g.save(lockoutRecord{LastAttempt: g.nowTime()})
}

func (g *lockoutGuard) load() lockoutRecord {
	raw, err := g.store.Get(sessions.TierDurable, sessions.KeyAdminLockout)
	if err != nil {
		return lockoutRecord{}
	}
	var record lockoutRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return lockoutRecord{}
	}
	return record
}

func (g *lockoutGuard) save(record lockoutRecord) {
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	_ = g.store.Set(sessions.TierDurable, sessions.KeyAdminLockout, raw)
}
