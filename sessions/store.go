package sessions

import (
	"encoding/json"
	"time"

	ierrors "github.com/jrsteele09/go-site-auth/internal/errors"
	"github.com/pkg/errors"
)

// Tier identifies one of the two persistence scopes.
type Tier string

const (
	// TierSession is short-lived state, lost when the client goes away.
	TierSession Tier = "session"
	// TierDurable survives restarts; used for remembered sessions.
	TierDurable Tier = "durable"
)

// ReadOrder is the fixed priority used to resolve ambiguity when both tiers
// hold a value. The session tier wins.
var ReadOrder = []Tier{TierSession, TierDurable}

// Store is the injected storage-tier interface. Implementations must be safe
// for concurrent use. Get returns ierrors.ErrNotFound when no value exists.
type Store interface {
	Get(tier Tier, key string) ([]byte, error)
	Set(tier Tier, key string, value []byte) error
	Remove(tier Tier, key string) error
}

// ReadRecord loads the record stored under key, applying tier priority and
// the integrity rules: an unparseable, CSRF-less, or expired record is
// silently removed from its tier and skipped. Returns ErrSessionNotFound
// when no tier yields a valid record.
func ReadRecord(store Store, key string, now time.Time) (*Record, Tier, error) {
	for _, tier := range ReadOrder {
		raw, err := store.Get(tier, key)
		if err != nil {
			if ierrors.Is(err, ierrors.ErrNotFound) {
				continue
			}
			return nil, "", errors.Wrap(err, "[ReadRecord] store.Get")
		}

		var record Record
		if err := json.Unmarshal(raw, &record); err != nil {
			_ = store.Remove(tier, key)
			continue
		}
		if record.Corrupt() || record.Expired(now) {
			_ = store.Remove(tier, key)
			continue
		}
		return &record, tier, nil
	}
	return nil, "", ierrors.ErrSessionNotFound
}

// WriteRecord persists the record to exactly one tier and clears the other,
// guaranteeing at most one live session per subsystem key.
func WriteRecord(store Store, tier Tier, key string, record *Record) error {
	record.Durable = tier == TierDurable
	raw, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "[WriteRecord] json.Marshal")
	}
	for _, other := range ReadOrder {
		if other != tier {
			_ = store.Remove(other, key)
		}
	}
	if err := store.Set(tier, key, raw); err != nil {
		return errors.Wrap(err, "[WriteRecord] store.Set")
	}
	return nil
}

// ClearRecord removes the record from both tiers. Idempotent.
func ClearRecord(store Store, key string) {
	for _, tier := range ReadOrder {
		_ = store.Remove(tier, key)
	}
}
