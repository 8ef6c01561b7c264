// Package securitylog keeps a capped, append-only journal of
// authentication-relevant events. It is a diagnostics aid for the dashboard,
// not an audit trail of record: entries live in the session storage tier and
// are lost when the client goes away.
package securitylog

import (
	"encoding/json"
	"time"

	"github.com/jrsteele09/go-site-auth/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const maxEntries = 50

// Event is a single journal entry. Payload must never contain raw
// credentials.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Name      string         `json:"name"`
	Payload   map[string]any `json:"payload,omitempty"`
	Origin    string         `json:"origin"`
}

// Journal is a per-subsystem event log. Event names are prefixed with the
// subsystem namespace ("admin" or "cms").
type Journal struct {
	store     sessions.Store
	namespace string
	logger    zerolog.Logger
	nowTime   func() time.Time
}

// Option modifies a Journal instance.
type Option func(*Journal)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(j *Journal) {
		j.nowTime = nowFunc
	}
}

// WithLogger attaches a zerolog logger mirroring every journal entry.
func WithLogger(logger zerolog.Logger) Option {
	return func(j *Journal) {
		j.logger = logger
	}
}

// New creates a Journal persisting under the namespace's fixed storage key.
func New(store sessions.Store, namespace string, options ...Option) (*Journal, error) {
	if store == nil {
		return nil, errors.New("[securitylog.New] store is required")
	}
	if namespace == "" {
		return nil, errors.New("[securitylog.New] namespace is required")
	}

	journal := &Journal{
		store:     store,
		namespace: namespace,
		logger:    zerolog.Nop(),
		nowTime:   time.Now,
	}
	for _, opt := range options {
		opt(journal)
	}
	return journal, nil
}

// LogEvent appends an event, truncates the journal to the most recent 50
// entries, and persists it to the session tier. No remote transmission ever
// happens.
func (j *Journal) LogEvent(name string, payload map[string]any, origin string) {
	event := Event{
		Timestamp: j.nowTime(),
		Name:      j.namespace + "_" + name,
		Payload:   payload,
		Origin:    origin,
	}

	events := append(j.Logs(), event)
	if len(events) > maxEntries {
		events = events[len(events)-maxEntries:]
	}

	raw, err := json.Marshal(events)
	if err != nil {
		j.logger.Error().Err(err).Str("event", event.Name).Msg("failed to persist security event")
		return
	}
	if err := j.store.Set(sessions.TierSession, j.key(), raw); err != nil {
		j.logger.Error().Err(err).Str("event", event.Name).Msg("failed to persist security event")
		return
	}
	j.logger.Debug().Str("event", event.Name).Str("origin", origin).Msg("security event")
}

// Logs returns the journal's current entries, oldest first. A missing or
// unreadable journal yields an empty slice.
func (j *Journal) Logs() []Event {
	raw, err := j.store.Get(sessions.TierSession, j.key())
	if err != nil {
		return nil
	}
	var events []Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil
	}
	return events
}

func (j *Journal) key() string {
	return "security_events_" + j.namespace
}
