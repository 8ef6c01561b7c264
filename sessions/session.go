package sessions

import (
	"time"
)

// Record is the persisted proof of a completed login. One record exists per
// subsystem, each under its own fixed key, in exactly one storage tier.
type Record struct {
	ID              string    `json:"id"`                // Unique session identifier (UUID)
	Identity        Identity  `json:"identity"`          // Who the session belongs to
	SecretReference string    `json:"secret_reference"`  // Digest of the credential, or a provider sentinel - never the raw secret
	CSRFToken       string    `json:"csrf_token"`        // Random anti-forgery value bound to the session
	CreatedAt       time.Time `json:"created_at"`        // When the session was created
	ExpiresAt       time.Time `json:"expires_at"`        // A session is valid iff now < ExpiresAt
	Durable         bool      `json:"durable,omitempty"` // Which tier the record was written to
}

// Identity is the fixed descriptor of the authenticated principal. The admin
// subsystem fills Role and Permissions; the editor subsystem fills Provider,
// Repo and Branch.
type Identity struct {
	Subject     string   `json:"subject"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Provider    string   `json:"provider,omitempty"`
	Repo        string   `json:"repo,omitempty"`
	Branch      string   `json:"branch,omitempty"`
}

// Fixed storage keys, one per subsystem. A third key per subsystem holds the
// capped security-event journal.
const (
	KeyAdminSession  = "auth_session_admin"
	KeyEditorSession = "auth_session_cms"
	KeyAdminEvents   = "security_events_admin"
	KeyEditorEvents  = "security_events_cms"
	KeyAdminLockout  = "auth_lockout_admin"
)

// Expired reports whether the record's expiry has passed.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Corrupt reports whether the record must be discarded on read. A session
// without a non-empty CSRF token is treated as absent.
func (r *Record) Corrupt() bool {
	return r.CSRFToken == ""
}

// HasPermission reports whether the identity carries the named permission.
func (i Identity) HasPermission(permission string) bool {
	for _, p := range i.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
