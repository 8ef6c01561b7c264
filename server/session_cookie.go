package server

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/jrsteele09/go-site-auth/sessions"
)

// Each subsystem owns its own cookie so an editor login cannot evict the
// admin cookie from the browser jar, or the reverse.
func sessionCookieName(subsystem string) string {
	return "gate_session_" + subsystem
}

// cookieSession is the encrypted payload carried by the browser between
// requests: a handle to the session record, never the record itself.
type cookieSession struct {
	SessionID string `json:"session_id"`
	Subsystem string `json:"subsystem"`
}

// SessionCookieCodec encodes the session handle into an authenticated,
// encrypted cookie. A remembered session gets a Max-Age cookie (the durable
// tier's analogue); otherwise the cookie dies with the browser session.
type SessionCookieCodec struct {
	codec *securecookie.SecureCookie
}

// NewSessionCookieCodec derives the cookie keys from the gate secret.
func NewSessionCookieCodec(secret string) *SessionCookieCodec {
	hashKey := sha256.Sum256([]byte("cookie-hash:" + secret))
	blockKey := sha256.Sum256([]byte("cookie-block:" + secret))
	return &SessionCookieCodec{
		codec: securecookie.New(hashKey[:], blockKey[:]),
	}
}

// Set writes the session cookie. For a durable session the cookie lives as
// long as the session record; otherwise it is session-scoped.
func (c *SessionCookieCodec) Set(w http.ResponseWriter, record *sessions.Record, subsystem string, now time.Time) error {
	name := sessionCookieName(subsystem)
	encoded, err := c.codec.Encode(name, cookieSession{
		SessionID: record.ID,
		Subsystem: subsystem,
	})
	if err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:     name,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
	if record.Durable {
		cookie.MaxAge = int(record.ExpiresAt.Sub(now).Seconds())
	}
	http.SetCookie(w, cookie)
	return nil
}

// Get decodes the subsystem's session handle from the request, if present
// and intact.
func (c *SessionCookieCodec) Get(r *http.Request, subsystem string) (*cookieSession, bool) {
	name := sessionCookieName(subsystem)
	cookie, err := r.Cookie(name)
	if err != nil {
		return nil, false
	}
	var payload cookieSession
	if err := c.codec.Decode(name, cookie.Value, &payload); err != nil {
		return nil, false
	}
	return &payload, true
}

// Clear expires the subsystem's session cookie.
func (c *SessionCookieCodec) Clear(w http.ResponseWriter, subsystem string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName(subsystem),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
