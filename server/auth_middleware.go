package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-site-auth/sessions"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the resolved session record
	ContextKeySession ContextKey = "session"
)

// mutatingMethods are the verbs that require a CSRF token matching the one
// bound to the session.
var mutatingMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// RequireAdminAuth guards dashboard routes. It accepts either a gate token
// in the Authorization header or the session cookie, resolves it against
// the admin manager's current session, and enforces the CSRF token on
// mutating requests. Unauthenticated callers get a 401 carrying the
// originally requested path so the UI can redirect back after login.
func (s *Server) RequireAdminAuth(permission string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			snapshot := s.admin.CheckSession()
			record := snapshot.Session
			if record == nil || !s.requestMatchesSession(r, record, "admin") {
				unauthorized(w, r)
				return
			}

			if permission != "" && !record.Identity.HasPermission(permission) {
				writeJSONError(w, http.StatusForbidden, "permission denied")
				return
			}

			if mutatingMethods[r.Method] && r.Header.Get("X-CSRF-Token") != record.CSRFToken {
				writeJSONError(w, http.StatusForbidden, "missing or invalid CSRF token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, record)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireEditorAuth guards content-editing routes against the CMS session.
// It re-validates the persisted session on every request, so an expired or
// revoked session is refused immediately rather than at the next timer tick.
func (s *Server) RequireEditorAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !s.cms.ValidateSession(r.Context()) {
				unauthorized(w, r)
				return
			}
			record := s.cms.Snapshot().Session
			if record == nil || !s.requestMatchesSession(r, record, "cms") {
				unauthorized(w, r)
				return
			}

			if mutatingMethods[r.Method] && r.Header.Get("X-CSRF-Token") != record.CSRFToken {
				writeJSONError(w, http.StatusForbidden, "missing or invalid CSRF token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, record)
			next(w, r.WithContext(ctx))
		}
	}
}

// requestMatchesSession checks that the caller presented a valid handle to
// this exact session: a verified gate token or the session cookie.
func (s *Server) requestMatchesSession(r *http.Request, record *sessions.Record, subsystem string) bool {
	if token := bearerToken(r); token != "" {
		claims, err := s.gate.Verify(token)
		return err == nil && claims.SessionID == record.ID
	}
	if payload, ok := s.cookie.Get(r, subsystem); ok {
		return payload.SessionID == record.ID && payload.Subsystem == subsystem
	}
	return false
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"success":     false,
		"error":       "unauthorized",
		"redirect_to": "/login?next=" + url.QueryEscape(r.URL.RequestURI()),
	})
}
