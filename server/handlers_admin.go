package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/go-site-auth/adminauth"
	ierrors "github.com/jrsteele09/go-site-auth/internal/errors"
)

type adminLoginRequest struct {
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// AdminLoginHandler runs the password login and, on success, hands back a
// gate token plus the session cookie.
func (s *Server) AdminLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adminLoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "malformed request body")
			return
		}

		if err := s.admin.Login(req.Password, req.Remember); err != nil {
			writeJSONError(w, statusForAuthError(err), loginErrorMessage(err))
			return
		}

		snapshot := s.admin.Snapshot()
		token, err := s.gate.Mint(snapshot.Session)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "something went wrong, please retry")
			return
		}
		if err := s.cookie.Set(w, snapshot.Session, "admin", time.Now()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "something went wrong, please retry")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"token":      token,
			"csrf_token": snapshot.Session.CSRFToken,
			"identity":   snapshot.Identity,
			"expires_at": snapshot.Session.ExpiresAt,
		})
	}
}

// AdminLogoutHandler clears the session in both tiers and the cookie.
func (s *Server) AdminLogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.admin.Logout()
		s.cookie.Clear(w, "admin")
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// AdminSessionHandler publishes the read model for route guards and the
// login view.
func (s *Server) AdminSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, readModel(s.admin.CheckSession()))
	}
}

// AdminEventsHandler returns both subsystems' security event journals for
// the dashboard diagnostics view. Nothing here ever leaves the process.
func (s *Server) AdminEventsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"admin": s.journals.Admin.Logs(),
			"cms":   s.journals.CMS.Logs(),
		})
	}
}

// AdminDashboardHandler is the guarded probe the dashboard UI polls.
func (s *Server) AdminDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func readModel(snapshot adminauth.Snapshot) map[string]any {
	model := map[string]any{
		"identity":        snapshot.Identity,
		"isAuthenticated": snapshot.IsAuthenticated,
		"isLoading":       snapshot.IsLoading,
		"error":           snapshot.Err,
	}
	if snapshot.Session != nil {
		model["session"] = map[string]any{
			"id":         snapshot.Session.ID,
			"created_at": snapshot.Session.CreatedAt,
			"expires_at": snapshot.Session.ExpiresAt,
		}
	}
	return model
}

func statusForAuthError(err error) int {
	switch {
	case ierrors.Is(err, ierrors.ErrLockedOut):
		return http.StatusTooManyRequests
	case ierrors.Is(err, ierrors.ErrConfiguration):
		return http.StatusServiceUnavailable
	case ierrors.Is(err, ierrors.ErrRateLimited):
		return http.StatusTooManyRequests
	case ierrors.Is(err, ierrors.ErrRemoteUnavailable):
		return http.StatusBadGateway
	case ierrors.Is(err, ierrors.ErrInsufficientScope):
		return http.StatusForbidden
	default:
		return http.StatusUnauthorized
	}
}

// loginErrorMessage keeps credential failures generic while leaving
// configuration and remote problems actionable.
func loginErrorMessage(err error) string {
	switch {
	case ierrors.Is(err, ierrors.ErrLockedOut):
		return err.Error()
	case ierrors.Is(err, ierrors.ErrConfiguration):
		return "authentication is not configured, contact the site operator"
	case ierrors.Is(err, ierrors.ErrRateLimited):
		return "too many requests, try again in a few minutes"
	case ierrors.Is(err, ierrors.ErrRemoteUnavailable):
		return "could not reach the content host, check your connection and retry"
	case ierrors.Is(err, ierrors.ErrInsufficientScope):
		return ierrors.ErrInsufficientScope.Error()
	default:
		return "invalid credentials"
	}
}
