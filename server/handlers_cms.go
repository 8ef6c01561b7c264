package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/go-site-auth/cmsauth"
)

type editorLoginRequest struct {
	Token string `json:"token"`
}

// EditorLoginHandler authenticates against the selected CMS provider. The
// token field is only consulted by the repository-token provider.
func (s *Server) EditorLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req editorLoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "malformed request body")
			return
		}

		if err := s.cms.Login(r.Context(), req.Token); err != nil {
			message := s.cms.Snapshot().Err
			if message == "" {
				message = loginErrorMessage(err)
			}
			writeJSONError(w, statusForAuthError(err), message)
			return
		}

		snapshot := s.cms.Snapshot()
		token, err := s.gate.Mint(snapshot.Session)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "something went wrong, please retry")
			return
		}
		if err := s.cookie.Set(w, snapshot.Session, "cms", time.Now()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "something went wrong, please retry")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"token":      token,
			"csrf_token": snapshot.Session.CSRFToken,
			"identity":   snapshot.Identity,
			"provider":   string(s.cms.Provider()),
			"expires_at": snapshot.Session.ExpiresAt,
		})
	}
}

// EditorLogoutHandler deletes the editor session and resets the token
// proxy's validation budget.
func (s *Server) EditorLogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.cms.Logout()
		s.cookie.Clear(w, "cms")
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// EditorSessionHandler publishes the editor read model, running a full
// provider validation so stale sessions are caught on render.
func (s *Server) EditorSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.cms.ValidateSession(r.Context())
		writeJSON(w, http.StatusOK, editorReadModel(s.cms.Snapshot(), s.cms.Provider()))
	}
}

func editorReadModel(snapshot cmsauth.Snapshot, provider cmsauth.ProviderKind) map[string]any {
	model := map[string]any{
		"identity":        snapshot.Identity,
		"isAuthenticated": snapshot.IsAuthenticated,
		"isLoading":       snapshot.IsLoading,
		"provider":        string(provider),
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
