package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-site-auth/tokenproxy"
	"github.com/rs/zerolog/log"
)

// EditorAuthorizeHandler starts the cloud OAuth redirect flow: issue a
// fresh state value, remember it, and send the browser to the provider.
func (s *Server) EditorAuthorizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		oauthCfg, _, err := s.oauth.setup(r.Context())
		if err != nil {
			writeJSONError(w, statusForAuthError(err), loginErrorMessage(err))
			return
		}

		state, err := tokenproxy.GenerateOAuthState()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "something went wrong, please retry")
			return
		}
		s.states.Add(state)

		http.Redirect(w, r, oauthCfg.AuthCodeURL(state), http.StatusSeeOther)
	}
}

// EditorCallbackHandler completes the cloud flow: check the state, exchange
// the code, verify the ID token, then let the CMS manager create the
// session.
func (s *Server) EditorCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.FormValue covers both query params and form_post responses
		state := r.FormValue("state")
		code := r.FormValue("code")
		errorParam := r.FormValue("error")

		if errorParam != "" {
			http.Error(w, fmt.Sprintf("Authorization failed: %s - %s", errorParam, r.FormValue("error_description")), http.StatusBadRequest)
			return
		}
		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}
		if !s.states.Consume(state) {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		oauthCfg, verifier, err := s.oauth.setup(r.Context())
		if err != nil {
			http.Error(w, "Cloud authentication is not configured", http.StatusServiceUnavailable)
			return
		}

		oauth2Token, err := oauthCfg.Exchange(r.Context(), code)
		if err != nil {
			http.Error(w, "Token exchange failed", http.StatusBadGateway)
			return
		}

		rawIDToken, ok := oauth2Token.Extra("id_token").(string)
		if !ok {
			http.Error(w, "No ID token in response", http.StatusBadGateway)
			return
		}
		idToken, err := verifier.Verify(r.Context(), rawIDToken)
		if err != nil {
			http.Error(w, "ID token verification failed", http.StatusUnauthorized)
			return
		}

		var claims struct {
			Email string `json:"email"`
		}
		if err := idToken.Claims(&claims); err != nil {
			http.Error(w, "Malformed ID token claims", http.StatusBadGateway)
			return
		}
		log.Info().Str("email", claims.Email).Msg("cloud editor authenticated")

		if err := s.cms.Login(r.Context(), ""); err != nil {
			http.Error(w, "Failed to create editor session", http.StatusInternalServerError)
			return
		}
		if record := s.cms.Snapshot().Session; record != nil {
			_ = s.cookie.Set(w, record, "cms", time.Now())
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
