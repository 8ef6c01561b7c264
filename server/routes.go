package server

import (
	"net/http"

	"github.com/jrsteele09/go-site-auth/identity"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// Admin subsystem
	s.RegisterRouteHandler("POST "+RouteAdminLogin, ChainMiddleware(s.AdminLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAdminLogout, ChainMiddleware(s.AdminLogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAdminSession, ChainMiddleware(s.AdminSessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAdminEvents, ChainMiddleware(s.AdminEventsHandler(), s.APIMiddleware(s.RequireAdminAuth(identity.PermViewLogs))...))
	s.RegisterRouteHandler("GET "+RouteAdminDashboard, ChainMiddleware(s.AdminDashboardHandler(), s.APIMiddleware(s.RequireAdminAuth(identity.PermViewDashboard))...))

	// Editor subsystem
	s.RegisterRouteHandler("POST "+RouteEditorLogin, ChainMiddleware(s.EditorLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteEditorLogout, ChainMiddleware(s.EditorLogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteEditorSession, ChainMiddleware(s.EditorSessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteEditorAuthorize, ChainMiddleware(s.EditorAuthorizeHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteEditorCallback, s.EditorCallbackHandler())
	s.RegisterRouteFunc("POST "+RouteEditorCallback, s.EditorCallbackHandler()) // For form_post response mode

	// Content routes proper live with the site; this probe is what its
	// route guard calls before letting an edit through.
	s.RegisterRouteHandler("GET "+RouteEditorContent, ChainMiddleware(s.EditorContentProbeHandler(), s.APIMiddleware(s.RequireEditorAuth())...))
	s.RegisterRouteHandler("POST "+RouteEditorContent, ChainMiddleware(s.EditorContentProbeHandler(), s.APIMiddleware(s.RequireEditorAuth())...))
}

// EditorContentProbeHandler confirms the caller may edit content.
func (s *Server) EditorContentProbeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}
