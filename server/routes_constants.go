package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Admin subsystem
	RouteAdminLogin   = "/api/admin/login"
	RouteAdminLogout  = "/api/admin/logout"
	RouteAdminSession = "/api/admin/session"
	RouteAdminEvents  = "/api/admin/events"

	// Editor subsystem
	RouteEditorLogin     = "/api/cms/login"
	RouteEditorLogout    = "/api/cms/logout"
	RouteEditorSession   = "/api/cms/session"
	RouteEditorAuthorize = "/api/cms/authorize"
	RouteEditorCallback  = "/api/cms/callback"
	RouteEditorContent   = "/api/cms/content"

	// Guarded dashboard probe
	RouteAdminDashboard = "/api/admin/dashboard"

	RouteHealth = "/healthz"
)
