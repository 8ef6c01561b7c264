// Package server binds the two session managers to an HTTP surface: JSON
// login/logout/session endpoints, route guards for the dashboard API, and
// the cloud OAuth callback.
package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-site-auth/adminauth"
	"github.com/jrsteele09/go-site-auth/cmsauth"
	"github.com/jrsteele09/go-site-auth/gatetoken"
	"github.com/jrsteele09/go-site-auth/internal/config"
	"github.com/jrsteele09/go-site-auth/securitylog"
	"github.com/pkg/errors"
)

// Journals holds the per-subsystem security event journals surfaced on the
// dashboard.
type Journals struct {
	Admin *securitylog.Journal
	CMS   *securitylog.Journal
}

type Server struct {
	env      string // Environment (e.g., "DEV", "production")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	admin    *adminauth.Manager
	cms      *cmsauth.Manager
	journals Journals
	gate     *gatetoken.Creator
	cookie   *SessionCookieCodec
	oauth    *cloudOAuth
	states   *stateRepo
}

func New(cfg config.Config, admin *adminauth.Manager, cms *cmsauth.Manager, journals Journals) (*Server, error) {
	if admin == nil {
		return nil, errors.New("[server.New] admin manager is required")
	}
	if cms == nil {
		return nil, errors.New("[server.New] cms manager is required")
	}

	gate, err := gatetoken.New(cfg.GetGateTokenSecret())
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] gate token creator")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		admin:    admin,
		cms:      cms,
		journals: journals,
		gate:     gate,
		cookie:   NewSessionCookieCodec(cfg.GetGateTokenSecret()),
		oauth:    newCloudOAuth(cfg),
		states:   newStateRepo(),
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
