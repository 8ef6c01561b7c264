// Package identity holds the fixed principals and permissions of the site.
// There is no user database: the administrator is a single hardcoded
// profile, and editor identities are derived from the provider that
// authenticated them.
package identity

import (
	"github.com/jrsteele09/go-site-auth/sessions"
	"golang.org/x/crypto/bcrypt"
)

// RoleType represents a principal role.
type RoleType string

const (
	RoleAdmin  RoleType = "admin"
	RoleEditor RoleType = "editor"
)

// Permission names understood by the dashboard route guards.
const (
	PermViewDashboard = "view_dashboard"
	PermManagePosts   = "manage_posts"
	PermManageMedia   = "manage_media"
	PermViewLogs      = "view_logs"
	PermEditContent   = "edit_content"
)

// rolePermissions is the fixed role-to-permission table. There is no
// runtime mutation of this matrix.
var rolePermissions = map[RoleType][]string{
	RoleAdmin:  {PermViewDashboard, PermManagePosts, PermManageMedia, PermViewLogs},
	RoleEditor: {PermEditContent},
}

// PermissionsFor returns the static permission set for a role.
func PermissionsFor(role RoleType) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// Admin returns the single administrator profile.
func Admin() sessions.Identity {
	return sessions.Identity{
		Subject:     "site-admin",
		Role:        string(RoleAdmin),
		Permissions: PermissionsFor(RoleAdmin),
	}
}

// Editor returns the identity for a content editor authenticated by the
// named provider against repo/branch.
func Editor(provider, repo, branch string) sessions.Identity {
	return sessions.Identity{
		Subject:     "content-editor",
		Role:        string(RoleEditor),
		Permissions: PermissionsFor(RoleEditor),
		Provider:    provider,
		Repo:        repo,
		Branch:      branch,
	}
}

// HashPassword produces the bcrypt digest baked into the build
// configuration.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a candidate password against a bcrypt digest
// in constant structure.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
