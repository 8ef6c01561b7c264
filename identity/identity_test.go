package identity_test

import (
	"testing"

	"github.com/jrsteele09/go-site-auth/identity"
	"github.com/stretchr/testify/require"
)

// TestHashPassword tests the bcrypt round trip
func TestHashPassword(t *testing.T) {
	hash, err := identity.HashPassword("swordfish")
	require.NoError(t, err)
	require.NotEqual(t, "swordfish", hash)

	require.True(t, identity.CheckPasswordHash("swordfish", hash))
	require.False(t, identity.CheckPasswordHash("Swordfish", hash))
	require.False(t, identity.CheckPasswordHash("swordfish", ""))
}

// TestAdmin tests the fixed administrator profile
func TestAdmin(t *testing.T) {
	admin := identity.Admin()

	require.Equal(t, "site-admin", admin.Subject)
	require.Equal(t, string(identity.RoleAdmin), admin.Role)
	require.True(t, admin.HasPermission(identity.PermViewDashboard))
	require.True(t, admin.HasPermission(identity.PermViewLogs))
	require.False(t, admin.HasPermission(identity.PermEditContent))
}

// TestEditor tests the provider-derived editor profile
func TestEditor(t *testing.T) {
	editor := identity.Editor("repository-token", "acme/website-content", "main")

	require.Equal(t, "content-editor", editor.Subject)
	require.Equal(t, "repository-token", editor.Provider)
	require.Equal(t, "acme/website-content", editor.Repo)
	require.Equal(t, "main", editor.Branch)
	require.True(t, editor.HasPermission(identity.PermEditContent))
	require.False(t, editor.HasPermission(identity.PermViewDashboard))
}

// TestPermissionsFor tests that callers cannot mutate the fixed table
func TestPermissionsFor(t *testing.T) {
	perms := identity.PermissionsFor(identity.RoleEditor)
	require.Equal(t, []string{identity.PermEditContent}, perms)

	perms[0] = "tampered"
	require.Equal(t, []string{identity.PermEditContent}, identity.PermissionsFor(identity.RoleEditor))

	require.Empty(t, identity.PermissionsFor("unknown"))
}
