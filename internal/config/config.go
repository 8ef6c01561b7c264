package config

type Config interface {
	EnvConfig
	AdminConfig
	EditorConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetBaseURL() string
	GetEnv() string
	IsLocalMode() bool
}

// AdminConfig holds the build-time material for the administrator gate.
type AdminConfig interface {
	// GetAdminPasswordHash returns the precomputed bcrypt digest of the
	// shared administrator password. Empty means the gate fails closed.
	GetAdminPasswordHash() string
}

// EditorConfig holds the build-time material for the content-editor gate.
type EditorConfig interface {
	GetEditorEnabled() bool
	GetRepoPath() string
	GetRepoBranch() string
	// GetEditorTokenDigest returns the SHA-256 digest of the configured
	// repository access token, used to detect sessions surviving a
	// credential rotation.
	GetEditorTokenDigest() string
	// GetEditorToken returns the raw repository access token. Only the
	// token proxy may call this.
	GetEditorToken() string
	GetCloudClientID() string
	GetCloudClientSecret() string
	GetCloudIssuerURL() string
}

type mainConfig struct {
	EnvVars
	Admin
	Editor
	Security
}

func New() Config {
	return mainConfig{}
}
