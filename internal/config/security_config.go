package config

import "time"

type SecurityConfig interface {
	GetSessionDuration() time.Duration
	GetRememberMultiplier() int
	GetLockoutThreshold() int
	GetLockoutCooldown() time.Duration
	GetAdminRevalidateInterval() time.Duration
	GetEditorRevalidateInterval() time.Duration
	GetGateTokenSecret() string
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetSessionDuration() time.Duration {
	return 4 * time.Hour
}

// GetRememberMultiplier scales the session duration when the user asks to
// be remembered.
func (Security) GetRememberMultiplier() int {
	return 6
}

func (Security) GetLockoutThreshold() int {
	return 5
}

func (Security) GetLockoutCooldown() time.Duration {
	return 15 * time.Minute
}

func (Security) GetAdminRevalidateInterval() time.Duration {
	return 60 * time.Second
}

func (Security) GetEditorRevalidateInterval() time.Duration {
	return 5 * time.Minute
}

func (Security) GetGateTokenSecret() string {
	return GetEnv("GATE_TOKEN_SECRET", "")
}
