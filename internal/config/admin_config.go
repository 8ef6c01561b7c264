package config

type Admin struct{}

var _ AdminConfig = Admin{}

func (Admin) GetAdminPasswordHash() string {
	return GetEnv("ADMIN_PASSWORD_HASH", "")
}
