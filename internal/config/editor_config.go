package config

type Editor struct{}

var _ EditorConfig = Editor{}

func (Editor) GetEditorEnabled() bool {
	return GetEnv("EDITOR_ENABLED", "true") == "true"
}

// GetRepoPath returns the "owner/name" path of the content repository.
func (Editor) GetRepoPath() string {
	return GetEnv("CONTENT_REPO", "")
}

func (Editor) GetRepoBranch() string {
	return GetEnv("CONTENT_BRANCH", "main")
}

func (Editor) GetEditorTokenDigest() string {
	return GetEnv("EDITOR_TOKEN_DIGEST", "")
}

func (Editor) GetEditorToken() string {
	return GetEnv("EDITOR_TOKEN", "")
}

func (Editor) GetCloudClientID() string {
	return GetEnv("CLOUD_CLIENT_ID", "")
}

func (Editor) GetCloudClientSecret() string {
	return GetEnv("CLOUD_CLIENT_SECRET", "")
}

func (Editor) GetCloudIssuerURL() string {
	return GetEnv("CLOUD_ISSUER_URL", "")
}
