package cmsauth

// ProviderKind is the closed set of authentication strategies for the
// content editor. Exactly one is selected per process lifetime.
type ProviderKind string

const (
	// ProviderFilesystem edits a local checkout; no remote check exists
	// and every login succeeds.
	ProviderFilesystem ProviderKind = "filesystem"
	// ProviderRepositoryToken validates a personal access token against
	// the source-control host.
	ProviderRepositoryToken ProviderKind = "repository-token"
	// ProviderCloudOAuth delegates to the cloud editor's OAuth redirect
	// flow; sessions are provisional until the flow completes.
	ProviderCloudOAuth ProviderKind = "cloud-oauth"
)

// Sentinel secret references for providers that hold no token digest.
const (
	sentinelLocalDevelopment = "local-development"
	sentinelCloudOAuth       = "tina-cloud-oauth"
)

// SelectProvider picks the provider deterministically from build-time
// configuration: a local build with neither cloud client nor token gets the
// filesystem provider, a configured cloud client id wins over a token, and
// everything else falls back to repository tokens.
func SelectProvider(cfg Config) ProviderKind {
	switch {
	case cfg.IsLocalMode() && cfg.GetCloudClientID() == "" && cfg.GetEditorToken() == "" && cfg.GetEditorTokenDigest() == "":
		return ProviderFilesystem
	case cfg.GetCloudClientID() != "":
		return ProviderCloudOAuth
	default:
		return ProviderRepositoryToken
	}
}

// referenceFor returns the secret reference a valid session of this
// provider must carry. For repository tokens that is the build-time token
// digest; the other providers use fixed sentinels.
func referenceFor(kind ProviderKind, cfg Config) string {
	switch kind {
	case ProviderFilesystem:
		return sentinelLocalDevelopment
	case ProviderCloudOAuth:
		return sentinelCloudOAuth
	default:
		return cfg.GetEditorTokenDigest()
	}
}
