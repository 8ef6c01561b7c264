// Package githost talks to the source-control provider's REST API to verify
// that a repository token really grants what the editor gate needs: the
// repository exists, the token may push to it, and the content branch is
// there.
package githost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	ierrors "github.com/jrsteele09/go-site-auth/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.github.com"
	acceptHeader   = "application/vnd.github+json"

	scopesHeader         = "X-OAuth-Scopes"
	rateRemainingHeader  = "X-RateLimit-Remaining"
	defaultClientTimeout = 15 * time.Second
)

// RepoInfo is the subset of the repository resource the gate cares about.
type RepoInfo struct {
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Permissions   struct {
		Push bool `json:"push"`
	} `json:"permissions"`
}

// Client is a bearer-authenticated REST client for the credential host.
// Positive capability checks are remembered in an explicit, invalidatable
// cache owned by the client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *CapabilityCache
	logger     zerolog.Logger
}

// Option modifies a Client instance.
type Option func(*Client)

// WithBaseURL points the client at a different API host (testing, GHE).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger attaches a zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client with a fresh capability cache.
func New(options ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultClientTimeout},
		cache:      NewCapabilityCache(capabilityTTL),
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(client)
	}
	return client
}

// Cache exposes the client's capability cache for explicit invalidation.
func (c *Client) Cache() *CapabilityCache {
	return c.cache
}

// CheckRepoAccess fetches the repository resource. A 404 means the repo does
// not exist or the token cannot see it; both look the same to us.
func (c *Client) CheckRepoAccess(ctx context.Context, token, repo string) (*RepoInfo, error) {
	resp, err := c.get(ctx, token, fmt.Sprintf("/repos/%s", repo))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := errorFromStatus(resp); err != nil {
		return nil, errors.Wrap(err, "[Client.CheckRepoAccess] repo lookup")
	}

	var info RepoInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errors.Wrap(err, "[Client.CheckRepoAccess] decode")
	}
	return &info, nil
}

// CheckBranch verifies the configured content branch exists.
func (c *Client) CheckBranch(ctx context.Context, token, repo, branch string) error {
	resp, err := c.get(ctx, token, fmt.Sprintf("/repos/%s/branches/%s", repo, branch))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := errorFromStatus(resp); err != nil {
		if ierrors.Is(err, ierrors.ErrRepositoryNotFound) {
			return errors.Wrap(ierrors.ErrBranchNotFound, "[Client.CheckBranch]")
		}
		return errors.Wrap(err, "[Client.CheckBranch] branch lookup")
	}
	return nil
}

// TokenScopes returns the OAuth scopes granted to the token, read from the
// response header of the user endpoint.
func (c *Client) TokenScopes(ctx context.Context, token string) ([]string, error) {
	resp, err := c.get(ctx, token, "/user")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := errorFromStatus(resp); err != nil {
		return nil, errors.Wrap(err, "[Client.TokenScopes] user lookup")
	}
	return splitScopes(resp.Header.Get(scopesHeader)), nil
}

// VerifyWriteCapability runs the full capability check: repo reachable with
// push permission and the branch present. tokenDigest keys the cache entry
// so rotated tokens never reuse a stale positive result.
func (c *Client) VerifyWriteCapability(ctx context.Context, token, tokenDigest, repo, branch string) error {
	if c.cache.Valid(tokenDigest, repo, branch) {
		return nil
	}

	info, err := c.CheckRepoAccess(ctx, token, repo)
	if err != nil {
		return err
	}
	if !info.Permissions.Push {
		return errors.Wrap(ierrors.ErrInsufficientScope, "[Client.VerifyWriteCapability] no push permission")
	}
	if err := c.CheckBranch(ctx, token, repo, branch); err != nil {
		return err
	}

	c.cache.MarkValid(tokenDigest, repo, branch)
	c.logger.Debug().Str("repo", repo).Str("branch", branch).Msg("write capability verified")
	return nil
}

func (c *Client) get(ctx context.Context, token, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.get] build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", acceptHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(ierrors.ErrRemoteUnavailable, err.Error())
	}
	return resp, nil
}

func errorFromStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ierrors.ErrInvalidCredentials
	case resp.StatusCode == http.StatusNotFound:
		return ierrors.ErrRepositoryNotFound
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get(rateRemainingHeader) == "0":
		return ierrors.ErrRateLimited
	default:
		return errors.Wrapf(ierrors.ErrRemoteUnavailable, "unexpected status %d", resp.StatusCode)
	}
}

func splitScopes(header string) []string {
	if header == "" {
		return nil
	}
	var scopes []string
	for _, s := range strings.Split(header, ",") {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			scopes = append(scopes, trimmed)
		}
	}
	return scopes
}
