package server

import (
	"context"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-site-auth/internal/config"
	ierrors "github.com/jrsteele09/go-site-auth/internal/errors"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// cloudOAuth lazily discovers the cloud editor's OIDC endpoints. Discovery
// needs the network, so it runs on first use rather than at construction.
type cloudOAuth struct {
	config config.Config

	mu       sync.Mutex
	provider *oidc.Provider
	oauthCfg *oauth2.Config
}

func newCloudOAuth(cfg config.Config) *cloudOAuth {
	return &cloudOAuth{config: cfg}
}

func (c *cloudOAuth) setup(ctx context.Context) (*oauth2.Config, *oidc.IDTokenVerifier, error) {
	clientID := c.config.GetCloudClientID()
	issuer := c.config.GetCloudIssuerURL()
	if clientID == "" || issuer == "" {
		return nil, nil, errors.Wrap(ierrors.ErrConfiguration, "[cloudOAuth.setup] cloud client id and issuer are required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.provider == nil {
		provider, err := oidc.NewProvider(ctx, issuer)
		if err != nil {
			return nil, nil, errors.Wrap(ierrors.ErrRemoteUnavailable, err.Error())
		}
		c.provider = provider
		c.oauthCfg = &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: c.config.GetCloudClientSecret(),
			Endpoint:     provider.Endpoint(),
			RedirectURL:  c.config.GetBaseURL() + RouteEditorCallback,
			Scopes:       []string{oidc.ScopeOpenID, "email"},
		}
	}

	verifier := c.provider.Verifier(&oidc.Config{ClientID: clientID})
	return c.oauthCfg, verifier, nil
}

// stateRepo remembers issued OAuth state values until the callback consumes
// them. States expire after ten minutes.
type stateRepo struct {
	nowTime func() time.Time

	mu     sync.Mutex
	states map[string]time.Time
}

const stateTTL = 10 * time.Minute

func newStateRepo() *stateRepo {
	return &stateRepo{
		nowTime: time.Now,
		states:  make(map[string]time.Time),
	}
}

// Add records a freshly issued state and sweeps out any states whose TTL has
// already passed, so abandoned authorize flows cannot grow the map forever.
func (r *stateRepo) Add(state string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowTime()
	for issued, expiry := range r.states {
		if now.After(expiry) {
			delete(r.states, issued)
		}
	}
	r.states[state] = now.Add(stateTTL)
}

// Consume removes the state, reporting whether it was known and fresh.
func (r *stateRepo) Consume(state string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	expiry, ok := r.states[state]
	delete(r.states, state)
	if !ok {
		return false
	}
	return r.nowTime().Before(expiry)
}
