// Package tokenproxy is the only component permitted to hold a raw
// repository-access token in memory. Everything else works with one-shot
// token handles, digests, or validation results.
package tokenproxy

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-site-auth/internal/config"
	ierrors "github.com/jrsteele09/go-site-auth/internal/errors"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	randomTokenLength = 32 // 256 bits of entropy for CSRF and OAuth state values

	// Structural prefixes of the two supported token kinds
	classicTokenPrefix     = "ghp_"
	fineGrainedTokenPrefix = "github_pat_"
)

// Validation attempts refill at one per interval with a small burst, enough
// for a human retrying a paste, not for automated guessing.
const (
	validationBurst    = 5
	validationInterval = 12 * time.Second
)

// ValidationResult is the structured outcome of a secure token validation.
// The token value itself never appears in the result or in any log.
type ValidationResult struct {
	Valid  bool
	Reason string
}

// Proxy bounds access to the configured repository token.
type Proxy struct {
	config config.EditorConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Proxy reading its token material from cfg.
func New(cfg config.EditorConfig) (*Proxy, error) {
	if cfg == nil {
		return nil, errors.New("[tokenproxy.New] config is required")
	}
	return &Proxy{
		config:   cfg,
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

// UseToken hands the configured raw token to fn for the duration of a single
// operation. The local reference is dropped before UseToken returns,
// including on the failure path, keeping the token's residency window as
// small as the runtime allows.
func (p *Proxy) UseToken(fn func(token string) error) error {
	token := p.config.GetEditorToken()
	if token == "" {
		return errors.Wrap(ierrors.ErrConfiguration, "[Proxy.UseToken] no repository token configured")
	}
	defer func() {
		token = ""
		_ = token
	}()
	return fn(token)
}

// ValidateTokenSecurely performs a rate-limited structural check of a
// candidate token. purpose namespaces the limiter so a login storm cannot
// starve other call sites.
func (p *Proxy) ValidateTokenSecurely(candidate, purpose string) ValidationResult {
	if !p.limiterFor(purpose).Allow() {
		return ValidationResult{Valid: false, Reason: "too many validation attempts, try again shortly"}
	}

	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ValidationResult{Valid: false, Reason: "token is required"}
	}
	if !strings.HasPrefix(trimmed, classicTokenPrefix) && !strings.HasPrefix(trimmed, fineGrainedTokenPrefix) {
		return ValidationResult{Valid: false, Reason: "unrecognised token format"}
	}
	if len(trimmed) < 40 {
		return ValidationResult{Valid: false, Reason: "token too short"}
	}
	return ValidationResult{Valid: true}
}

// ClearValidationAttempts resets the rate limiter for a purpose. Called on
// logout so the next legitimate session starts with a clean budget.
func (p *Proxy) ClearValidationAttempts(purpose string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.limiters, purpose)
}

// HashToken returns the deterministic one-way digest used for session
// fingerprinting.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// HashToken on the proxy mirrors the package function so callers holding a
// *Proxy need no second import.
func (p *Proxy) HashToken(token string) string {
	return HashToken(token)
}

// GenerateCSRFToken returns a fresh cryptographically random anti-forgery
// value.
func GenerateCSRFToken() (string, error) {
	return randomOpaque("GenerateCSRFToken")
}

// GenerateOAuthState returns a fresh cryptographically random anti-replay
// value for the OAuth redirect flow.
func GenerateOAuthState() (string, error) {
	return randomOpaque("GenerateOAuthState")
}

// GenerateCSRFToken on the proxy mirrors the package function.
func (p *Proxy) GenerateCSRFToken() (string, error) {
	return GenerateCSRFToken()
}

// GenerateOAuthState on the proxy mirrors the package function.
func (p *Proxy) GenerateOAuthState() (string, error) {
	return GenerateOAuthState()
}

func (p *Proxy) limiterFor(purpose string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	limiter, ok := p.limiters[purpose]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(validationInterval), validationBurst)
		p.limiters[purpose] = limiter
	}
	return limiter
}

func randomOpaque(caller string) (string, error) {
	bytes := make([]byte, randomTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrapf(err, "[Proxy.%s] rand.Read", caller)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
