// Package gatetoken mints and verifies the short-lived bearer tokens the
// HTTP route guards accept. A gate token is a signed handle to a session
// record, never a credential in its own right: the session remains the
// source of truth and its expiry bounds the token's.
package gatetoken

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	ierrors "github.com/jrsteele09/go-site-auth/internal/errors"
	"github.com/jrsteele09/go-site-auth/sessions"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const defaultTTL = 15 * time.Minute

// Claims is the verified content of a gate token.
type Claims struct {
	SessionID string
	Subject   string
	Role      string
}

// Creator signs and verifies gate tokens with an HMAC secret.
type Creator struct {
	secret []byte
	ttl    time.Duration
}

// New creates a Creator. An empty secret is a build misconfiguration and
// fails closed here rather than at the first request.
func New(secret string) (*Creator, error) {
	if secret == "" {
		return nil, errors.Wrap(ierrors.ErrConfiguration, "[gatetoken.New] signing secret is required")
	}
	return &Creator{secret: []byte(secret), ttl: defaultTTL}, nil
}

// Mint produces a token for the session record. The token never outlives
// the session it points at.
func (c *Creator) Mint(record *sessions.Record) (string, error) {
	now := NowTimeFunc()
	expiry := now.Add(c.ttl)
	if record.ExpiresAt.Before(expiry) {
		expiry = record.ExpiresAt
	}

	claims := jwtlib.MapClaims{
		"sid":  record.ID,
		"sub":  record.Identity.Subject,
		"role": record.Identity.Role,
		"iat":  now.Unix(),
		"exp":  expiry.Unix(),
		"jti":  uuid.New().String(),
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", errors.Wrap(err, "[Creator.Mint] sign")
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the claims.
func (c *Creator) Verify(raw string) (*Claims, error) {
	parsed, err := jwtlib.Parse(raw, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwtlib.WithTimeFunc(NowTimeFunc), jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, errors.Wrap(ierrors.ErrSessionInvalid, err.Error())
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok || !parsed.Valid {
		return nil, errors.Wrap(ierrors.ErrSessionInvalid, "[Creator.Verify] malformed claims")
	}

	out := &Claims{}
	if sid, ok := claims["sid"].(string); ok {
		out.SessionID = sid
	}
	if sub, ok := claims["sub"].(string); ok {
		out.Subject = sub
	}
	if role, ok := claims["role"].(string); ok {
		out.Role = role
	}
	if out.SessionID == "" {
		return nil, errors.Wrap(ierrors.ErrSessionInvalid, "[Creator.Verify] missing session id")
	}
	return out, nil
}
