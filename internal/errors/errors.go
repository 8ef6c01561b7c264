package errors

import (
	"errors"
	"fmt"
)

// Common error types for the authentication subsystems
var (
	// Credential errors - user facing, deliberately generic so a caller
	// cannot distinguish "wrong" from "malformed"
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Lockout errors
	ErrLockedOut = errors.New("too many failed attempts")

	// Configuration errors - missing digest, repo, or client id
	ErrConfiguration = errors.New("authentication is not configured")

	// Remote errors - host unreachable or throttling us
	ErrRemoteUnavailable  = errors.New("remote host unavailable")
	ErrRateLimited        = errors.New("rate limited")
	ErrInsufficientScope  = errors.New("insufficient permissions")
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrBranchNotFound     = errors.New("branch not found")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionInvalid  = errors.New("session invalid")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
