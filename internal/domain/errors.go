package domain

import "errors"

var (
	// ErrAuthRevoked indicates the provider rejected the refresh token.
	// Terminal for that account for the current run; the member must
	// re-authorize before sync can resume.
	ErrAuthRevoked = errors.New("refresh token rejected by provider")

	// ErrTransient indicates a connectivity failure that a later run may
	// not hit again. Never retried within the same run.
	ErrTransient = errors.New("transient network error")

	// ErrRateLimited indicates the provider returned 429. Treated as
	// transient; the caller should back off until the next run.
	ErrRateLimited = errors.New("provider rate limit exceeded")

	// ErrProfileNotFound is returned when a profile row cannot be located.
	ErrProfileNotFound = errors.New("profile not found")
)
