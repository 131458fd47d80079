package common

import "errors"

// Sentinel errors shared by the store, the auth gate and the HTTP layer.
// Match them with errors.Is.
var (
	// Lookup errors.
	ErrorNotFound = errors.New("not found")

	// Access errors raised by the HTTP guards.
	ErrorUnauthorized = errors.New("authentication required")
	ErrorForbidden    = errors.New("administrator role required")

	// Persistence errors. A transport failure means the remote blob could
	// not be read or written; a decode failure means no decoding strategy
	// produced a document. ErrStoreUnavailable marks a write refused
	// because the document was never loaded; nothing was applied.
	ErrTransportFailure = errors.New("transport failure")
	ErrDecodeFailure    = errors.New("decode failure")
	ErrStoreUnavailable = errors.New("store unavailable")

	// User store validation errors.
	ErrDuplicateEmail   = errors.New("email already registered")
	ErrPasswordTooShort = errors.New("password too short")

	// Auth gate errors.
	ErrMissingFields      = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("inactive account")
	ErrRateLimited        = errors.New("too many attempts")
	ErrVerificationFailed = errors.New("verification failed")

	// Token errors (invalid, malformed or expired).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
