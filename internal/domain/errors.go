package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrCrypto     = errors.New("message could not be verified")

	ErrBadToken        = fmt.Errorf("%w: invalid peer token", ErrForbidden)
	ErrSocketBound     = fmt.Errorf("%w: client is bound to its websocket", ErrForbidden)
	ErrClientNotFound  = fmt.Errorf("client %w", ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)
)

// Invalid wraps ErrValidation with the offending field.
func Invalid(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, reason)
}

// ErrorCode maps an error to the short code sent to clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrCrypto):
		return "crypto"
	default:
		return "internal"
	}
}
