package services

import "errors"

var (
	// ErrQueueNotFound is returned when the referenced queue does not exist.
	ErrQueueNotFound = errors.New("queue not found")

	// ErrTokenNotFound is returned when no token matches the given value
	// or id (including tokens whose owning queue has been deleted).
	ErrTokenNotFound = errors.New("token not found")

	// ErrTokenExpired is returned when a token exists but its expiry
	// instant has passed. The join surface shows "refresh the display"
	// for this, as opposed to a generic failure.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenExhausted is returned when a token exists but its usage
	// cap has been reached.
	ErrTokenExhausted = errors.New("token usage exhausted")

	// ErrTokenInactive is returned when a token exists but has been
	// deactivated (superseded by rotation or by admin action).
	ErrTokenInactive = errors.New("token deactivated")

	// ErrStaticTokenMode rejects token operations on a queue that uses
	// the legacy static secret: there is nothing to rotate or fetch.
	// This is a business-rule rejection, not a missing record.
	ErrStaticTokenMode = errors.New("queue uses a static secret")

	// ErrInvalidTokenMode rejects configuration updates naming an
	// unknown token mode.
	ErrInvalidTokenMode = errors.New("invalid token mode")
)
