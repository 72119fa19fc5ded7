package token

import "errors"

// Construction invariant violations. Each one is distinct so callers and
// tests can discriminate with errors.Is instead of string matching.
var (
	// ErrNegativeRotationInterval is returned when a validity is built
	// with a rotation interval below zero.
	ErrNegativeRotationInterval = errors.New("token: rotation interval must not be negative")

	// ErrNonPositiveMaxUses is returned when a usage cap is provided
	// but is zero or negative.
	ErrNonPositiveMaxUses = errors.New("token: max uses must be positive when set")

	// ErrNegativeUseCount is returned when the use count is below zero.
	ErrNegativeUseCount = errors.New("token: use count must not be negative")

	// ErrExpiryBeforeCreation is returned when an expiry is provided
	// that is not strictly after the creation instant.
	ErrExpiryBeforeCreation = errors.New("token: expiry must be after creation time")
)

// Token value format violations.
var (
	// ErrEmptyValue is returned for an empty token value.
	ErrEmptyValue = errors.New("token: value must not be empty")

	// ErrValueTooLong is returned for a token value over 255 characters.
	ErrValueTooLong = errors.New("token: value exceeds 255 characters")

	// ErrInvalidCharacter is returned for a token value containing a
	// character outside the unambiguous alphabet.
	ErrInvalidCharacter = errors.New("token: value contains invalid characters")
)
