package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateTokenValue is returned when inserting a token whose
	// value collides with an existing row.
	ErrDuplicateTokenValue = errors.New("token value already exists")
)
