package token

import (
	"time"
)

// State is the tri-state validity diagnostic for a token.
type State string

const (
	StateValid     State = "valid"
	StateExpired   State = "expired"
	StateExhausted State = "usage_exhausted"
)

// Status is the result of classifying a token's validity. MaxUses is set
// only when State is StateExhausted.
type Status struct {
	State   State
	MaxUses int
}

// Validity is a pure value type holding the time and usage attributes that
// decide whether a token is currently usable. It performs no I/O and never
// mutates; every method takes the current instant explicitly so callers
// (and tests) control the clock.
//
// Validity is used for diagnostics and countdown projections only. The
// authoritative mutation path for consumption is the store's conditional
// increment, not RecordUse.
type Validity struct {
	CreatedAt        time.Time
	ExpiresAt        *time.Time
	MaxUses          *int
	UseCount         int
	RotationInterval time.Duration
}

// NewValidity builds a Validity after checking its invariants. Each
// violated invariant yields its own distinct error.
func NewValidity(
	createdAt time.Time,
	expiresAt *time.Time,
	maxUses *int,
	useCount int,
	rotationInterval time.Duration,
) (Validity, error) {
	if rotationInterval < 0 {
		return Validity{}, ErrNegativeRotationInterval
	}
	if maxUses != nil && *maxUses <= 0 {
		return Validity{}, ErrNonPositiveMaxUses
	}
	if useCount < 0 {
		return Validity{}, ErrNegativeUseCount
	}
	if expiresAt != nil && !expiresAt.After(createdAt) {
		return Validity{}, ErrExpiryBeforeCreation
	}
	return Validity{
		CreatedAt:        createdAt,
		ExpiresAt:        expiresAt,
		MaxUses:          maxUses,
		UseCount:         useCount,
		RotationInterval: rotationInterval,
	}, nil
}

// IsValid reports whether the token is neither expired nor exhausted at
// the given instant.
func (v Validity) IsValid(now time.Time) bool {
	return !v.expired(now) && !v.exhausted()
}

// Classify returns exactly one diagnostic. Expiry takes precedence: a
// token that is both expired and exhausted reports expired.
func (v Validity) Classify(now time.Time) Status {
	if v.expired(now) {
		return Status{State: StateExpired}
	}
	if v.exhausted() {
		return Status{State: StateExhausted, MaxUses: *v.MaxUses}
	}
	return Status{State: StateValid}
}

// SecondsUntilExpiry returns nil when no expiry is configured, zero when
// the expiry has passed, and otherwise the remaining whole seconds.
func (v Validity) SecondsUntilExpiry(now time.Time) *int64 {
	if v.ExpiresAt == nil {
		return nil
	}
	remaining := int64(v.ExpiresAt.Sub(now) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// SecondsUntilRotation returns the whole seconds until the next scheduled
// rotation, or zero when rotation is disabled. Once the interval has
// elapsed the result is at or near zero.
func (v Validity) SecondsUntilRotation(now, lastRotatedAt time.Time) int64 {
	if v.RotationInterval == 0 {
		return 0
	}
	remaining := int64(lastRotatedAt.Add(v.RotationInterval).Sub(now) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// NeedsRotation reports whether rotation is enabled and the interval has
// elapsed since the last rotation.
func (v Validity) NeedsRotation(now, lastRotatedAt time.Time) bool {
	if v.RotationInterval == 0 {
		return false
	}
	return !now.Before(lastRotatedAt.Add(v.RotationInterval))
}

// RecordUse returns a copy with the use count incremented. The receiver is
// unchanged; this is for in-memory simulation and tests, never the
// authoritative consumption path.
func (v Validity) RecordUse() Validity {
	v.UseCount++
	return v
}

func (v Validity) expired(now time.Time) bool {
	return v.ExpiresAt != nil && !now.Before(*v.ExpiresAt)
}

func (v Validity) exhausted() bool {
	return v.MaxUses != nil && v.UseCount >= *v.MaxUses
}
