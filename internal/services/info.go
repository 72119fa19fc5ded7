package services

import (
	"time"

	"github.com/knobo/simple-queue-management/internal/models"
)

// TokenInfo is the read-only projection the kiosk display polls: the
// value to render as a QR code plus the countdowns it shows alongside.
type TokenInfo struct {
	Value    string           `json:"value"`
	IsStatic bool             `json:"is_static"`
	Mode     models.TokenMode `json:"mode"`

	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// SecondsUntilExpiry is nil when the token never expires.
	SecondsUntilExpiry *int64 `json:"seconds_until_expiry,omitempty"`

	// SecondsUntilRotation is nil when scheduled rotation is disabled.
	SecondsUntilRotation *int64 `json:"seconds_until_rotation,omitempty"`
}
