package models

import (
	"time"
)

// TokenMode is the per-queue policy governing join-token expiry, usage and
// rotation behavior.
type TokenMode string

const (
	// TokenModeStatic uses the queue's permanent legacy secret; no
	// AccessToken rows are ever issued.
	TokenModeStatic TokenMode = "static"
	// TokenModeRotating issues time-boxed tokens replaced by the
	// scheduled rotation sweep.
	TokenModeRotating TokenMode = "rotating"
	// TokenModeOneTime issues single-use tokens replaced immediately
	// after consumption.
	TokenModeOneTime TokenMode = "one_time"
	// TokenModeTimeLimited issues time-boxed tokens without scheduled
	// rotation; regeneration is admin-triggered.
	TokenModeTimeLimited TokenMode = "time_limited"
)

// IsValid reports whether m is one of the known token modes.
func (m TokenMode) IsValid() bool {
	switch m {
	case TokenModeStatic, TokenModeRotating, TokenModeOneTime, TokenModeTimeLimited:
		return true
	}
	return false
}

// IsDynamic reports whether the mode issues AccessToken rows (everything
// except static).
func (m TokenMode) IsDynamic() bool {
	return m.IsValid() && m != TokenModeStatic
}

// Queue is the owning aggregate for join tokens. Only the token
// configuration fields are managed by this subsystem; ticket numbering,
// counter assignment and the rest of the queue workflow live elsewhere.
type Queue struct {
	ID   string `gorm:"primaryKey"          json:"id"`
	Name string `gorm:"not null"            json:"name"`

	AccessTokenMode      TokenMode  `gorm:"not null;default:'static';index" json:"access_token_mode"`
	TokenRotationMinutes int        `gorm:"not null;default:0"  json:"token_rotation_minutes"`
	TokenExpiryMinutes   int        `gorm:"not null;default:0"  json:"token_expiry_minutes"`
	TokenMaxUses         *int       `json:"token_max_uses,omitempty"`
	LastRotatedAt        *time.Time `json:"last_rotated_at,omitempty"`

	// StaticSecret is the permanent legacy join credential, used only
	// when AccessTokenMode is static.
	StaticSecret string `json:"static_secret,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RotationEnabled reports whether the queue participates in the scheduled
// rotation sweep.
func (q *Queue) RotationEnabled() bool {
	return q.AccessTokenMode == TokenModeRotating && q.TokenRotationMinutes > 0
}
