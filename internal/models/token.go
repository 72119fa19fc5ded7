package models

import (
	"time"
)

// AccessToken is a persisted join token for one queue. The value is the
// opaque string rendered as a QR code on the kiosk display; it is stored
// retrievably because the display keeps re-rendering it.
type AccessToken struct {
	ID      string `gorm:"primaryKey"          json:"id"`
	QueueID string `gorm:"not null;index"      json:"queue_id"`
	Value   string `gorm:"uniqueIndex;not null" json:"value"`

	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // nil means the token never expires
	MaxUses   *int       `json:"max_uses,omitempty"`   // nil means unlimited uses
	UseCount  int        `gorm:"not null;default:0"    json:"use_count"`
	IsActive  bool       `gorm:"not null;default:true;index" json:"is_active"`
}

// IsExpired reports whether the token's expiry instant has passed.
// Tokens without an expiry never expire.
func (t *AccessToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// IsExhausted reports whether the token's usage cap has been reached.
func (t *AccessToken) IsExhausted() bool {
	return t.MaxUses != nil && t.UseCount >= *t.MaxUses
}

// IsValid reports whether the token may currently be exchanged for a
// queue entry: active, not expired and not usage-exhausted.
func (t *AccessToken) IsValid(now time.Time) bool {
	return t.IsActive && !t.IsExpired(now) && !t.IsExhausted()
}
