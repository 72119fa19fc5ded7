package models

import (
	"testing"
	"time"
)

func timePtr(t time.Time) *time.Time { return &t }
func intPtr(v int) *int              { return &v }

func TestAccessToken_IsExpired(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{
			name:      "no expiry never expires",
			expiresAt: nil,
			want:      false,
		},
		{
			name:      "future expiry",
			expiresAt: timePtr(now.Add(time.Minute)),
			want:      false,
		},
		{
			name:      "past expiry",
			expiresAt: timePtr(now.Add(-time.Minute)),
			want:      true,
		},
		{
			name:      "expiry exactly now counts as expired",
			expiresAt: timePtr(now),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := &AccessToken{ExpiresAt: tt.expiresAt}
			if got := tok.IsExpired(now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccessToken_IsExhausted(t *testing.T) {
	tests := []struct {
		name     string
		maxUses  *int
		useCount int
		want     bool
	}{
		{name: "no cap", maxUses: nil, useCount: 100, want: false},
		{name: "under cap", maxUses: intPtr(3), useCount: 2, want: false},
		{name: "at cap", maxUses: intPtr(3), useCount: 3, want: true},
		{name: "over cap", maxUses: intPtr(3), useCount: 4, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := &AccessToken{MaxUses: tt.maxUses, UseCount: tt.useCount}
			if got := tok.IsExhausted(); got != tt.want {
				t.Errorf("IsExhausted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccessToken_IsValid(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		token AccessToken
		want  bool
	}{
		{
			name:  "active without limits",
			token: AccessToken{IsActive: true},
			want:  true,
		},
		{
			name:  "inactive",
			token: AccessToken{IsActive: false},
			want:  false,
		},
		{
			name:  "active but expired",
			token: AccessToken{IsActive: true, ExpiresAt: timePtr(now.Add(-time.Second))},
			want:  false,
		},
		{
			name:  "active but exhausted",
			token: AccessToken{IsActive: true, MaxUses: intPtr(1), UseCount: 1},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.IsValid(now); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenMode_IsValid(t *testing.T) {
	valid := []TokenMode{TokenModeStatic, TokenModeRotating, TokenModeOneTime, TokenModeTimeLimited}
	for _, m := range valid {
		if !m.IsValid() {
			t.Errorf("IsValid(%q) = false, want true", m)
		}
	}
	if TokenMode("bogus").IsValid() {
		t.Error(`IsValid("bogus") = true, want false`)
	}
	if TokenMode("").IsValid() {
		t.Error(`IsValid("") = true, want false`)
	}
}

func TestTokenMode_IsDynamic(t *testing.T) {
	if TokenModeStatic.IsDynamic() {
		t.Error("static mode must not be dynamic")
	}
	for _, m := range []TokenMode{TokenModeRotating, TokenModeOneTime, TokenModeTimeLimited} {
		if !m.IsDynamic() {
			t.Errorf("IsDynamic(%q) = false, want true", m)
		}
	}
	if TokenMode("bogus").IsDynamic() {
		t.Error("unknown mode must not be dynamic")
	}
}

func TestQueue_RotationEnabled(t *testing.T) {
	tests := []struct {
		name  string
		queue Queue
		want  bool
	}{
		{
			name:  "rotating with interval",
			queue: Queue{AccessTokenMode: TokenModeRotating, TokenRotationMinutes: 5},
			want:  true,
		},
		{
			name:  "rotating without interval",
			queue: Queue{AccessTokenMode: TokenModeRotating, TokenRotationMinutes: 0},
			want:  false,
		},
		{
			name:  "one_time with interval configured",
			queue: Queue{AccessTokenMode: TokenModeOneTime, TokenRotationMinutes: 5},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.queue.RotationEnabled(); got != tt.want {
				t.Errorf("RotationEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}
