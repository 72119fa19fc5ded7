package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestNewValidity_Valid(t *testing.T) {
	created := time.Now()
	expires := created.Add(10 * time.Minute)

	v, err := NewValidity(created, &expires, intPtr(3), 0, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, created, v.CreatedAt)
	assert.Equal(t, 3, *v.MaxUses)
	assert.Equal(t, 0, v.UseCount)
}

func TestNewValidity_NegativeRotationInterval(t *testing.T) {
	_, err := NewValidity(time.Now(), nil, nil, 0, -time.Minute)
	assert.ErrorIs(t, err, ErrNegativeRotationInterval)
}

func TestNewValidity_NonPositiveMaxUses(t *testing.T) {
	_, err := NewValidity(time.Now(), nil, intPtr(0), 0, 0)
	assert.ErrorIs(t, err, ErrNonPositiveMaxUses)

	_, err = NewValidity(time.Now(), nil, intPtr(-5), 0, 0)
	assert.ErrorIs(t, err, ErrNonPositiveMaxUses)
}

func TestNewValidity_NegativeUseCount(t *testing.T) {
	_, err := NewValidity(time.Now(), nil, nil, -1, 0)
	assert.ErrorIs(t, err, ErrNegativeUseCount)
}

func TestNewValidity_ExpiryNotAfterCreation(t *testing.T) {
	created := time.Now()

	// Expiry equal to creation is rejected
	_, err := NewValidity(created, &created, nil, 0, 0)
	assert.ErrorIs(t, err, ErrExpiryBeforeCreation)

	// Expiry before creation is rejected
	before := created.Add(-time.Second)
	_, err = NewValidity(created, &before, nil, 0, 0)
	assert.ErrorIs(t, err, ErrExpiryBeforeCreation)
}

func TestValidity_IsValid(t *testing.T) {
	created := time.Now()
	expires := created.Add(10 * time.Minute)

	v, err := NewValidity(created, &expires, intPtr(2), 0, 0)
	require.NoError(t, err)

	assert.True(t, v.IsValid(created))
	assert.True(t, v.IsValid(expires.Add(-time.Second)))

	// Exactly at expiry the token is no longer valid
	assert.False(t, v.IsValid(expires))
	assert.False(t, v.IsValid(expires.Add(time.Hour)))
}

func TestValidity_IsValid_NoExpiryNoCap(t *testing.T) {
	v, err := NewValidity(time.Now(), nil, nil, 1000, 0)
	require.NoError(t, err)
	assert.True(t, v.IsValid(time.Now().Add(100*365*24*time.Hour)))
}

func TestValidity_Classify(t *testing.T) {
	created := time.Now()
	expires := created.Add(time.Minute)

	v, err := NewValidity(created, &expires, intPtr(2), 0, 0)
	require.NoError(t, err)

	assert.Equal(t, StateValid, v.Classify(created).State)
	assert.Equal(t, StateExpired, v.Classify(expires).State)

	exhausted := v.RecordUse().RecordUse()
	status := exhausted.Classify(created)
	assert.Equal(t, StateExhausted, status.State)
	assert.Equal(t, 2, status.MaxUses)
}

func TestValidity_Classify_ExpiredBeatsExhausted(t *testing.T) {
	created := time.Now()
	expires := created.Add(time.Minute)

	v, err := NewValidity(created, &expires, intPtr(1), 1, 0)
	require.NoError(t, err)

	// Both expired and exhausted: expiry wins
	status := v.Classify(expires.Add(time.Second))
	assert.Equal(t, StateExpired, status.State)
}

func TestValidity_SecondsUntilExpiry(t *testing.T) {
	created := time.Now()

	// No expiry configured
	v, err := NewValidity(created, nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Nil(t, v.SecondsUntilExpiry(created))

	expires := created.Add(90 * time.Second)
	v, err = NewValidity(created, &expires, nil, 0, 0)
	require.NoError(t, err)

	remaining := v.SecondsUntilExpiry(created)
	require.NotNil(t, remaining)
	assert.Equal(t, int64(90), *remaining)

	// Past expiry clamps to zero
	remaining = v.SecondsUntilExpiry(expires.Add(time.Hour))
	require.NotNil(t, remaining)
	assert.Equal(t, int64(0), *remaining)
}

func TestValidity_SecondsUntilRotation(t *testing.T) {
	created := time.Now()

	// Rotation disabled
	v, err := NewValidity(created, nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.SecondsUntilRotation(created, created))

	v, err = NewValidity(created, nil, nil, 0, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(300), v.SecondsUntilRotation(created, created))
	assert.Equal(t, int64(60), v.SecondsUntilRotation(created.Add(4*time.Minute), created))
	assert.Equal(t, int64(0), v.SecondsUntilRotation(created.Add(6*time.Minute), created))
}

func TestValidity_NeedsRotation(t *testing.T) {
	now := time.Now()

	// Rotation disabled: never needs rotation
	v, err := NewValidity(now, nil, nil, 0, 0)
	require.NoError(t, err)
	assert.False(t, v.NeedsRotation(now.Add(time.Hour), now))

	v, err = NewValidity(now, nil, nil, 0, 10*time.Minute)
	require.NoError(t, err)

	// Immediately after rotation: no
	assert.False(t, v.NeedsRotation(now, now))
	assert.False(t, v.NeedsRotation(now.Add(10*time.Minute-time.Second), now))

	// At and past the boundary: yes
	assert.True(t, v.NeedsRotation(now.Add(10*time.Minute), now))
	assert.True(t, v.NeedsRotation(now.Add(time.Hour), now))
}

func TestValidity_RecordUse(t *testing.T) {
	v, err := NewValidity(time.Now(), nil, intPtr(3), 0, 0)
	require.NoError(t, err)

	next := v.RecordUse()
	assert.Equal(t, 1, next.UseCount)
	// Receiver is untouched
	assert.Equal(t, 0, v.UseCount)

	now := time.Now()
	third := next.RecordUse().RecordUse()
	assert.Equal(t, 3, third.UseCount)
	assert.False(t, third.IsValid(now))
	assert.Equal(t, StateExhausted, third.Classify(now).State)
}
