package store

import (
	"sync"
	"testing"
	"time"

	"github.com/knobo/simple-queue-management/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestStore(t *testing.T) *Store {
	// Use in-memory SQLite database for testing
	s, err := New("sqlite", ":memory:")
	require.NoError(t, err)
	return s
}

func intPtr(v int) *int { return &v }

func createTestQueue(t *testing.T, s *Store, mode models.TokenMode) *models.Queue {
	queue := &models.Queue{
		ID:                 uuid.New().String(),
		Name:               "Test Queue",
		AccessTokenMode:    mode,
		TokenExpiryMinutes: 15,
	}
	if mode == models.TokenModeRotating {
		queue.TokenRotationMinutes = 5
	}
	require.NoError(t, s.CreateQueue(queue))
	return queue
}

func createTestToken(t *testing.T, s *Store, queueID string, maxUses *int) *models.AccessToken {
	expires := time.Now().Add(15 * time.Minute)
	token := &models.AccessToken{
		ID:        uuid.New().String(),
		QueueID:   queueID,
		Value:     uuid.New().String()[:8] + uuid.New().String()[:8],
		ExpiresAt: &expires,
		MaxUses:   maxUses,
		IsActive:  true,
	}
	require.NoError(t, s.CreateAccessToken(token))
	return token
}

func TestGetQueue(t *testing.T) {
	s := setupTestStore(t)
	queue := createTestQueue(t, s, models.TokenModeRotating)

	got, err := s.GetQueue(queue.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.ID, got.ID)
	assert.Equal(t, models.TokenModeRotating, got.AccessTokenMode)
	assert.Equal(t, 5, got.TokenRotationMinutes)

	_, err = s.GetQueue("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGetRotatingQueues(t *testing.T) {
	s := setupTestStore(t)
	rotating := createTestQueue(t, s, models.TokenModeRotating)
	createTestQueue(t, s, models.TokenModeStatic)
	createTestQueue(t, s, models.TokenModeOneTime)

	// A rotating queue with interval 0 is not swept
	disabled := createTestQueue(t, s, models.TokenModeRotating)
	disabled.TokenRotationMinutes = 0
	require.NoError(t, s.UpdateQueue(disabled))

	queues, err := s.GetRotatingQueues()
	require.NoError(t, err)
	require.Len(t, queues, 1)
	assert.Equal(t, rotating.ID, queues[0].ID)
}

func TestUpdateLastRotatedAt(t *testing.T) {
	s := setupTestStore(t)
	queue := createTestQueue(t, s, models.TokenModeRotating)
	require.Nil(t, queue.LastRotatedAt)

	rotatedAt := time.Now().Truncate(time.Second)
	require.NoError(t, s.UpdateLastRotatedAt(queue.ID, rotatedAt))

	got, err := s.GetQueue(queue.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastRotatedAt)
	assert.WithinDuration(t, rotatedAt, *got.LastRotatedAt, time.Second)
}

func TestGetAccessTokenByValue(t *testing.T) {
	s := setupTestStore(t)
	queue := createTestQueue(t, s, models.TokenModeRotating)
	token := createTestToken(t, s, queue.ID, nil)

	got, err := s.GetAccessTokenByValue(token.Value)
	require.NoError(t, err)
	assert.Equal(t, token.ID, got.ID)
	assert.True(t, got.IsActive)
	assert.Equal(t, 0, got.UseCount)

	_, err = s.GetAccessTokenByValue("nosuchvalue")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCreateAccessToken_DuplicateValue(t *testing.T) {
	s := setupTestStore(t)
	queue := createTestQueue(t, s, models.TokenModeRotating)
	token := createTestToken(t, s, queue.ID, nil)

	dup := &models.AccessToken{
		ID:       uuid.New().String(),
		QueueID:  queue.ID,
		Value:    token.Value,
		IsActive: true,
	}
	err := s.CreateAccessToken(dup)
	assert.ErrorIs(t, err, ErrDuplicateTokenValue)
}

func TestGetCurrentTokenForQueue(t *testing.T) {
	s := setupTestStore(t)
	queue := createTestQueue(t, s, models.TokenModeRotating)

	_, err := s.GetCurrentTokenForQueue(queue.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	older := createTestToken(t, s, queue.ID, nil)
	require.NoError(t, s.DeactivateToken(older.ID))
	current := createTestToken(t, s, queue.ID, nil)

	got, err := s.GetCurrentTokenForQueue(queue.ID)
	require.NoError(t, err)
	assert.Equal(t, current.ID, got.ID)
}

func TestConsumeTokenUse(t *testing.T) {
	s := setupTestStore(t)
	queue := createTestQueue(t, s, models.TokenModeRotating)
	token := createTestToken(t, s, queue.ID, intPtr(2))

	ok, err := s.ConsumeTokenUse(token.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ConsumeTokenUse(token.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	// Cap reached: the conditional update matches no row
	ok, err = s.ConsumeTokenUse(token.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetAccessTokenByID(token.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UseCount)
}

func TestConsumeTokenUse_InactiveToken(t *testing.T) {
	s := setupTestStore(t)
	queue := createTestQueue(t, s, models.TokenModeRotating)
	token := createTestToken(t, s, queue.ID, nil)
	require.NoError(t, s.DeactivateToken(token.ID))

	ok, err := s.ConsumeTokenUse(token.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetAccessTokenByID(token.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UseCount)
}

func TestConsumeTokenUse_ExpiredToken(t *testing.T) {
	s := setupTestStore(t)
	queue := createTestQueue(t, s, models.TokenModeRotating)
	token := createTestToken(t, s, queue.ID, nil)

	ok, err := s.ConsumeTokenUse(token.ID, token.ExpiresAt.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsumeTokenUse_ConcurrentSingleUse(t *testing.T) {
	s := setupTestStore(t)
	queue := createTestQueue(t, s, models.TokenModeOneTime)
	token := createTestToken(t, s, queue.ID, intPtr(1))

	const attempts = 8
	results := make([]bool, attempts)
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.ConsumeTokenUse(token.ID, time.Now())
		}(i)
	}
	wg.Wait()

	successes := 0
	for i := 0; i < attempts; i++ {
		require.NoError(t, errs[i])
		if results[i] {
			successes++
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent consume may succeed")

	got, err := s.GetAccessTokenByID(token.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UseCount)
}

func TestDeactivateActiveTokensForQueue(t *testing.T) {
	s := setupTestStore(t)
	queue := createTestQueue(t, s, models.TokenModeRotating)
	other := createTestQueue(t, s, models.TokenModeRotating)

	createTestToken(t, s, queue.ID, nil)
	createTestToken(t, s, queue.ID, nil)
	untouched := createTestToken(t, s, other.ID, nil)

	count, err := s.DeactivateActiveTokensForQueue(queue.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	tokens, err := s.GetActiveTokensForQueue(queue.ID)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	// Tokens of other queues are untouched
	got, err := s.GetAccessTokenByID(untouched.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	// Second call is a no-op
	count, err = s.DeactivateActiveTokensForQueue(queue.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func newTokenRow(queueID string) *models.AccessToken {
	expires := time.Now().Add(15 * time.Minute)
	return &models.AccessToken{
		ID:        uuid.New().String(),
		QueueID:   queueID,
		Value:     uuid.New().String()[:8] + uuid.New().String()[:8],
		ExpiresAt: &expires,
		IsActive:  true,
	}
}

func TestReplaceActiveToken(t *testing.T) {
	s := setupTestStore(t)
	queue := createTestQueue(t, s, models.TokenModeRotating)
	createTestToken(t, s, queue.ID, nil)
	createTestToken(t, s, queue.ID, nil)

	replacement := newTokenRow(queue.ID)
	deactivated, err := s.ReplaceActiveToken(queue.ID, replacement)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deactivated)

	tokens, err := s.GetActiveTokensForQueue(queue.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, replacement.ID, tokens[0].ID)
}

func TestReplaceActiveToken_RollsBackOnInsertFailure(t *testing.T) {
	s := setupTestStore(t)
	queue := createTestQueue(t, s, models.TokenModeRotating)
	current := createTestToken(t, s, queue.ID, nil)

	// The successor collides on value, so the insert fails and the
	// deactivation must roll back with it.
	dup := newTokenRow(queue.ID)
	dup.Value = current.Value
	_, err := s.ReplaceActiveToken(queue.ID, dup)
	assert.ErrorIs(t, err, ErrDuplicateTokenValue)

	got, err := s.GetAccessTokenByID(current.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive, "failed replacement must leave the current token active")
}

func TestReplaceActiveToken_ConcurrentReplacements(t *testing.T) {
	s := setupTestStore(t)
	queue := createTestQueue(t, s, models.TokenModeRotating)
	createTestToken(t, s, queue.ID, nil)

	const replacements = 8
	errs := make([]error, replacements)
	var wg sync.WaitGroup
	for i := 0; i < replacements; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.ReplaceActiveToken(queue.ID, newTokenRow(queue.ID))
		}(i)
	}
	wg.Wait()

	for i := 0; i < replacements; i++ {
		require.NoError(t, errs[i])
	}

	// However the replacements interleave, exactly one token survives.
	tokens, err := s.GetActiveTokensForQueue(queue.ID)
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
}

func TestDeactivateToken_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	queue := createTestQueue(t, s, models.TokenModeRotating)
	token := createTestToken(t, s, queue.ID, nil)

	require.NoError(t, s.DeactivateToken(token.ID))
	require.NoError(t, s.DeactivateToken(token.ID))

	got, err := s.GetAccessTokenByID(token.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestPurgeInactiveTokens(t *testing.T) {
	s := setupTestStore(t)
	queue := createTestQueue(t, s, models.TokenModeRotating)

	old := createTestToken(t, s, queue.ID, nil)
	require.NoError(t, s.DeactivateToken(old.ID))
	stillActive := createTestToken(t, s, queue.ID, nil)

	deleted, err := s.PurgeInactiveTokens(time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = s.GetAccessTokenByID(old.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Active tokens survive regardless of age
	_, err = s.GetAccessTokenByID(stillActive.ID)
	assert.NoError(t, err)
}

func TestCountActiveTokens(t *testing.T) {
	s := setupTestStore(t)
	queue := createTestQueue(t, s, models.TokenModeRotating)

	createTestToken(t, s, queue.ID, nil)
	inactive := createTestToken(t, s, queue.ID, nil)
	require.NoError(t, s.DeactivateToken(inactive.ID))

	count, err := s.CountActiveTokens()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCountRotatingQueues(t *testing.T) {
	s := setupTestStore(t)
	createTestQueue(t, s, models.TokenModeRotating)
	createTestQueue(t, s, models.TokenModeStatic)

	count, err := s.CountRotatingQueues()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
