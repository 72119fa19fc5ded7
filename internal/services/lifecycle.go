package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/knobo/simple-queue-management/internal/config"
	"github.com/knobo/simple-queue-management/internal/core"
	"github.com/knobo/simple-queue-management/internal/models"
	"github.com/knobo/simple-queue-management/internal/store"
	"github.com/knobo/simple-queue-management/internal/token"
	"github.com/knobo/simple-queue-management/internal/util"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Token issuance reasons, used as metric labels and log context.
const (
	reasonDisplay            = "display"
	reasonRotation           = "rotation"
	reasonOneTimeReplacement = "one_time_replacement"
	reasonAdmin              = "admin"
	reasonConfigChange       = "config_change"
)

const tokenInfoKeyPrefix = "tokeninfo:"

// TokenStore is the persistence surface the lifecycle service depends
// on. *store.Store implements it; tests wrap it to inject failures.
type TokenStore interface {
	GetQueue(id string) (*models.Queue, error)
	GetRotatingQueues() ([]models.Queue, error)
	UpdateQueue(queue *models.Queue) error
	UpdateLastRotatedAt(queueID string, rotatedAt time.Time) error

	GetAccessTokenByValue(value string) (*models.AccessToken, error)
	GetAccessTokenByID(id string) (*models.AccessToken, error)
	GetCurrentTokenForQueue(queueID string) (*models.AccessToken, error)
	CreateAccessToken(token *models.AccessToken) error
	ReplaceActiveToken(queueID string, token *models.AccessToken) (int64, error)
	ConsumeTokenUse(tokenID string, now time.Time) (bool, error)
	DeactivateToken(tokenID string) error
	DeactivateActiveTokensForQueue(queueID string) (int64, error)
}

var _ TokenStore = (*store.Store)(nil)

// TokenLifecycleService issues, validates, consumes and rotates the join
// tokens gating entry to a queue. It is the only component in the
// subsystem with side effects; all validity arithmetic lives in the pure
// token package.
type TokenLifecycleService struct {
	store     TokenStore
	cfg       *config.Config
	infoCache core.Cache[TokenInfo]
	metrics   core.Recorder
	clock     core.Clock
}

// NewTokenLifecycleService wires the lifecycle service. A nil clock falls
// back to the system clock; tests inject a fake one.
func NewTokenLifecycleService(
	s TokenStore,
	cfg *config.Config,
	infoCache core.Cache[TokenInfo],
	m core.Recorder,
	clock core.Clock,
) *TokenLifecycleService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &TokenLifecycleService{
		store:     s,
		cfg:       cfg,
		infoCache: infoCache,
		metrics:   m,
		clock:     clock,
	}
}

// ValidateToken looks up a token by value and returns the owning queue
// when the token is currently usable. It never mutates state, so a client
// may poll it freely without spending a single-use token. Invalid tokens
// are reported with distinct sentinel errors (ErrTokenNotFound,
// ErrTokenInactive, ErrTokenExpired, ErrTokenExhausted).
func (s *TokenLifecycleService) ValidateToken(value string) (*models.Queue, error) {
	start := s.clock.Now()

	// A malformed value can never match a generated token; skip the
	// database round trip.
	if err := token.ValidateValue(value); err != nil {
		s.metrics.RecordTokenValidation("not_found", s.clock.Now().Sub(start))
		return nil, ErrTokenNotFound
	}

	t, err := s.store.GetAccessTokenByValue(value)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.RecordTokenValidation("not_found", s.clock.Now().Sub(start))
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	queue, err := s.store.GetQueue(t.QueueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Orphaned token: the queue is gone, the token is useless.
			s.metrics.RecordTokenValidation("not_found", s.clock.Now().Sub(start))
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to look up queue: %w", err)
	}

	if vErr := s.checkTokenUsable(t); vErr != nil {
		s.metrics.RecordTokenValidation(validationResult(vErr), s.clock.Now().Sub(start))
		return nil, vErr
	}

	s.metrics.RecordTokenValidation("valid", s.clock.Now().Sub(start))
	return queue, nil
}

// ConsumeToken records one use of a token. It re-checks validity, then
// delegates the increment to the store's conditional update so two
// concurrent consumers of a capped token cannot both succeed. For a
// one_time queue the consumed token is deactivated immediately and a
// replacement issued so the next display render already has a fresh code.
// Returns false (with no mutation) for any currently invalid token.
func (s *TokenLifecycleService) ConsumeToken(ctx context.Context, value string) (bool, error) {
	t, err := s.store.GetAccessTokenByValue(value)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.RecordTokenConsumed("unknown", false)
			return false, nil
		}
		return false, fmt.Errorf("failed to look up token: %w", err)
	}

	queue, err := s.store.GetQueue(t.QueueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.RecordTokenConsumed("unknown", false)
			return false, nil
		}
		return false, fmt.Errorf("failed to look up queue: %w", err)
	}
	mode := string(queue.AccessTokenMode)

	// The conditional update is the authoritative validity check; the
	// read above only exists to find the owning queue and its mode.
	ok, err := s.store.ConsumeTokenUse(t.ID, s.clock.Now())
	if err != nil {
		return false, err
	}
	if !ok {
		s.metrics.RecordTokenConsumed(mode, false)
		return false, nil
	}
	s.metrics.RecordTokenConsumed(mode, true)

	if queue.AccessTokenMode == models.TokenModeOneTime {
		if err := s.store.DeactivateToken(t.ID); err != nil {
			return true, fmt.Errorf("failed to deactivate one-time token: %w", err)
		}
		s.metrics.RecordTokenDeactivated("one_time_use")
		if _, err := s.replaceToken(ctx, queue, reasonOneTimeReplacement); err != nil {
			return true, fmt.Errorf("failed to replace one-time token: %w", err)
		}
	}

	s.invalidateTokenInfo(ctx, queue.ID)
	return true, nil
}

// GetCurrentToken returns the token the queue's display should render.
// Static queues have none (the caller falls back to the legacy secret).
// For dynamic queues a missing or invalid current token is replaced on
// the spot so the display never renders a dead code.
func (s *TokenLifecycleService) GetCurrentToken(ctx context.Context, queueID string) (*models.AccessToken, error) {
	queue, err := s.getQueue(queueID)
	if err != nil {
		return nil, err
	}
	if queue.AccessTokenMode == models.TokenModeStatic {
		return nil, nil
	}

	current, err := s.store.GetCurrentTokenForQueue(queue.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up current token: %w", err)
	}
	if current != nil && current.IsValid(s.clock.Now()) {
		return current, nil
	}

	return s.replaceToken(ctx, queue, reasonDisplay)
}

// GenerateToken builds and persists a token for the queue, applying the
// mode's expiry and usage-cap policy: no expiry for static, a forced cap
// of one use for one_time, otherwise the queue's configured cap.
//
// GenerateToken alone does not deactivate predecessors; callers that need
// the at-most-one-active guarantee go through the replace path.
func (s *TokenLifecycleService) GenerateToken(queue *models.Queue) (*models.AccessToken, error) {
	t, err := s.buildToken(queue)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateAccessToken(t); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}
	return t, nil
}

// buildToken constructs an unpersisted token with the queue's expiry and
// usage-cap policy applied.
func (s *TokenLifecycleService) buildToken(queue *models.Queue) (*models.AccessToken, error) {
	value, err := token.Generate(s.cfg.TokenValueLength)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	t := &models.AccessToken{
		ID:        uuid.New().String(),
		QueueID:   queue.ID,
		Value:     value,
		CreatedAt: now,
		IsActive:  true,
	}

	if queue.AccessTokenMode != models.TokenModeStatic {
		expiry := s.expiryWindow(queue)
		expiresAt := now.Add(expiry)
		t.ExpiresAt = &expiresAt
	}

	if queue.AccessTokenMode == models.TokenModeOneTime {
		one := 1
		t.MaxUses = &one
	} else {
		t.MaxUses = queue.TokenMaxUses
	}

	return t, nil
}

// GenerateNewToken is the explicit, admin-triggered rotation: it replaces
// the queue's active token with a fresh one. Rejected for static queues
// (ErrStaticTokenMode); rotating queues also get their rotation timer
// reset so the sweep does not immediately rotate again.
func (s *TokenLifecycleService) GenerateNewToken(ctx context.Context, queueID string) (*models.AccessToken, error) {
	queue, err := s.getQueue(queueID)
	if err != nil {
		return nil, err
	}
	if queue.AccessTokenMode == models.TokenModeStatic {
		return nil, ErrStaticTokenMode
	}

	t, err := s.replaceToken(ctx, queue, reasonAdmin)
	if err != nil {
		return nil, err
	}

	if queue.RotationEnabled() {
		if err := s.store.UpdateLastRotatedAt(queue.ID, s.clock.Now()); err != nil {
			return nil, fmt.Errorf("failed to update rotation timestamp: %w", err)
		}
	}
	return t, nil
}

// DeactivateToken unconditionally deactivates a token by id. Idempotent:
// deactivating an already inactive token succeeds.
func (s *TokenLifecycleService) DeactivateToken(ctx context.Context, tokenID string) error {
	t, err := s.store.GetAccessTokenByID(tokenID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("failed to look up token: %w", err)
	}

	if err := s.store.DeactivateToken(t.ID); err != nil {
		return fmt.Errorf("failed to deactivate token: %w", err)
	}
	s.metrics.RecordTokenDeactivated(reasonAdmin)
	s.invalidateTokenInfo(ctx, t.QueueID)
	return nil
}

// UpdateTokenConfig persists a queue's token configuration. Switching
// from static to a dynamic mode eagerly issues the first token so the
// join surface has something to render immediately; switching to static
// deactivates any dynamic tokens still active.
func (s *TokenLifecycleService) UpdateTokenConfig(
	ctx context.Context,
	queueID string,
	mode models.TokenMode,
	rotationMinutes, expiryMinutes int,
	maxUses *int,
) (*models.Queue, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTokenMode, mode)
	}
	if rotationMinutes < 0 {
		return nil, token.ErrNegativeRotationInterval
	}
	if maxUses != nil && *maxUses <= 0 {
		return nil, token.ErrNonPositiveMaxUses
	}

	queue, err := s.getQueue(queueID)
	if err != nil {
		return nil, err
	}
	wasStatic := queue.AccessTokenMode == models.TokenModeStatic

	queue.AccessTokenMode = mode
	queue.TokenRotationMinutes = rotationMinutes
	queue.TokenExpiryMinutes = expiryMinutes
	queue.TokenMaxUses = maxUses
	if err := s.store.UpdateQueue(queue); err != nil {
		return nil, fmt.Errorf("failed to update queue config: %w", err)
	}

	switch {
	case wasStatic && mode.IsDynamic():
		if _, err := s.replaceToken(ctx, queue, reasonConfigChange); err != nil {
			return nil, err
		}
	case mode == models.TokenModeStatic:
		count, err := s.store.DeactivateActiveTokensForQueue(queue.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to deactivate tokens: %w", err)
		}
		for ; count > 0; count-- {
			s.metrics.RecordTokenDeactivated(reasonConfigChange)
		}
	}

	s.invalidateTokenInfo(ctx, queue.ID)
	return queue, nil
}

// RotateTokens is the scheduled sweep: every rotating queue whose
// interval has elapsed gets its active token replaced and its rotation
// timestamp advanced. A failure on one queue is logged and counted but
// never stops the rest of the batch; the next tick retries it naturally.
func (s *TokenLifecycleService) RotateTokens(ctx context.Context) (rotated, failed int) {
	start := s.clock.Now()
	defer func() {
		s.metrics.RecordRotationSweep(rotated, failed, s.clock.Now().Sub(start))
	}()

	queues, err := s.store.GetRotatingQueues()
	if err != nil {
		log.Printf("Rotation sweep: failed to list rotating queues: %v", err)
		s.metrics.RecordDatabaseQueryError("get_rotating_queues")
		return 0, 0
	}

	for i := range queues {
		queue := &queues[i]
		if ctx.Err() != nil {
			return rotated, failed
		}
		if !s.needsRotation(queue) {
			continue
		}
		if err := s.rotateQueue(ctx, queue); err != nil {
			log.Printf("Rotation sweep: failed to rotate queue %s: %v", queue.ID, err)
			failed++
			continue
		}
		rotated++
	}
	return rotated, failed
}

// GetJoinURL returns the URL the display encodes as a QR code: the legacy
// static form for static queues, the token form otherwise (generating a
// token if the queue has none).
func (s *TokenLifecycleService) GetJoinURL(ctx context.Context, queueID, baseURL string) (string, error) {
	queue, err := s.getQueue(queueID)
	if err != nil {
		return "", err
	}
	if queue.AccessTokenMode == models.TokenModeStatic {
		return util.StaticJoinURL(baseURL, queue.ID, queue.StaticSecret), nil
	}

	t, err := s.GetCurrentToken(ctx, queueID)
	if err != nil {
		return "", err
	}
	return util.TokenJoinURL(baseURL, t.Value), nil
}

// GetTokenInfo returns the display projection for a queue, cached with a
// short TTL because displays poll it continuously. Static queues report
// the legacy secret with no expiry and no rotation countdown.
func (s *TokenLifecycleService) GetTokenInfo(ctx context.Context, queueID string) (*TokenInfo, error) {
	if cached, err := s.infoCache.Get(ctx, tokenInfoKeyPrefix+queueID); err == nil {
		return &cached, nil
	}

	queue, err := s.getQueue(queueID)
	if err != nil {
		return nil, err
	}

	info, err := s.buildTokenInfo(ctx, queue)
	if err != nil {
		return nil, err
	}

	_ = s.infoCache.Set(ctx, tokenInfoKeyPrefix+queueID, *info, s.cfg.CacheTTL)
	return info, nil
}

func (s *TokenLifecycleService) buildTokenInfo(ctx context.Context, queue *models.Queue) (*TokenInfo, error) {
	if queue.AccessTokenMode == models.TokenModeStatic {
		return &TokenInfo{
			Value:    queue.StaticSecret,
			IsStatic: true,
			Mode:     models.TokenModeStatic,
		}, nil
	}

	t, err := s.GetCurrentToken(ctx, queue.ID)
	if err != nil {
		return nil, err
	}

	validity, err := s.validityFor(t, queue)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	info := &TokenInfo{
		Value:              t.Value,
		Mode:               queue.AccessTokenMode,
		ExpiresAt:          t.ExpiresAt,
		SecondsUntilExpiry: validity.SecondsUntilExpiry(now),
	}
	if queue.RotationEnabled() {
		lastRotated := queue.CreatedAt
		if queue.LastRotatedAt != nil {
			lastRotated = *queue.LastRotatedAt
		}
		remaining := validity.SecondsUntilRotation(now, lastRotated)
		info.SecondsUntilRotation = &remaining
	}
	return info, nil
}

// rotateQueue performs one queue's rotation: deactivate the old token,
// issue the replacement, advance the timestamp. A client validating at
// this exact instant sees either the old token (still valid until
// deactivated) or the new one.
func (s *TokenLifecycleService) rotateQueue(ctx context.Context, queue *models.Queue) error {
	if _, err := s.replaceToken(ctx, queue, reasonRotation); err != nil {
		return err
	}
	if err := s.store.UpdateLastRotatedAt(queue.ID, s.clock.Now()); err != nil {
		return fmt.Errorf("failed to update rotation timestamp: %w", err)
	}
	return nil
}

// replaceToken swaps the queue's active tokens for a fresh one. The
// deactivate-and-insert runs as one store transaction, so concurrent
// replacements (sweep vs admin rotation, or two display polls hitting
// the regenerate branch at once) can never leave two active tokens.
func (s *TokenLifecycleService) replaceToken(ctx context.Context, queue *models.Queue, reason string) (*models.AccessToken, error) {
	t, err := s.buildToken(queue)
	if err != nil {
		return nil, err
	}

	count, err := s.store.ReplaceActiveToken(queue.ID, t)
	if err != nil {
		return nil, fmt.Errorf("failed to replace token: %w", err)
	}
	for ; count > 0; count-- {
		s.metrics.RecordTokenDeactivated(reason)
	}
	s.metrics.RecordTokenIssued(string(queue.AccessTokenMode), reason)
	s.invalidateTokenInfo(ctx, queue.ID)
	return t, nil
}

func (s *TokenLifecycleService) needsRotation(queue *models.Queue) bool {
	if !queue.RotationEnabled() {
		return false
	}
	// A queue that has never rotated is due immediately.
	if queue.LastRotatedAt == nil {
		return true
	}
	interval := time.Duration(queue.TokenRotationMinutes) * time.Minute
	return !s.clock.Now().Before(queue.LastRotatedAt.Add(interval))
}

// checkTokenUsable maps the token's diagnostic onto the service's
// sentinel errors, checking the active flag first and expiry before
// usage exhaustion.
func (s *TokenLifecycleService) checkTokenUsable(t *models.AccessToken) error {
	if !t.IsActive {
		return ErrTokenInactive
	}
	validity, err := token.NewValidity(t.CreatedAt, t.ExpiresAt, t.MaxUses, t.UseCount, 0)
	if err != nil {
		return fmt.Errorf("token %s has inconsistent attributes: %w", t.ID, err)
	}
	switch status := validity.Classify(s.clock.Now()); status.State {
	case token.StateExpired:
		return ErrTokenExpired
	case token.StateExhausted:
		return ErrTokenExhausted
	default:
		return nil
	}
}

func (s *TokenLifecycleService) validityFor(t *models.AccessToken, queue *models.Queue) (token.Validity, error) {
	rotation := time.Duration(0)
	if queue.RotationEnabled() {
		rotation = time.Duration(queue.TokenRotationMinutes) * time.Minute
	}
	v, err := token.NewValidity(t.CreatedAt, t.ExpiresAt, t.MaxUses, t.UseCount, rotation)
	if err != nil {
		return token.Validity{}, fmt.Errorf("token %s has inconsistent attributes: %w", t.ID, err)
	}
	return v, nil
}

func (s *TokenLifecycleService) expiryWindow(queue *models.Queue) time.Duration {
	if queue.TokenExpiryMinutes > 0 {
		return time.Duration(queue.TokenExpiryMinutes) * time.Minute
	}
	return s.cfg.DefaultTokenExpiry
}

func (s *TokenLifecycleService) getQueue(queueID string) (*models.Queue, error) {
	queue, err := s.store.GetQueue(queueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQueueNotFound
		}
		return nil, fmt.Errorf("failed to look up queue: %w", err)
	}
	return queue, nil
}

func (s *TokenLifecycleService) invalidateTokenInfo(ctx context.Context, queueID string) {
	if err := s.infoCache.Delete(ctx, tokenInfoKeyPrefix+queueID); err != nil {
		log.Printf("Failed to invalidate token info cache for queue %s: %v", queueID, err)
	}
}

func validationResult(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenExhausted):
		return "usage_exhausted"
	case errors.Is(err, ErrTokenInactive):
		return "inactive"
	default:
		return "not_found"
	}
}
