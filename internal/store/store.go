package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/knobo/simple-queue-management/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB

	// rowLocking is set for backends that support SELECT ... FOR UPDATE.
	// SQLite has no row locks but serializes writing transactions anyway.
	rowLocking bool
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := openDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// A pooled in-memory SQLite database would give each
		// connection its own empty database; writes also serialize
		// anyway under SQLite's single-writer model.
		sqlDB.SetMaxOpenConns(1)
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.Queue{},
		&models.AccessToken{},
	); err != nil {
		return nil, err
	}

	return &Store{db: db, rowLocking: driver == "postgres"}, nil
}

// Queue operations

func (s *Store) CreateQueue(queue *models.Queue) error {
	return s.db.Create(queue).Error
}

func (s *Store) GetQueue(id string) (*models.Queue, error) {
	var queue models.Queue
	if err := s.db.Where("id = ?", id).First(&queue).Error; err != nil {
		return nil, err
	}
	return &queue, nil
}

func (s *Store) ListQueues() ([]models.Queue, error) {
	var queues []models.Queue
	if err := s.db.Order("created_at DESC").Find(&queues).Error; err != nil {
		return nil, err
	}
	return queues, nil
}

func (s *Store) UpdateQueue(queue *models.Queue) error {
	return s.db.Save(queue).Error
}

// GetRotatingQueues returns all queues whose mode is rotating with a
// positive rotation interval. The caller decides per queue whether the
// interval has elapsed; keeping the deadline arithmetic in Go avoids
// dialect-specific date math.
func (s *Store) GetRotatingQueues() ([]models.Queue, error) {
	var queues []models.Queue
	err := s.db.Where("access_token_mode = ? AND token_rotation_minutes > 0", models.TokenModeRotating).
		Find(&queues).Error
	if err != nil {
		return nil, err
	}
	return queues, nil
}

// UpdateLastRotatedAt persists the rotation timestamp for a queue.
func (s *Store) UpdateLastRotatedAt(queueID string, rotatedAt time.Time) error {
	return s.db.Model(&models.Queue{}).
		Where("id = ?", queueID).
		Update("last_rotated_at", rotatedAt).Error
}

// Access token operations

func (s *Store) CreateAccessToken(token *models.AccessToken) error {
	if err := s.db.Create(token).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateTokenValue
		}
		return err
	}
	return nil
}

func (s *Store) GetAccessTokenByValue(value string) (*models.AccessToken, error) {
	var t models.AccessToken
	if err := s.db.Where("value = ?", value).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetAccessTokenByID(id string) (*models.AccessToken, error) {
	var t models.AccessToken
	if err := s.db.Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetActiveTokensForQueue returns all active tokens for a queue, newest
// first. More than one result means the at-most-one-active invariant was
// violated somewhere.
func (s *Store) GetActiveTokensForQueue(queueID string) ([]models.AccessToken, error) {
	var tokens []models.AccessToken
	err := s.db.Where("queue_id = ? AND is_active = ?", queueID, true).
		Order("created_at DESC").
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// GetCurrentTokenForQueue returns the newest active token for a queue, or
// gorm.ErrRecordNotFound when the queue has none.
func (s *Store) GetCurrentTokenForQueue(queueID string) (*models.AccessToken, error) {
	var t models.AccessToken
	err := s.db.Where("queue_id = ? AND is_active = ?", queueID, true).
		Order("created_at DESC").
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ConsumeTokenUse atomically increments a token's use count, but only if
// the row is still active, unexpired and under its usage cap. The
// conditional update closes the race between two concurrent consumers of
// a capped token: the database applies the WHERE clause and the increment
// as one statement, so at most maxUses increments ever succeed.
func (s *Store) ConsumeTokenUse(tokenID string, now time.Time) (bool, error) {
	result := s.db.Model(&models.AccessToken{}).
		Where("id = ? AND is_active = ?", tokenID, true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Where("max_uses IS NULL OR use_count < max_uses").
		Update("use_count", gorm.Expr("use_count + 1"))
	if result.Error != nil {
		return false, fmt.Errorf("failed to consume token use: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeactivateActiveTokensForQueue flips every active token for a queue to
// inactive and returns how many rows changed. Used before generating a
// replacement so at most one active token survives.
func (s *Store) DeactivateActiveTokensForQueue(queueID string) (int64, error) {
	result := s.db.Model(&models.AccessToken{}).
		Where("queue_id = ? AND is_active = ?", queueID, true).
		Update("is_active", false)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReplaceActiveToken deactivates every active token for a queue and
// inserts the successor in a single transaction, so two concurrent
// replacements cannot interleave and leave two active tokens behind.
// Returns how many predecessors were deactivated. On postgres the queue
// row is locked first so replacements for the same queue serialize even
// across instances; SQLite rejects FOR UPDATE but its single-writer
// model serializes the transactions regardless.
func (s *Store) ReplaceActiveToken(queueID string, token *models.AccessToken) (int64, error) {
	var deactivated int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if s.rowLocking {
			var queue models.Queue
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", queueID).
				First(&queue).Error; err != nil {
				return err
			}
		}

		result := tx.Model(&models.AccessToken{}).
			Where("queue_id = ? AND is_active = ?", queueID, true).
			Update("is_active", false)
		if result.Error != nil {
			return result.Error
		}
		deactivated = result.RowsAffected

		if err := tx.Create(token).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateTokenValue
			}
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deactivated, nil
}

// DeactivateToken deactivates a single token. Idempotent: deactivating an
// already inactive token is not an error.
func (s *Store) DeactivateToken(tokenID string) error {
	return s.db.Model(&models.AccessToken{}).
		Where("id = ?", tokenID).
		Update("is_active", false).Error
}

// PurgeInactiveTokens deletes inactive token rows created before the
// cutoff. Correctness never depends on deletion; this only keeps the
// table bounded.
func (s *Store) PurgeInactiveTokens(before time.Time) (int64, error) {
	result := s.db.Where("is_active = ? AND created_at < ?", false, before).
		Delete(&models.AccessToken{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Metrics queries

func (s *Store) CountActiveTokens() (int64, error) {
	var count int64
	err := s.db.Model(&models.AccessToken{}).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}

func (s *Store) CountRotatingQueues() (int64, error) {
	var count int64
	err := s.db.Model(&models.Queue{}).
		Where("access_token_mode = ? AND token_rotation_minutes > 0", models.TokenModeRotating).
		Count(&count).Error
	return count, err
}

// Health checks the database connection
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
