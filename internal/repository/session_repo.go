package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nsvirk/hrassistapi/internal/apperr"
	"github.com/nsvirk/hrassistapi/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionMutator edits a session in place inside an atomic update
type SessionMutator func(s *models.SessionModel) error

// SessionRepository persists conversation sessions.
// A row whose ExpiresAt is not after now reads as absent.
type SessionRepository interface {
	// Create inserts s, replacing an expired row with the same thread id.
	// Returns apperr.ErrConflict when a live session already exists.
	Create(ctx context.Context, s *models.SessionModel, now time.Time) error
	Get(ctx context.Context, threadID string, now time.Time) (*models.SessionModel, error)
	// Update applies fn atomically and sets UpdatedAt to now
	Update(ctx context.Context, threadID string, now time.Time, fn SessionMutator) (*models.SessionModel, error)
	Delete(ctx context.Context, threadID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PostgresSessionRepository stores sessions with gorm
type PostgresSessionRepository struct {
	DB *gorm.DB
}

// NewPostgresSessionRepository creates a gorm backed session repository
func NewPostgresSessionRepository(db *gorm.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{DB: db}
}

// Create inserts the session inside a transaction holding the row lock
func (r *PostgresSessionRepository) Create(ctx context.Context, s *models.SessionModel, now time.Time) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.SessionModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("thread_id = ?", s.ThreadID).
			Take(&existing).Error
		switch {
		case err == nil:
			if existing.Live(now) {
				return apperr.ErrConflict
			}
			return tx.Save(s).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(s).Error
		default:
			return err
		}
	})
	// two inserts racing past the empty lock both reach Create
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.ErrConflict
	}
	if err != nil && !errors.Is(err, apperr.ErrConflict) {
		return fmt.Errorf("create session %s: %w", s.ThreadID, err)
	}
	return err
}

// Get returns the live session for threadID
func (r *PostgresSessionRepository) Get(ctx context.Context, threadID string, now time.Time) (*models.SessionModel, error) {
	var session models.SessionModel
	err := r.DB.WithContext(ctx).
		Where("thread_id = ? AND expires_at > ?", threadID, now).
		Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", threadID, err)
	}
	return &session, nil
}

// Update locks the live row, applies fn and saves it
func (r *PostgresSessionRepository) Update(ctx context.Context, threadID string, now time.Time, fn SessionMutator) (*models.SessionModel, error) {
	var session models.SessionModel
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("thread_id = ? AND expires_at > ?", threadID, now).
			Take(&session).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := fn(&session); err != nil {
			return err
		}
		session.ThreadID = threadID
		session.UpdatedAt = now
		return tx.Save(&session).Error
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes the session; missing rows are not an error
func (r *PostgresSessionRepository) Delete(ctx context.Context, threadID string) error {
	return r.DB.WithContext(ctx).Where("thread_id = ?", threadID).Delete(&models.SessionModel{}).Error
}

// DeleteExpired removes every session past its expiry
func (r *PostgresSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.DB.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.SessionModel{})
	return result.RowsAffected, result.Error
}
