package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nsvirk/hrassistapi/internal/apperr"
	"github.com/nsvirk/hrassistapi/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RememberMeRepository stores hashed auto-login tokens
type RememberMeRepository interface {
	// Upsert replaces any row for the same (username, device_fingerprint)
	Upsert(ctx context.Context, t *models.RememberMeTokenModel) error
	GetByHash(ctx context.Context, tokenHash string) (*models.RememberMeTokenModel, error)
	ExistsForDevice(ctx context.Context, fingerprint string) (bool, error)
	TouchLastUsed(ctx context.Context, tokenHash string, at time.Time) error
	Delete(ctx context.Context, username, fingerprint string) (int64, error)
	DeleteAllForUser(ctx context.Context, username string) (int64, error)
	DeleteIdle(ctx context.Context, cutoff time.Time) (int64, error)
}

// PostgresRememberMeRepository stores tokens with gorm
type PostgresRememberMeRepository struct {
	DB *gorm.DB
}

// NewPostgresRememberMeRepository creates a gorm backed token repository
func NewPostgresRememberMeRepository(db *gorm.DB) *PostgresRememberMeRepository {
	return &PostgresRememberMeRepository{DB: db}
}

// Upsert inserts or replaces the token row in a single statement
func (r *PostgresRememberMeRepository) Upsert(ctx context.Context, t *models.RememberMeTokenModel) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}, {Name: "device_fingerprint"}},
		DoUpdates: clause.AssignmentColumns([]string{"token_hash", "encrypted_password", "created_at", "last_used_at"}),
	}).Create(t).Error
}

func (r *PostgresRememberMeRepository) GetByHash(ctx context.Context, tokenHash string) (*models.RememberMeTokenModel, error) {
	var token models.RememberMeTokenModel
	err := r.DB.WithContext(ctx).Where("token_hash = ?", tokenHash).Take(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *PostgresRememberMeRepository) ExistsForDevice(ctx context.Context, fingerprint string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.RememberMeTokenModel{}).
		Where("device_fingerprint = ?", fingerprint).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (r *PostgresRememberMeRepository) TouchLastUsed(ctx context.Context, tokenHash string, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.RememberMeTokenModel{}).
		Where("token_hash = ?", tokenHash).
		Update("last_used_at", at).Error
}

func (r *PostgresRememberMeRepository) Delete(ctx context.Context, username, fingerprint string) (int64, error) {
	result := r.DB.WithContext(ctx).
		Where("username = ? AND device_fingerprint = ?", username, fingerprint).
		Delete(&models.RememberMeTokenModel{})
	return result.RowsAffected, result.Error
}

func (r *PostgresRememberMeRepository) DeleteAllForUser(ctx context.Context, username string) (int64, error) {
	result := r.DB.WithContext(ctx).Where("username = ?", username).Delete(&models.RememberMeTokenModel{})
	return result.RowsAffected, result.Error
}

func (r *PostgresRememberMeRepository) DeleteIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.DB.WithContext(ctx).
		Where("COALESCE(last_used_at, created_at) < ?", cutoff).
		Delete(&models.RememberMeTokenModel{})
	return result.RowsAffected, result.Error
}

// MemoryRememberMeRepository keys tokens by username and fingerprint
type MemoryRememberMeRepository struct {
	mu     sync.RWMutex
	tokens map[[2]string]models.RememberMeTokenModel
}

func NewMemoryRememberMeRepository() *MemoryRememberMeRepository {
	return &MemoryRememberMeRepository{tokens: make(map[[2]string]models.RememberMeTokenModel)}
}

func (r *MemoryRememberMeRepository) Upsert(ctx context.Context, t *models.RememberMeTokenModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]string{t.Username, t.DeviceFingerprint}
	for k, existing := range r.tokens {
		if k != key && existing.TokenHash == t.TokenHash {
			return apperr.ErrConflict
		}
	}
	r.tokens[key] = *t
	return nil
}

func (r *MemoryRememberMeRepository) GetByHash(ctx context.Context, tokenHash string) (*models.RememberMeTokenModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tokens {
		if t.TokenHash == tokenHash {
			found := t
			return &found, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r *MemoryRememberMeRepository) ExistsForDevice(ctx context.Context, fingerprint string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for k := range r.tokens {
		if k[1] == fingerprint {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRememberMeRepository) TouchLastUsed(ctx context.Context, tokenHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, t := range r.tokens {
		if t.TokenHash == tokenHash {
			used := at
			t.LastUsedAt = &used
			r.tokens[k] = t
		}
	}
	return nil
}

func (r *MemoryRememberMeRepository) Delete(ctx context.Context, username, fingerprint string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]string{username, fingerprint}
	if _, ok := r.tokens[key]; !ok {
		return 0, nil
	}
	delete(r.tokens, key)
	return 1, nil
}

func (r *MemoryRememberMeRepository) DeleteAllForUser(ctx context.Context, username string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k := range r.tokens {
		if k[0] == username {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRememberMeRepository) DeleteIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, t := range r.tokens {
		if t.LastActivity().Before(cutoff) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored tokens
func (r *MemoryRememberMeRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}
