package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nsvirk/hrassistapi/internal/models"
	"gorm.io/gorm"
)

// MetricRepository is append-only apart from the retention delete
type MetricRepository interface {
	Create(ctx context.Context, m *models.SessionMetricModel) error
	Exists(ctx context.Context, threadID string, metricType models.MetricType) (bool, error)
	CountByType(ctx context.Context, since time.Time) (map[models.MetricType]int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PostgresMetricRepository stores metrics with gorm
type PostgresMetricRepository struct {
	DB *gorm.DB
}

// NewPostgresMetricRepository creates a gorm backed metric repository
func NewPostgresMetricRepository(db *gorm.DB) *PostgresMetricRepository {
	return &PostgresMetricRepository{DB: db}
}

func (r *PostgresMetricRepository) Create(ctx context.Context, m *models.SessionMetricModel) error {
	return r.DB.WithContext(ctx).Create(m).Error
}

func (r *PostgresMetricRepository) Exists(ctx context.Context, threadID string, metricType models.MetricType) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.SessionMetricModel{}).
		Where("thread_id = ? AND metric_type = ?", threadID, metricType).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (r *PostgresMetricRepository) CountByType(ctx context.Context, since time.Time) (map[models.MetricType]int64, error) {
	var rows []struct {
		MetricType models.MetricType
		Total      int64
	}
	err := r.DB.WithContext(ctx).Model(&models.SessionMetricModel{}).
		Select("metric_type, count(*) as total").
		Where("created_at >= ?", since).
		Group("metric_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count metrics: %w", err)
	}
	counts := make(map[models.MetricType]int64, len(rows))
	for _, row := range rows {
		counts[row.MetricType] = row.Total
	}
	return counts, nil
}

// DeleteOlderThan is the only delete path for metrics
func (r *PostgresMetricRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.DB.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.SessionMetricModel{})
	return result.RowsAffected, result.Error
}

// MemoryMetricRepository keeps metrics in a slice
type MemoryMetricRepository struct {
	mu      sync.RWMutex
	metrics []models.SessionMetricModel
}

func NewMemoryMetricRepository() *MemoryMetricRepository {
	return &MemoryMetricRepository{}
}

func (r *MemoryMetricRepository) Create(ctx context.Context, m *models.SessionMetricModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, *m)
	return nil
}

func (r *MemoryMetricRepository) Exists(ctx context.Context, threadID string, metricType models.MetricType) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.metrics {
		if m.ThreadID == threadID && m.MetricType == metricType {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryMetricRepository) CountByType(ctx context.Context, since time.Time) (map[models.MetricType]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[models.MetricType]int64)
	for _, m := range r.metrics {
		if !m.CreatedAt.Before(since) {
			counts[m.MetricType]++
		}
	}
	return counts, nil
}

func (r *MemoryMetricRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.metrics[:0]
	var n int64
	for _, m := range r.metrics {
		if m.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, m)
	}
	r.metrics = kept
	return n, nil
}

// All returns a copy of the stored metrics
func (r *MemoryMetricRepository) All() []models.SessionMetricModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.SessionMetricModel(nil), r.metrics...)
}
