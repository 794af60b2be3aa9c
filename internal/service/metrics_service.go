package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nsvirk/hrassistapi/internal/apperr"
	"github.com/nsvirk/hrassistapi/internal/models"
	"github.com/nsvirk/hrassistapi/internal/repository"
	"github.com/nsvirk/hrassistapi/pkg/utils/zaplogger"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
)

// metricWriteTimeout bounds a single background metric write
const metricWriteTimeout = 5 * time.Second

// MetricEvent is one audit event to record
type MetricEvent struct {
	Type     models.MetricType
	ThreadID string
	UserID   string
	Payload  map[string]interface{}
	At       time.Time
	// OncePerThread skips the write when the thread already has a metric of this type
	OncePerThread bool
}

// Publisher is the subset of the Redis client used for live fan-out
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// MetricsService records metrics in the background. Failures never reach the caller.
type MetricsService struct {
	repo      repository.MetricRepository
	publisher Publisher
	channel   string
	timeout   time.Duration
	NowFunc   func() time.Time
	wg        sync.WaitGroup
}

// NewMetricsService creates a recorder over repo
func NewMetricsService(repo repository.MetricRepository) *MetricsService {
	return &MetricsService{
		repo:    repo,
		timeout: metricWriteTimeout,
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// WithPublisher also publishes every stored metric on channel. A nil client is ignored.
func (s *MetricsService) WithPublisher(client *redis.Client, channel string) *MetricsService {
	if client != nil && channel != "" {
		s.publisher = client
		s.channel = channel
	}
	return s
}

// Record validates ev and writes it in its own goroutine.
// Only an unknown metric type is reported back.
func (s *MetricsService) Record(ev MetricEvent) error {
	if !ev.Type.Valid() {
		return fmt.Errorf("%w: %q", apperr.ErrUnknownMetric, ev.Type)
	}
	if ev.At.IsZero() {
		ev.At = s.NowFunc()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.write(ctx, ev); err != nil {
			zaplogger.Warn("metric dropped", zaplogger.Fields{
				"metric_type": string(ev.Type),
				"thread_id":   ev.ThreadID,
				"error":       err.Error(),
			})
		}
	}()
	return nil
}

func (s *MetricsService) write(ctx context.Context, ev MetricEvent) error {
	if ev.OncePerThread {
		exists, err := s.repo.Exists(ctx, ev.ThreadID, ev.Type)
		if err != nil {
			return err
		}
		if exists {
			zaplogger.Debug("metric already recorded for thread", zaplogger.Fields{
				"metric_type": string(ev.Type),
				"thread_id":   ev.ThreadID,
			})
			return nil
		}
	}

	var payload datatypes.JSON
	if len(ev.Payload) > 0 {
		raw, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		payload = raw
	}

	metric := &models.SessionMetricModel{
		ID:         uuid.NewString(),
		MetricType: ev.Type,
		ThreadID:   ev.ThreadID,
		UserID:     ev.UserID,
		Payload:    payload,
		CreatedAt:  ev.At,
	}
	if err := s.repo.Create(ctx, metric); err != nil {
		return err
	}

	if s.publisher != nil {
		msg, err := json.Marshal(metric)
		if err == nil {
			err = s.publisher.Publish(ctx, s.channel, msg).Err()
		}
		if err != nil {
			zaplogger.Warn("metric publish failed", zaplogger.Fields{
				"metric_type": string(ev.Type),
				"error":       err.Error(),
			})
		}
	}
	return nil
}

// Wait blocks until every in-flight write has finished
func (s *MetricsService) Wait() {
	s.wg.Wait()
}

// Summary returns counts per metric type since the given time, with every type present
func (s *MetricsService) Summary(ctx context.Context, since time.Time) (map[models.MetricType]int64, error) {
	counts, err := s.repo.CountByType(ctx, since)
	if err != nil {
		return nil, err
	}
	out := make(map[models.MetricType]int64, len(models.MetricTypes))
	for _, t := range models.MetricTypes {
		out[t] = counts[t]
	}
	return out, nil
}

// Purge deletes metrics created before cutoff. It is the retention job's delete path.
func (s *MetricsService) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, cutoff)
}
