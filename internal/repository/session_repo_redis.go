package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nsvirk/hrassistapi/internal/apperr"
	"github.com/nsvirk/hrassistapi/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix  = "hr:session:"
	maxUpdateAttempts = 5
)

// RedisSessionRepository keeps one key per thread and lets Redis expire it
type RedisSessionRepository struct {
	client *redis.Client
}

// NewRedisSessionRepository creates a Redis backed session repository
func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

func sessionKey(threadID string) string {
	return sessionKeyPrefix + threadID
}

// Create uses SET NX so only one writer wins the key
func (r *RedisSessionRepository) Create(ctx context.Context, s *models.SessionModel, now time.Time) error {
	ttl := s.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return fmt.Errorf("create session %s: expiry is not in the future", s.ThreadID)
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}

	key := sessionKey(s.ThreadID)
	ok, err := r.client.SetNX(ctx, key, payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("create session %s: %w", s.ThreadID, err)
	}
	if ok {
		return nil
	}

	// The key exists. Replace it only if it is already past its logical expiry.
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		existing, err := readSession(ctx, tx, key)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		if existing != nil && existing.Live(now) {
			return apperr.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return apperr.ErrConflict
	}
	return err
}

// Get returns the live session for threadID
func (r *RedisSessionRepository) Get(ctx context.Context, threadID string, now time.Time) (*models.SessionModel, error) {
	session, err := readSession(ctx, r.client, sessionKey(threadID))
	if err != nil {
		return nil, err
	}
	if !session.Live(now) {
		return nil, apperr.ErrNotFound
	}
	return session, nil
}

// Update retries the WATCH/MULTI cycle when another writer touched the key
func (r *RedisSessionRepository) Update(ctx context.Context, threadID string, now time.Time, fn SessionMutator) (*models.SessionModel, error) {
	key := sessionKey(threadID)
	var updated *models.SessionModel

	txf := func(tx *redis.Tx) error {
		session, err := readSession(ctx, tx, key)
		if err != nil {
			return err
		}
		if !session.Live(now) {
			return apperr.ErrNotFound
		}
		previousExpiry := session.ExpiresAt
		if err := fn(session); err != nil {
			return err
		}
		session.ThreadID = threadID
		session.UpdatedAt = now

		payload, err := json.Marshal(session)
		if err != nil {
			return err
		}
		args := redis.SetArgs{KeepTTL: true}
		if !session.ExpiresAt.Equal(previousExpiry) {
			args = redis.SetArgs{TTL: session.ExpiresAt.Sub(now)}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, payload, args)
			return nil
		})
		if err == nil {
			updated = session
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("update session %s: too many concurrent writers", threadID)
}

// Delete removes the key; missing keys are not an error
func (r *RedisSessionRepository) Delete(ctx context.Context, threadID string) error {
	return r.client.Del(ctx, sessionKey(threadID)).Err()
}

// DeleteExpired is a no-op, Redis expires keys itself
func (r *RedisSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readSession(ctx context.Context, c stringGetter, key string) (*models.SessionModel, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var session models.SessionModel
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	return &session, nil
}
