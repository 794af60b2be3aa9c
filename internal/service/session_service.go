// Package service contains the service layer for the HR Assistant API
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nsvirk/hrassistapi/internal/models"
	"github.com/nsvirk/hrassistapi/internal/repository"
	"gorm.io/datatypes"
)

// SessionService applies the session lifetime and clock on top of a repository
type SessionService struct {
	repo    repository.SessionRepository
	ttl     time.Duration
	NowFunc func() time.Time
}

// NewSessionService creates a session service with a fixed, non-sliding ttl
func NewSessionService(repo repository.SessionRepository, ttl time.Duration) *SessionService {
	return &SessionService{
		repo:    repo,
		ttl:     ttl,
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// TTL returns the session lifetime
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Create starts a session in state `started` owned by userID.
// Returns apperr.ErrConflict when a live one exists.
func (s *SessionService) Create(ctx context.Context, threadID, userID string, sessionType models.SessionType) (*models.SessionModel, error) {
	if threadID == "" {
		return nil, fmt.Errorf("create session: empty thread id")
	}
	if _, err := models.ParseSessionType(string(sessionType)); err != nil {
		return nil, err
	}
	now := s.NowFunc()
	session := &models.SessionModel{
		ThreadID:    threadID,
		SessionData: datatypes.JSON(`{}`),
		SessionType: sessionType,
		UserID:      userID,
		State:       models.StateStarted,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, session, now); err != nil {
		return nil, err
	}
	return session, nil
}

// Get returns the live session or apperr.ErrNotFound
func (s *SessionService) Get(ctx context.Context, threadID string) (*models.SessionModel, error) {
	return s.repo.Get(ctx, threadID, s.NowFunc())
}

// Update runs fn atomically against the live session
func (s *SessionService) Update(ctx context.Context, threadID string, fn repository.SessionMutator) (*models.SessionModel, error) {
	return s.repo.Update(ctx, threadID, s.NowFunc(), fn)
}

// Delete removes the session; deleting a missing session succeeds
func (s *SessionService) Delete(ctx context.Context, threadID string) error {
	return s.repo.Delete(ctx, threadID)
}

// DeleteExpired purges sessions past their expiry
func (s *SessionService) DeleteExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.NowFunc())
}
