package service

import (
	"context"
	"testing"
	"time"

	"github.com/nsvirk/hrassistapi/internal/apperr"
	"github.com/nsvirk/hrassistapi/internal/models"
	"github.com/nsvirk/hrassistapi/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_CreateSetsExpiry(t *testing.T) {
	svc := NewSessionService(repository.NewMemorySessionRepository(), 15*time.Minute)
	svc.NowFunc = fixedClock(testNow)
	ctx := context.Background()

	s, err := svc.Create(ctx, "t1", "u1", models.SessionOvertime)
	require.NoError(t, err)
	assert.Equal(t, models.StateStarted, s.State)
	assert.True(t, s.ExpiresAt.Equal(testNow.Add(15*time.Minute)))
	assert.JSONEq(t, `{}`, string(s.SessionData))
	assert.Equal(t, "u1", s.UserID)
	assert.True(t, s.OwnedBy("u1"))
	assert.False(t, s.OwnedBy("u2"))

	_, err = svc.Create(ctx, "t1", "u1", models.SessionTimeoff)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestSessionService_RejectsBadInput(t *testing.T) {
	svc := NewSessionService(repository.NewMemorySessionRepository(), time.Minute)
	ctx := context.Background()

	_, err := svc.Create(ctx, "", "u1", models.SessionTimeoff)
	assert.Error(t, err)
	_, err = svc.Create(ctx, "t1", "u1", "payroll")
	assert.Error(t, err)
}

func TestSessionService_ExpiryIsNotSliding(t *testing.T) {
	svc := NewSessionService(repository.NewMemorySessionRepository(), 15*time.Minute)
	svc.NowFunc = fixedClock(testNow)
	ctx := context.Background()

	_, err := svc.Create(ctx, "t1", "u1", models.SessionTimeoff)
	require.NoError(t, err)

	svc.NowFunc = fixedClock(testNow.Add(10 * time.Minute))
	_, err = svc.Update(ctx, "t1", func(s *models.SessionModel) error {
		s.State = "collecting_dates"
		return nil
	})
	require.NoError(t, err)

	svc.NowFunc = fixedClock(testNow.Add(16 * time.Minute))
	_, err = svc.Get(ctx, "t1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	n, err := svc.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
