package service

import (
	"context"
	"testing"
	"time"

	"github.com/nsvirk/hrassistapi/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronService_RunSweep(t *testing.T) {
	h := newHarness(t, nil)
	vault, repo := newVault()
	ctx := context.Background()

	_, err := h.sessions.Create(ctx, "old", "u1", models.SessionTimeoff)
	require.NoError(t, err)
	h.sessions.NowFunc = fixedClock(testNow.Add(time.Hour))
	_, err = h.sessions.Create(ctx, "fresh", "u1", models.SessionOvertime)
	require.NoError(t, err)

	require.NoError(t, h.metrics.Record(MetricEvent{Type: models.MetricChat, ThreadID: "a", At: testNow.Add(-100 * 24 * time.Hour)}))
	require.NoError(t, h.metrics.Record(MetricEvent{Type: models.MetricChat, ThreadID: "b", At: testNow}))
	h.metrics.Wait()

	vault.NowFunc = fixedClock(testNow.Add(-60 * 24 * time.Hour))
	_, err = vault.Issue(ctx, "alice", "device-1", "p")
	require.NoError(t, err)
	vault.NowFunc = fixedClock(testNow)

	cs := NewCronService("0 3 * * *", h.sessions, h.metrics, vault, 90*24*time.Hour, 30*24*time.Hour)
	result := cs.RunSweep(ctx)

	assert.Equal(t, SweepResult{Sessions: 1, Metrics: 1, RememberMeTokens: 1}, result)
	assert.Len(t, h.metricRepo.All(), 1)
	assert.Zero(t, repo.Count())

	_, err = h.sessions.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestCronService_IdleSweepDisabled(t *testing.T) {
	h := newHarness(t, nil)
	vault, repo := newVault()
	ctx := context.Background()

	vault.NowFunc = fixedClock(testNow.Add(-365 * 24 * time.Hour))
	_, err := vault.Issue(ctx, "alice", "device-1", "p")
	require.NoError(t, err)

	cs := NewCronService("0 3 * * *", h.sessions, h.metrics, vault, 90*24*time.Hour, 0)
	result := cs.RunSweep(ctx)
	assert.Zero(t, result.RememberMeTokens)
	assert.Equal(t, 1, repo.Count())
}
