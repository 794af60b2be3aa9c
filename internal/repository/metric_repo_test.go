package repository

import (
	"context"
	"testing"
	"time"

	"github.com/nsvirk/hrassistapi/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryMetricRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMetricRepository()

	add := func(id string, mt models.MetricType, thread string, at time.Time) {
		require.NoError(t, repo.Create(ctx, &models.SessionMetricModel{ID: id, MetricType: mt, ThreadID: thread, CreatedAt: at}))
	}
	add("1", models.MetricChat, "a", baseTime.AddDate(0, 0, -100))
	add("2", models.MetricChat, "b", baseTime)
	add("3", models.MetricTimeoffApproval, "b", baseTime)

	exists, err := repo.Exists(ctx, "b", models.MetricChat)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.Exists(ctx, "b", models.MetricOvertime)
	require.NoError(t, err)
	assert.False(t, exists)

	counts, err := repo.CountByType(ctx, baseTime.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, map[models.MetricType]int64{models.MetricChat: 1, models.MetricTimeoffApproval: 1}, counts)

	n, err := repo.DeleteOlderThan(ctx, baseTime.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, repo.All(), 2)
}
