package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nsvirk/hrassistapi/internal/apperr"
	"github.com/nsvirk/hrassistapi/internal/models"
	"github.com/nsvirk/hrassistapi/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsService_RejectsUnknownType(t *testing.T) {
	repo := repository.NewMemoryMetricRepository()
	svc := NewMetricsService(repo)

	err := svc.Record(MetricEvent{Type: "bogus", ThreadID: "t1"})
	assert.ErrorIs(t, err, apperr.ErrUnknownMetric)
	svc.Wait()
	assert.Empty(t, repo.All())
}

func TestMetricsService_RecordsInBackground(t *testing.T) {
	repo := repository.NewMemoryMetricRepository()
	svc := NewMetricsService(repo)
	svc.NowFunc = fixedClock(testNow)

	require.NoError(t, svc.Record(MetricEvent{
		Type:     models.MetricReimbursement,
		ThreadID: "t1",
		UserID:   "u1",
		Payload:  map[string]interface{}{"amount": "12.50"},
	}))
	svc.Wait()

	all := repo.All()
	require.Len(t, all, 1)
	assert.NotEmpty(t, all[0].ID)
	assert.Equal(t, models.MetricReimbursement, all[0].MetricType)
	assert.True(t, all[0].CreatedAt.Equal(testNow))
	assert.JSONEq(t, `{"amount":"12.50"}`, string(all[0].Payload))
}

func TestMetricsService_StorageFailureIsNotReported(t *testing.T) {
	svc := NewMetricsService(failingMetricRepo{})

	assert.NoError(t, svc.Record(MetricEvent{Type: models.MetricOvertime, ThreadID: "t1"}))
	svc.Wait()
}

func TestMetricsService_SummaryListsEveryType(t *testing.T) {
	repo := repository.NewMemoryMetricRepository()
	svc := NewMetricsService(repo)
	ctx := context.Background()

	for _, at := range []time.Time{testNow.Add(-48 * time.Hour), testNow, testNow} {
		require.NoError(t, svc.Record(MetricEvent{Type: models.MetricChat, ThreadID: "t1", At: at}))
	}
	svc.Wait()

	summary, err := svc.Summary(ctx, testNow.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, summary, len(models.MetricTypes))
	assert.Equal(t, int64(2), summary[models.MetricChat])
	assert.Equal(t, int64(0), summary[models.MetricTimeoff])

	n, err := svc.Purge(ctx, testNow.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMetricsService_PublishesToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	ctx := context.Background()

	sub := client.Subscribe(ctx, "hr:metrics")
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	svc := NewMetricsService(repository.NewMemoryMetricRepository()).WithPublisher(client, "hr:metrics")
	require.NoError(t, svc.Record(MetricEvent{Type: models.MetricLogHours, ThreadID: "t9"}))
	svc.Wait()

	select {
	case msg := <-sub.Channel():
		var got models.SessionMetricModel
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, models.MetricLogHours, got.MetricType)
		assert.Equal(t, "t9", got.ThreadID)
	case <-time.After(2 * time.Second):
		t.Fatal("no metric published")
	}
}
