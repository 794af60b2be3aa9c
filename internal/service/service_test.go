package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nsvirk/hrassistapi/internal/flow"
	"github.com/nsvirk/hrassistapi/internal/models"
	"github.com/nsvirk/hrassistapi/internal/repository"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 3, 10, 30, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type harness struct {
	sessionRepo *repository.MemorySessionRepository
	metricRepo  *repository.MemoryMetricRepository
	sessions    *SessionService
	metrics     *MetricsService
	flows       *FlowService
}

func newHarness(t *testing.T, documents DocumentGenerator) *harness {
	t.Helper()
	h := &harness{
		sessionRepo: repository.NewMemorySessionRepository(),
		metricRepo:  repository.NewMemoryMetricRepository(),
	}
	h.sessions = NewSessionService(h.sessionRepo, 15*time.Minute)
	h.sessions.NowFunc = fixedClock(testNow)
	h.metrics = NewMetricsService(h.metricRepo)
	h.metrics.NowFunc = fixedClock(testNow)
	if documents == nil {
		documents = NewLinkDocumentGenerator("https://files.example.com/hr/")
	}
	h.flows = NewFlowService(h.sessions, h.metrics, MenuResponder{}, documents)
	return h
}

// metricTypes waits for pending writes and returns the recorded types
func (h *harness) metricTypes() []models.MetricType {
	h.metrics.Wait()
	var out []models.MetricType
	for _, m := range h.metricRepo.All() {
		out = append(out, m.MetricType)
	}
	return out
}

func (h *harness) send(t *testing.T, threadID, message string) *ChatResponse {
	t.Helper()
	resp, err := h.flows.Handle(context.Background(), ChatRequest{ThreadID: threadID, UserID: "u1", Message: message})
	require.NoError(t, err)
	return resp
}

type failingDocuments struct{}

func (failingDocuments) Generate(ctx context.Context, req flow.DocumentRequest) (*flow.Attachment, error) {
	return nil, errors.New("renderer offline")
}

type failingMetricRepo struct {
	repository.MetricRepository
}

func (failingMetricRepo) Create(ctx context.Context, m *models.SessionMetricModel) error {
	return errors.New("db down")
}
