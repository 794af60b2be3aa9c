package repository

import (
	"context"
	"sync"
	"time"

	"github.com/nsvirk/hrassistapi/internal/apperr"
	"github.com/nsvirk/hrassistapi/internal/models"
)

// MemorySessionRepository keeps sessions in a map, for local runs and tests
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]models.SessionModel
}

// NewMemorySessionRepository creates an empty in-memory session repository
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]models.SessionModel)}
}

func cloneSession(s models.SessionModel) *models.SessionModel {
	if s.SessionData != nil {
		s.SessionData = append([]byte(nil), s.SessionData...)
	}
	return &s
}

func (r *MemorySessionRepository) Create(ctx context.Context, s *models.SessionModel, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[s.ThreadID]; ok && existing.Live(now) {
		return apperr.ErrConflict
	}
	r.sessions[s.ThreadID] = *cloneSession(*s)
	return nil
}

func (r *MemorySessionRepository) Get(ctx context.Context, threadID string, now time.Time) (*models.SessionModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[threadID]
	if !ok || !s.Live(now) {
		return nil, apperr.ErrNotFound
	}
	return cloneSession(s), nil
}

func (r *MemorySessionRepository) Update(ctx context.Context, threadID string, now time.Time, fn SessionMutator) (*models.SessionModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[threadID]
	if !ok || !s.Live(now) {
		return nil, apperr.ErrNotFound
	}
	working := cloneSession(s)
	if err := fn(working); err != nil {
		return nil, err
	}
	working.ThreadID = threadID
	working.UpdatedAt = now
	r.sessions[threadID] = *cloneSession(*working)
	return working, nil
}

func (r *MemorySessionRepository) Delete(ctx context.Context, threadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, threadID)
	return nil
}

func (r *MemorySessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.sessions {
		if !s.Live(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}
