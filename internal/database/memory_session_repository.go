package database

import (
	"context"
	"sync"
	"time"

	"portfolio-server/internal/interfaces"
	"portfolio-server/internal/models"
)

var _ interfaces.SessionRepository = (*MemorySessionRepository)(nil)

// MemorySessionRepository is an in-process SessionRepository for tests.
type MemorySessionRepository struct {
	mu       sync.Mutex
	nextID   int64
	sessions []models.UserSession
}

// NewMemorySessionRepository returns an empty repository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{nextID: 1}
}

func (r *MemorySessionRepository) Touch(_ context.Context, userID int64, now time.Time, idleTimeout time.Duration) (*models.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-idleTimeout)
	latest := -1
	for i, s := range r.sessions {
		if s.UserID != userID || s.LastActivity.Before(cutoff) {
			continue
		}
		if latest < 0 || s.LastActivity.After(r.sessions[latest].LastActivity) {
			latest = i
		}
	}
	if latest >= 0 {
		r.sessions[latest].LastActivity = now
		s := r.sessions[latest]
		return &s, nil
	}

	s := models.UserSession{ID: r.nextID, UserID: userID, CreatedAt: now, LastActivity: now}
	r.nextID++
	r.sessions = append(r.sessions, s)
	return &s, nil
}

// Add stores a session as is. Tests use it to seed history.
func (r *MemorySessionRepository) Add(s models.UserSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.nextID
	r.nextID++
	r.sessions = append(r.sessions, s)
}

// Sessions returns a copy of every stored session.
func (r *MemorySessionRepository) Sessions() []models.UserSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.UserSession(nil), r.sessions...)
}

func (r *MemorySessionRepository) CountDistinctUsers(_ context.Context, from, to time.Time) (int64, error) {
	return r.countDistinct(func(s models.UserSession) time.Time { return s.CreatedAt }, from, to), nil
}

func (r *MemorySessionRepository) CountActiveUsers(_ context.Context, from, to time.Time) (int64, error) {
	return r.countDistinct(func(s models.UserSession) time.Time { return s.LastActivity }, from, to), nil
}

func (r *MemorySessionRepository) countDistinct(at func(models.UserSession) time.Time, from, to time.Time) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[int64]struct{})
	for _, s := range r.sessions {
		t := at(s)
		if !t.Before(from) && t.Before(to) {
			seen[s.UserID] = struct{}{}
		}
	}
	return int64(len(seen))
}
