package service

import (
	"context"
	"fmt"
	"time"

	"portfolio-server/internal/interfaces"
	"portfolio-server/internal/models"

	"go.uber.org/zap"
)

const (
	activeWindow       = 15 * time.Minute
	previousWindowFrom = 2 * time.Hour
	previousWindowTo   = time.Hour
)

// SessionService records authenticated activity and reports on it.
// Sessions are reporting data only and never gate access.
type SessionService struct {
	sessions    interfaces.SessionRepository
	idleTimeout time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewSessionService returns a SessionService. A nil clock means time.Now.
func NewSessionService(sessions interfaces.SessionRepository, idleTimeout time.Duration, now func() time.Time, logger *zap.Logger) *SessionService {
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		sessions:    sessions,
		idleTimeout: idleTimeout,
		now:         now,
		logger:      logger.Named("SessionService"),
	}
}

// Touch records activity by userID.
func (s *SessionService) Touch(ctx context.Context, userID int64) error {
	if _, err := s.sessions.Touch(ctx, userID, s.now().UTC(), s.idleTimeout); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// VisitorStats counts distinct users who started a session this calendar
// month (UTC) and compares them with last month.
func (s *SessionService) VisitorStats(ctx context.Context) (*models.VisitorStats, error) {
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevMonthStart := monthStart.AddDate(0, -1, 0)

	current, err := s.sessions.CountDistinctUsers(ctx, monthStart, now.Add(time.Nanosecond))
	if err != nil {
		return nil, err
	}
	previous, err := s.sessions.CountDistinctUsers(ctx, prevMonthStart, monthStart)
	if err != nil {
		return nil, err
	}
	return &models.VisitorStats{
		Total:            current,
		PercentageChange: models.PercentageChange(current, previous),
	}, nil
}

// SessionStats counts users active in the last 15 minutes and compares
// them with the users active between two hours and one hour ago.
func (s *SessionService) SessionStats(ctx context.Context) (*models.SessionStats, error) {
	now := s.now().UTC()

	// The upper bound is exclusive; nudge it so activity stamped "now" counts.
	active, err := s.sessions.CountActiveUsers(ctx, now.Add(-activeWindow), now.Add(time.Nanosecond))
	if err != nil {
		return nil, err
	}
	previous, err := s.sessions.CountActiveUsers(ctx, now.Add(-previousWindowFrom), now.Add(-previousWindowTo))
	if err != nil {
		return nil, err
	}
	return &models.SessionStats{
		Active:           active,
		PercentageChange: models.PercentageChange(active, previous),
	}, nil
}
