package database

import (
	"context"
	"fmt"
	"time"

	"portfolio-server/internal/interfaces"
	"portfolio-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"go.uber.org/zap"
)

const (
	// Extends the newest live session or starts a new one in one statement.
	touchSessionQuery = `
        WITH touched AS (
            UPDATE user_sessions SET last_activity = $2
            WHERE id = (
                SELECT id FROM user_sessions
                WHERE user_id = $1 AND last_activity >= $3
                ORDER BY last_activity DESC
                LIMIT 1
            )
            RETURNING id, user_id, created_at, last_activity
        ), inserted AS (
            INSERT INTO user_sessions (user_id, created_at, last_activity)
            SELECT $1, $2, $2
            WHERE NOT EXISTS (SELECT 1 FROM touched)
            RETURNING id, user_id, created_at, last_activity
        )
        SELECT id, user_id, created_at, last_activity FROM touched
        UNION ALL
        SELECT id, user_id, created_at, last_activity FROM inserted`
	countDistinctSessionUsersQuery = `
        SELECT COUNT(DISTINCT user_id) FROM user_sessions
        WHERE created_at >= $1 AND created_at < $2`
	countActiveSessionUsersQuery = `
        SELECT COUNT(DISTINCT user_id) FROM user_sessions
        WHERE last_activity >= $1 AND last_activity < $2`
)

var _ interfaces.SessionRepository = (*pgSessionRepository)(nil)

type pgSessionRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgSessionRepository returns a PostgreSQL-backed SessionRepository.
func NewPgSessionRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.SessionRepository {
	return &pgSessionRepository{
		db:     db,
		logger: logger.Named("PgSessionRepo"),
	}
}

func (r *pgSessionRepository) Touch(ctx context.Context, userID int64, now time.Time, idleTimeout time.Duration) (*models.UserSession, error) {
	var session models.UserSession
	if err := pgxscan.Get(ctx, r.db, &session, touchSessionQuery, userID, now, now.Add(-idleTimeout)); err != nil {
		r.logger.Error("Failed to touch user session", zap.Int64("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to touch user session: %w", err)
	}
	return &session, nil
}

func (r *pgSessionRepository) CountDistinctUsers(ctx context.Context, from, to time.Time) (int64, error) {
	return r.count(ctx, countDistinctSessionUsersQuery, from, to)
}

func (r *pgSessionRepository) CountActiveUsers(ctx context.Context, from, to time.Time) (int64, error) {
	return r.count(ctx, countActiveSessionUsersQuery, from, to)
}

func (r *pgSessionRepository) count(ctx context.Context, query string, from, to time.Time) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, query, from, to).Scan(&n); err != nil {
		r.logger.Error("Failed to count session users", zap.Time("from", from), zap.Time("to", to), zap.Error(err))
		return 0, fmt.Errorf("failed to count session users: %w", err)
	}
	return n, nil
}
