package interfaces

import (
	"context"
	"time"

	"portfolio-server/internal/models"
)

// UserRepository persists users. Lookups that find nothing return
// models.ErrUserNotFound; unique violations return
// models.ErrEmailAlreadyExists or models.ErrUserAlreadyExists.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	// CreateFirst inserts user only when the table is empty, atomically.
	// It returns models.ErrBootstrapClosed when any user exists.
	CreateFirst(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error)
	List(ctx context.Context, params models.ListParams) ([]models.User, int64, error)
	Count(ctx context.Context) (int64, error)
}

// SessionRepository records user activity for reporting.
type SessionRepository interface {
	// Touch extends the user's latest session when its last activity is
	// newer than now-idleTimeout and starts a new session otherwise.
	Touch(ctx context.Context, userID int64, now time.Time, idleTimeout time.Duration) (*models.UserSession, error)
	// CountDistinctUsers counts users with a session created in [from, to).
	CountDistinctUsers(ctx context.Context, from, to time.Time) (int64, error)
	// CountActiveUsers counts users whose session activity falls in [from, to).
	CountActiveUsers(ctx context.Context, from, to time.Time) (int64, error)
}

// GuardStore keeps per-client failure counters and ban flags. Every method
// must be a single atomic operation on the backing store.
type GuardStore interface {
	// IncrementFailures adds one failure and returns the new count. The
	// counter expires window after the first failure.
	IncrementFailures(ctx context.Context, clientKey string, window time.Duration) (int64, error)
	SetBan(ctx context.Context, clientKey string, ttl time.Duration) error
	IsBanned(ctx context.Context, clientKey string) (bool, error)
	ResetFailures(ctx context.Context, clientKey string) error
}
