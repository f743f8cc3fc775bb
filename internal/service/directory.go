package service

import (
	"context"
	"errors"
	"fmt"

	"portfolio-server/internal/interfaces"
	"portfolio-server/internal/models"
	"portfolio-server/internal/security"

	"go.uber.org/zap"
)

// Directory answers who a user is. It never changes state.
type Directory struct {
	users  interfaces.UserRepository
	hasher *security.Hasher
	logger *zap.Logger
}

// NewDirectory returns a Directory over users.
func NewDirectory(users interfaces.UserRepository, hasher *security.Hasher, logger *zap.Logger) *Directory {
	return &Directory{users: users, hasher: hasher, logger: logger.Named("Directory")}
}

// FindByEmail looks a user up by email, ignoring case and surrounding space.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.users.GetByEmail(ctx, models.NormalizeEmail(email))
}

// FindByID looks a user up by id.
func (d *Directory) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return d.users.GetByID(ctx, id)
}

// IsActive reports whether user may authenticate.
func (d *Directory) IsActive(user *models.User) bool {
	return user != nil && user.IsActive
}

// Authenticate returns the user when password matches. A missing user and
// a wrong password both yield models.ErrInvalidCredentials; only the log
// line tells them apart.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := d.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			d.hasher.VerifyDummy(password)
			d.logger.Info("Authentication failed: unknown email", zap.String("email", models.NormalizeEmail(email)))
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !d.hasher.Verify(password, user.HashedPassword) {
		d.logger.Info("Authentication failed: wrong password", zap.Int64("userID", user.ID))
		return nil, models.ErrInvalidCredentials
	}
	return user, nil
}
