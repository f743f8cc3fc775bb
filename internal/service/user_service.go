package service

import (
	"context"

	"portfolio-server/internal/interfaces"
	"portfolio-server/internal/models"
	"portfolio-server/internal/security"

	"go.uber.org/zap"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// AdminUpdateInput holds the fields an admin may change on any account.
type AdminUpdateInput struct {
	Email       *string
	Username    *string
	Name        *string
	Password    *string
	Role        *string
	IsActive    *bool
	IsSuperuser *bool
}

// UserService is the admin-only user management surface.
type UserService interface {
	List(ctx context.Context, skip, limit int) ([]models.User, int64, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, in CreateUserInput) (*models.User, error)
	Update(ctx context.Context, id int64, in AdminUpdateInput) (*models.User, error)
}

type userServiceImpl struct {
	users  interfaces.UserRepository
	hasher *security.Hasher
	logger *zap.Logger
}

var _ UserService = (*userServiceImpl)(nil)

// NewUserService returns a UserService.
func NewUserService(users interfaces.UserRepository, hasher *security.Hasher, logger *zap.Logger) UserService {
	return &userServiceImpl{users: users, hasher: hasher, logger: logger.Named("UserService")}
}

func (s *userServiceImpl) List(ctx context.Context, skip, limit int) ([]models.User, int64, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.users.List(ctx, models.ListParams{Skip: skip, Limit: limit})
}

func (s *userServiceImpl) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *userServiceImpl) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	user, err := buildUser(s.hasher, in)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("User created by admin", zap.Int64("userID", user.ID), zap.String("email", user.Email))
	return user, nil
}

func (s *userServiceImpl) Update(ctx context.Context, id int64, in AdminUpdateInput) (*models.User, error) {
	upd, err := prepareUpdate(s.hasher, models.UserUpdate{
		Email:       in.Email,
		Username:    in.Username,
		Name:        in.Name,
		Password:    in.Password,
		Role:        in.Role,
		IsActive:    in.IsActive,
		IsSuperuser: in.IsSuperuser,
	})
	if err != nil {
		return nil, err
	}
	user, err := s.users.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User updated by admin", zap.Int64("userID", id))
	return user, nil
}
