package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio-server/internal/guard"
	"portfolio-server/internal/interfaces"
	"portfolio-server/internal/models"
	"portfolio-server/internal/security"
	"portfolio-server/internal/token"

	"go.uber.org/zap"
)

// UpdateMeInput holds the fields a user may change on their own account.
// Nil fields are left unchanged.
type UpdateMeInput struct {
	Email    *string
	Username *string
	Name     *string
	Password *string
}

// AuthService composes the directory, guard and token codec into the
// login and identity operations.
type AuthService interface {
	// Login authenticates email/password for a request from clientIP.
	Login(ctx context.Context, clientIP, email, password string) (*models.TokenDetails, error)
	// CurrentUser resolves a bearer token to an active user.
	CurrentUser(ctx context.Context, tokenString string) (*models.User, error)
	// BootstrapFirstAdmin creates a superuser admin while no user exists.
	BootstrapFirstAdmin(ctx context.Context, in CreateUserInput) (*models.User, error)
	// SeedAdmin makes sure the configured admin exists and is an admin.
	SeedAdmin(ctx context.Context, in CreateUserInput) (*models.User, error)
	// UpdateMe applies a self-service update.
	UpdateMe(ctx context.Context, userID int64, in UpdateMeInput) (*models.User, error)
}

// AuthConfig holds the AuthService settings.
type AuthConfig struct {
	AccessTokenTTL time.Duration
}

type authServiceImpl struct {
	users     interfaces.UserRepository
	directory *Directory
	guard     *guard.Guard
	codec     *token.Codec
	hasher    *security.Hasher
	cfg       AuthConfig
	logger    *zap.Logger
}

var _ AuthService = (*authServiceImpl)(nil)

// NewAuthService wires an AuthService.
func NewAuthService(
	users interfaces.UserRepository,
	directory *Directory,
	g *guard.Guard,
	codec *token.Codec,
	hasher *security.Hasher,
	cfg AuthConfig,
	logger *zap.Logger,
) AuthService {
	return &authServiceImpl{
		users:     users,
		directory: directory,
		guard:     g,
		codec:     codec,
		hasher:    hasher,
		cfg:       cfg,
		logger:    logger.Named("AuthService"),
	}
}

func (s *authServiceImpl) Login(ctx context.Context, clientIP, email, password string) (*models.TokenDetails, error) {
	log := s.logger.With(zap.String("ip", clientIP), zap.String("email", models.NormalizeEmail(email)))

	if err := s.guard.Check(ctx, clientIP); err != nil {
		if errors.Is(err, models.ErrIPBanned) {
			log.Warn("Login rejected for banned client")
		}
		return nil, err
	}

	user, err := s.directory.Authenticate(ctx, email, password)
	if err == nil && !s.directory.IsActive(user) {
		log.Info("Login rejected for inactive user", zap.Int64("userID", user.ID))
		err = models.ErrInvalidCredentials
	}
	if err != nil {
		if !errors.Is(err, models.ErrInvalidCredentials) {
			log.Error("Login failed with an internal error", zap.Error(err))
			return nil, err
		}
		status, gerr := s.guard.RecordFailure(ctx, clientIP)
		if gerr != nil {
			return nil, gerr
		}
		log.Info("Login failed", zap.Int64("failures", status.Failures), zap.Bool("banned", status.Banned))
		return nil, models.ErrInvalidCredentials
	}

	if err := s.guard.RecordSuccess(ctx, clientIP); err != nil {
		// The login itself is valid; a stale counter only expires later.
		log.Warn("Could not reset failure counter after successful login", zap.Error(err))
	}

	accessToken, expiresAt, err := s.codec.Encode(user.ID, user.Role, s.cfg.AccessTokenTTL)
	if err != nil {
		log.Error("Failed to issue access token", zap.Int64("userID", user.ID), zap.Error(err))
		return nil, fmt.Errorf("issue token: %w", err)
	}
	log.Info("User logged in", zap.Int64("userID", user.ID))
	return &models.TokenDetails{AccessToken: accessToken, ExpiresAt: expiresAt}, nil
}

func (s *authServiceImpl) CurrentUser(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.codec.Decode(tokenString)
	if err != nil {
		return nil, models.ErrUnauthenticated
	}
	user, err := s.directory.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.logger.Info("Token subject no longer exists", zap.Int64("userID", claims.UserID))
			return nil, models.ErrUnauthenticated
		}
		return nil, fmt.Errorf("current user: %w", err)
	}
	if !s.directory.IsActive(user) {
		s.logger.Info("Token presented by inactive user", zap.Int64("userID", user.ID))
		return nil, models.ErrUnauthenticated
	}
	return user, nil
}

// BootstrapFirstAdmin is an unauthenticated one-shot hatch: it works
// whenever the users table is empty, including after every user has been
// removed by hand. Deployments that can lose their users should switch it
// off with INITIAL_SETUP_ENABLED=false once an admin exists.
func (s *authServiceImpl) BootstrapFirstAdmin(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Role = models.RoleAdmin
	in.IsSuperuser = true
	active := true
	in.IsActive = &active

	user, err := buildUser(s.hasher, in)
	if err != nil {
		return nil, err
	}
	if err := s.users.CreateFirst(ctx, user); err != nil {
		if errors.Is(err, models.ErrBootstrapClosed) {
			s.logger.Warn("Initial setup attempted after initialization", zap.String("email", user.Email))
		}
		return nil, err
	}
	s.logger.Info("Initial admin created", zap.Int64("userID", user.ID), zap.String("email", user.Email))
	return user, nil
}

func (s *authServiceImpl) SeedAdmin(ctx context.Context, in CreateUserInput) (*models.User, error) {
	existing, err := s.directory.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		if existing.IsSuperuser && existing.Role == models.RoleAdmin && existing.IsActive {
			s.logger.Info("Admin user already present", zap.Int64("userID", existing.ID))
			return existing, nil
		}
		role := models.RoleAdmin
		yes := true
		updated, err := s.users.Update(ctx, existing.ID, models.UserUpdate{Role: &role, IsSuperuser: &yes, IsActive: &yes})
		if err != nil {
			return nil, fmt.Errorf("promote admin: %w", err)
		}
		s.logger.Info("Existing user promoted to admin", zap.Int64("userID", updated.ID))
		return updated, nil
	case !errors.Is(err, models.ErrUserNotFound):
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	in.Role = models.RoleAdmin
	in.IsSuperuser = true
	active := true
	in.IsActive = &active
	user, err := buildUser(s.hasher, in)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	s.logger.Info("Admin user seeded", zap.Int64("userID", user.ID), zap.String("email", user.Email))
	return user, nil
}

func (s *authServiceImpl) UpdateMe(ctx context.Context, userID int64, in UpdateMeInput) (*models.User, error) {
	upd, err := prepareUpdate(s.hasher, models.UserUpdate{
		Email:    in.Email,
		Username: in.Username,
		Name:     in.Name,
		Password: in.Password,
	})
	if err != nil {
		return nil, err
	}
	user, err := s.users.Update(ctx, userID, upd)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User updated own profile",
		zap.Int64("userID", userID),
		zap.Bool("email_changed", in.Email != nil),
		zap.Bool("password_changed", in.Password != nil),
	)
	return user, nil
}
