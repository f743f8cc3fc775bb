package main

import (
	"context"
	"fmt"
	"time"

	"portfolio-server/internal/config"
	"portfolio-server/internal/database"
	"portfolio-server/internal/guard"
	"portfolio-server/internal/handler"
	"portfolio-server/internal/interfaces"
	"portfolio-server/internal/security"
	"portfolio-server/internal/service"
	"portfolio-server/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// newApp wires repositories, services and handlers over live PostgreSQL
// and Redis connections and seeds the configured admin.
func newApp(ctx context.Context, cfg *config.Config, db interfaces.DBTX, redisClient *redis.Client, log *zap.Logger) (*gin.Engine, error) {
	userRepo := database.NewPgUserRepository(db, log)
	sessionRepo := database.NewPgSessionRepository(db, log)
	guardStore := database.NewRedisGuardStore(redisClient, log)

	hasher := security.NewHasher(cfg.PasswordPepper, cfg.BcryptCost)
	codec := token.NewCodec(cfg.JWTSecret, cfg.JWTIssuer, token.WithLogger(log))
	loginGuard := guard.New(guardStore, guard.Config{
		Threshold: cfg.LoginMaxFailures,
		Window:    cfg.LoginFailureWindow,
		BanTTL:    cfg.LoginBanTTL,
	}, log)
	policy := loginGuard.Config()
	log.Info("Login guard configured",
		zap.Int("threshold", policy.Threshold),
		zap.Duration("window", policy.Window),
		zap.Duration("ban_ttl", policy.BanTTL),
	)

	directory := service.NewDirectory(userRepo, hasher, log)
	authSvc := service.NewAuthService(userRepo, directory, loginGuard, codec, hasher,
		service.AuthConfig{AccessTokenTTL: cfg.AccessTokenTTL}, log)
	userSvc := service.NewUserService(userRepo, hasher, log)
	sessionSvc := service.NewSessionService(sessionRepo, cfg.SessionIdleTimeout, nil, log)

	if cfg.AdminEmail != "" {
		seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if _, err := authSvc.SeedAdmin(seedCtx, service.CreateUserInput{
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
			Name:     cfg.AdminName,
			Username: cfg.AdminUsername,
		}); err != nil {
			return nil, fmt.Errorf("seed admin: %w", err)
		}
	}

	authHandler := handler.NewAuthHandler(authSvc, userSvc, sessionSvc, loginGuard,
		handler.Config{InitialSetupEnabled: cfg.InitialSetupEnabled}, log)
	return newRouter(cfg, authHandler, redisClient, log)
}
