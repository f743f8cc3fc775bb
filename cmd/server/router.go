package main

import (
	"net/http"
	"time"

	"portfolio-server/internal/config"
	"portfolio-server/internal/handler"
	"portfolio-server/internal/middleware"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

// newRouter assembles the gin engine: logging, recovery, CORS, metrics,
// the health check and every API route.
func newRouter(cfg *config.Config, authHandler *handler.AuthHandler, redisClient *redis.Client, log *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	if err := router.SetTrustedProxies(cfg.GetTrustedProxies()); err != nil {
		return nil, err
	}
	router.Use(middleware.RequestLogger(log))
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg, log)))

	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", health)
	router.HEAD("/health", health)

	var limiter gin.HandlerFunc
	if redisClient != nil && cfg.RateLimitPerMinute > 0 {
		limiter = newAuthLimiter(redisClient, cfg.RateLimitPerMinute)
	}
	authHandler.RegisterRoutes(router, limiter)
	return router, nil
}

func corsConfig(cfg *config.Config, log *zap.Logger) cors.Config {
	c := cors.DefaultConfig()
	if origins := cfg.GetAllowedOrigins(); len(origins) > 0 {
		c.AllowOrigins = origins
	} else {
		c.AllowOrigins = []string{"http://localhost:3000"}
		log.Info("CORS_ALLOWED_ORIGINS not set, allowing default", zap.String("origin", "http://localhost:3000"))
	}
	c.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	c.AllowCredentials = true
	c.MaxAge = 12 * time.Hour
	return c
}

// newAuthLimiter throttles requests per client IP with counters in Redis.
func newAuthLimiter(client *redis.Client, perMinute uint) gin.HandlerFunc {
	store := rateli.RedisStore(&rateli.RedisOptions{
		RedisClient: client,
		Rate:        time.Minute,
		Limit:       perMinute,
	})
	return rateli.RateLimiter(store, &rateli.Options{
		ErrorHandler: func(c *gin.Context, info rateli.Info) {
			zap.L().Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			c.String(http.StatusTooManyRequests, "Too many requests. Try again in "+time.Until(info.ResetTime).Round(time.Second).String())
		},
		KeyFunc: func(c *gin.Context) string {
			return "auth:" + c.ClientIP()
		},
	})
}
