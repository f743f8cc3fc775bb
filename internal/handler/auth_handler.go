package handler

import (
	"portfolio-server/internal/guard"
	"portfolio-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Config holds handler switches.
type Config struct {
	InitialSetupEnabled bool
}

type AuthHandler struct {
	authService    service.AuthService
	userService    service.UserService
	sessionService *service.SessionService
	guard          *guard.Guard
	cfg            Config
	logger         *zap.Logger
}

func NewAuthHandler(
	authService service.AuthService,
	userService service.UserService,
	sessionService *service.SessionService,
	g *guard.Guard,
	cfg Config,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userService:    userService,
		sessionService: sessionService,
		guard:          g,
		cfg:            cfg,
		logger:         logger.Named("AuthHandler"),
	}
}

// RegisterRoutes mounts every API route on router. authLimiter, when not
// nil, throttles the unauthenticated /auth endpoints.
func (h *AuthHandler) RegisterRoutes(router *gin.Engine, authLimiter gin.HandlerFunc) {
	router.Use(h.GuardMiddleware())

	public := router.Group("/auth")
	if authLimiter != nil {
		public.Use(authLimiter)
	}
	{
		public.POST("/login", h.login)
		public.POST("/initial-setup", h.initialSetup)
	}

	me := router.Group("/auth/me")
	me.Use(h.AuthMiddleware())
	{
		me.GET("", h.getMe)
		me.PUT("", h.updateMe)
	}

	users := router.Group("/users")
	users.Use(h.AuthMiddleware(), h.RequireAdminMiddleware())
	{
		users.GET("", h.listUsers)
		users.POST("", h.createUser)
		users.GET("/:user_id", h.getUser)
		users.PUT("/:user_id", h.updateUser)
	}

	stats := router.Group("/stats")
	stats.Use(h.AuthMiddleware())
	{
		stats.GET("/visitors", h.visitorStats)
		stats.GET("/sessions", h.sessionStats)
	}
}
