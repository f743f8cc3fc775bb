package handler

import (
	"errors"
	"strings"

	"portfolio-server/internal/logger"
	"portfolio-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const currentUserKey = "current_user"

// GuardMiddleware rejects requests from banned client IPs before any
// other work. Health and metrics endpoints are exempt.
func (h *AuthHandler) GuardMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.URL.Path {
		case "/health", "/metrics":
			c.Next()
			return
		}
		if err := h.guard.Check(c.Request.Context(), c.ClientIP()); err != nil {
			if errors.Is(err, models.ErrIPBanned) {
				h.logger.Warn("Request from banned client rejected",
					zap.String("ip", c.ClientIP()),
					zap.String("path", c.Request.URL.Path),
				)
			}
			handleServiceError(c, err)
			return
		}
		c.Next()
	}
}

// AuthMiddleware resolves the bearer token to an active user, stores it in
// the context and records session activity.
func (h *AuthHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			tokenVerificationsTotal.WithLabelValues("failure").Inc()
			handleServiceError(c, models.ErrUnauthenticated)
			return
		}

		user, err := h.authService.CurrentUser(c.Request.Context(), tokenString)
		if err != nil {
			tokenVerificationsTotal.WithLabelValues("failure").Inc()
			if errors.Is(err, models.ErrUnauthenticated) {
				h.logger.Info("Bearer token rejected", zap.String("token", logger.MaskToken(tokenString)))
			}
			handleServiceError(c, err)
			return
		}
		tokenVerificationsTotal.WithLabelValues("success").Inc()
		c.Set(currentUserKey, user)

		if h.sessionService != nil {
			if err := h.sessionService.Touch(c.Request.Context(), user.ID); err != nil {
				h.logger.Warn("Failed to record session activity", zap.Int64("userID", user.ID), zap.Error(err))
			}
		}
		c.Next()
	}
}

// RequireAdminMiddleware allows superusers and users with the admin role.
// It must run after AuthMiddleware.
func (h *AuthHandler) RequireAdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			handleServiceError(c, models.ErrUnauthenticated)
			return
		}
		if !user.IsAdmin() {
			h.logger.Warn("Admin endpoint denied", zap.Int64("userID", user.ID), zap.String("path", c.FullPath()))
			handleServiceError(c, models.ErrForbidden)
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func currentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}
