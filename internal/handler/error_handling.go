package handler

import (
	"errors"
	"net/http"

	"portfolio-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleServiceError maps a service error onto a status and an
// ErrorResponse and aborts the request. Unknown errors become a bare 500.
func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp models.ErrorResponse

	switch {
	case errors.Is(err, models.ErrIPBanned):
		statusCode = http.StatusForbidden
		errResp = models.ErrorResponse{Code: models.ErrCodeBanned, Message: "Too many failed login attempts. Try again later."}
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
		errResp = models.ErrorResponse{Code: models.ErrCodeForbidden, Message: "Not enough privileges"}
	case errors.Is(err, models.ErrInvalidCredentials):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: models.ErrCodeInvalidCredentials, Message: "Incorrect email or password"}
	case errors.Is(err, models.ErrUnauthenticated), errors.Is(err, models.ErrTokenInvalid):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: models.ErrCodeUnauthorized, Message: "Could not validate credentials"}
		c.Header("WWW-Authenticate", "Bearer")
	case errors.Is(err, models.ErrEmailAlreadyExists):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeConflict, Message: "A user with this email already exists"}
	case errors.Is(err, models.ErrUserAlreadyExists):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeConflict, Message: "A user with this username already exists"}
	case errors.Is(err, models.ErrBootstrapClosed):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeConflict, Message: "Initial setup has already been completed"}
	case errors.Is(err, models.ErrConflict):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeConflict, Message: "Conflicting data"}
	case errors.Is(err, models.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Code: models.ErrCodeNotFound, Message: "User not found"}
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrFeatureOff):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Code: models.ErrCodeNotFound, Message: "Not found"}
	case errors.Is(err, models.ErrInvalidInput):
		// Validation messages are produced by this service and safe to echo.
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: err.Error()}
	default:
		zap.L().Error("Unhandled internal error",
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Error(err),
		)
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Code: models.ErrCodeInternal, Message: "Internal server error"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}

func abortBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: message})
}
