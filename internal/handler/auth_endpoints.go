package handler

import (
	"errors"
	"net/http"

	"portfolio-server/internal/models"
	"portfolio-server/internal/service"

	"github.com/gin-gonic/gin"
)

// @Summary Log in
// @Description Exchanges email and password for a bearer token. Accepts form or JSON bodies.
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body loginRequest true "Credentials"
// @Success 200 {object} tokenResponse
// @Failure 401 {object} models.ErrorResponse "Wrong email or password"
// @Failure 403 {object} models.ErrorResponse "Client IP is banned"
// @Router /auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		abortBadRequest(c, "Invalid request data: email and password are required")
		return
	}
	if req.identity() == "" {
		abortBadRequest(c, "Invalid request data: email and password are required")
		return
	}

	td, err := h.authService.Login(c.Request.Context(), c.ClientIP(), req.identity(), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrIPBanned):
			loginAttemptsTotal.WithLabelValues("banned").Inc()
		case errors.Is(err, models.ErrInvalidCredentials):
			loginAttemptsTotal.WithLabelValues("failure").Inc()
		default:
			loginAttemptsTotal.WithLabelValues("error").Inc()
		}
		handleServiceError(c, err)
		return
	}

	loginAttemptsTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: td.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   td.ExpiresAt,
	})
}

// @Summary Create the first admin
// @Description Creates a superuser while no user exists. Fails once any user is present.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body initialSetupRequest true "Admin account"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse "Already initialized or invalid data"
// @Router /auth/initial-setup [post]
func (h *AuthHandler) initialSetup(c *gin.Context) {
	if !h.cfg.InitialSetupEnabled {
		handleServiceError(c, models.ErrFeatureOff)
		return
	}

	var req initialSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Invalid request data: email and password are required")
		return
	}

	user, err := h.authService.BootstrapFirstAdmin(c.Request.Context(), service.CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Username: req.Username,
	})
	if err != nil {
		if errors.Is(err, models.ErrBootstrapClosed) {
			initialSetupTotal.WithLabelValues("closed").Inc()
		}
		handleServiceError(c, err)
		return
	}

	initialSetupTotal.WithLabelValues("created").Inc()
	c.JSON(http.StatusOK, user)
}
