package handler

import (
	"net/http"

	"portfolio-server/internal/models"
	"portfolio-server/internal/service"

	"github.com/gin-gonic/gin"
)

// @Summary Current user
// @Tags user
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) getMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthenticated)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary Update current user
// @Tags user
// @Accept json
// @Produce json
// @Param request body updateMeRequest true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse "Invalid data or email already taken"
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /auth/me [put]
func (h *AuthHandler) updateMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		handleServiceError(c, models.ErrUnauthenticated)
		return
	}

	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Invalid request data")
		return
	}

	updated, err := h.authService.UpdateMe(c.Request.Context(), user.ID, service.UpdateMeInput{
		Email:    req.Email,
		Username: req.Username,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
