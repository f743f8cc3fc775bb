package handler

import (
	"net/http"
	"strconv"

	"portfolio-server/internal/service"

	"github.com/gin-gonic/gin"
)

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || id <= 0 {
		abortBadRequest(c, "Invalid user ID")
		return 0, false
	}
	return id, true
}

func (h *AuthHandler) listUsers(c *gin.Context) {
	var q listUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortBadRequest(c, "Invalid pagination parameters")
		return
	}
	users, total, err := h.userService.List(c.Request.Context(), q.Skip, q.Limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users, "total": total})
}

func (h *AuthHandler) getUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Invalid request data: email and password are required")
		return
	}
	user, err := h.userService.Create(c.Request.Context(), service.CreateUserInput{
		Email:       req.Email,
		Username:    req.Username,
		Name:        req.Name,
		Password:    req.Password,
		Role:        req.Role,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) updateUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "Invalid request data")
		return
	}
	user, err := h.userService.Update(c.Request.Context(), id, service.AdminUpdateInput{
		Email:       req.Email,
		Username:    req.Username,
		Name:        req.Name,
		Password:    req.Password,
		Role:        req.Role,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
