package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *AuthHandler) visitorStats(c *gin.Context) {
	stats, err := h.sessionService.VisitorStats(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AuthHandler) sessionStats(c *gin.Context) {
	stats, err := h.sessionService.SessionStats(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
