package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewHealthHandler registers the liveness endpoint used by the daemon's own
// container healthcheck, kept unauthenticated like the teacher's own
// /api/health route.
func NewHealthHandler(group *gin.RouterGroup) {
	group.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"status": "ok"}})
	})
}
