package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arcane-autoheal/autoheal/internal/control"
)

// StatusHandler exposes spec.md §6's "Get status" operation.
type StatusHandler struct {
	core *control.Core
}

func NewStatusHandler(group *gin.RouterGroup, core *control.Core) *StatusHandler {
	h := &StatusHandler{core: core}
	group.GET("/status", h.Get)
	return h
}

func (h *StatusHandler) Get(c *gin.Context) {
	status, err := h.core.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "data": gin.H{"error": err.Error()}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": status})
}
