package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arcane-autoheal/autoheal/internal/control"
)

// MaintenanceHandler exposes spec.md §6's enable/disable maintenance mode.
type MaintenanceHandler struct {
	core *control.Core
}

func NewMaintenanceHandler(group *gin.RouterGroup, core *control.Core) *MaintenanceHandler {
	h := &MaintenanceHandler{core: core}
	maintenance := group.Group("/maintenance")
	{
		maintenance.POST("/enable", h.Enable)
		maintenance.POST("/disable", h.Disable)
	}
	return h
}

func (h *MaintenanceHandler) Enable(c *gin.Context) {
	h.set(c, true)
}

func (h *MaintenanceHandler) Disable(c *gin.Context) {
	h.set(c, false)
}

func (h *MaintenanceHandler) set(c *gin.Context, active bool) {
	if err := h.core.SetMaintenance(active); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "data": gin.H{"error": err.Error()}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"maintenance": active}})
}
