package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arcane-autoheal/autoheal/internal/control"
)

// EventHandler exposes get/clear over the event log (spec.md §6).
type EventHandler struct {
	core *control.Core
}

func NewEventHandler(group *gin.RouterGroup, core *control.Core) *EventHandler {
	h := &EventHandler{core: core}
	events := group.Group("/events")
	{
		events.GET("", h.List)
		events.DELETE("", h.Clear)
	}
	return h
}

func (h *EventHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.core.Events()})
}

func (h *EventHandler) Clear(c *gin.Context) {
	if err := h.core.ClearEvents(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "data": gin.H{"error": err.Error()}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"message": "events cleared"}})
}
