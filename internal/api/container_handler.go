package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arcane-autoheal/autoheal/internal/control"
)

// ContainerHandler exposes the listing and per-container mutating
// operations from spec.md §6 (select/deselect, manual restart, manual
// unquarantine).
type ContainerHandler struct {
	core *control.Core
}

func NewContainerHandler(group *gin.RouterGroup, core *control.Core) *ContainerHandler {
	h := &ContainerHandler{core: core}
	containers := group.Group("/containers")
	{
		containers.GET("", h.List)
		containers.POST("/:token/select", h.Select)
		containers.POST("/:token/deselect", h.Deselect)
		containers.POST("/:token/restart", h.Restart)
		containers.POST("/:token/unquarantine", h.Unquarantine)
	}
	return h
}

func (h *ContainerHandler) List(c *gin.Context) {
	views, err := h.core.ListContainers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "data": gin.H{"error": err.Error()}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": views})
}

func (h *ContainerHandler) Select(c *gin.Context) {
	if err := h.core.Select(c.Request.Context(), c.Param("token")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "data": gin.H{"error": err.Error()}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"message": "selected"}})
}

func (h *ContainerHandler) Deselect(c *gin.Context) {
	if err := h.core.Deselect(c.Request.Context(), c.Param("token")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "data": gin.H{"error": err.Error()}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"message": "deselected"}})
}

func (h *ContainerHandler) Restart(c *gin.Context) {
	if err := h.core.ManualRestart(c.Request.Context(), c.Param("token")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "data": gin.H{"error": err.Error()}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"message": "restart issued"}})
}

func (h *ContainerHandler) Unquarantine(c *gin.Context) {
	if err := h.core.ManualUnquarantine(c.Request.Context(), c.Param("token")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "data": gin.H{"error": err.Error()}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"message": "unquarantined"}})
}
