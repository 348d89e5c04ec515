package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arcane-autoheal/autoheal/internal/control"
)

// ConfigHandler exposes update/export/import over the policy config
// (spec.md §6). Update takes a full replacement document, consistent with
// the Core facade's UpdateConfig contract.
type ConfigHandler struct {
	core *control.Core
}

func NewConfigHandler(group *gin.RouterGroup, core *control.Core) *ConfigHandler {
	h := &ConfigHandler{core: core}
	config := group.Group("/config")
	{
		config.GET("", h.Export)
		config.PUT("", h.Import)
	}
	return h
}

func (h *ConfigHandler) Export(c *gin.Context) {
	doc, err := h.core.ExportConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "data": gin.H{"error": err.Error()}})
		return
	}
	c.Data(http.StatusOK, "application/json", doc)
}

func (h *ConfigHandler) Import(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "data": gin.H{"error": err.Error()}})
		return
	}
	if err := h.core.ImportConfig(body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "data": gin.H{"error": err.Error()}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"message": "config updated"}})
}
