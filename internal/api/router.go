// Package api is the thin HTTP inspection surface over the Core facade
// (spec.md §1 Non-goals: the full CRUD control plane and the web UI are
// explicitly out of scope — this package exposes read/inspect endpoints
// plus the handful of mutating operations spec.md §6 names, nothing more).
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/arcane-autoheal/autoheal/internal/control"
)

// NewRouter builds the gin engine wiring every handler over core.
// releaseMode selects gin.ReleaseMode/gin.DebugMode the way the teacher's bootstrap
// does for its own router.
func NewRouter(core *control.Core, releaseMode bool) *gin.Engine {
	if releaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders:    []string{"Origin", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))

	group := router.Group("/api")
	NewHealthHandler(group)
	NewStatusHandler(group, core)
	NewContainerHandler(group, core)
	NewEventHandler(group, core)
	NewConfigHandler(group, core)
	NewMaintenanceHandler(group, core)

	return router
}
