// Package server wires the HTTP routes.
package server

import (
	"io/fs"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/everweb-bridge/backend/internal/middleware"
	"github.com/everweb-bridge/backend/internal/schedules"
	"github.com/everweb-bridge/backend/internal/submissions"
	"github.com/everweb-bridge/backend/internal/web"
	"github.com/everweb-bridge/backend/pkg/response"
)

// isoMillis matches JavaScript's Date.prototype.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Deps are the handlers and settings the router needs.
type Deps struct {
	Schedules          *schedules.Handler
	Submissions        *submissions.Handler
	Assets             fs.FS
	CORSAllowedOrigins string
	Logger             *zap.Logger
	Now                func() time.Time
}

// NewRouter builds the gin engine.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(d.CORSAllowedOrigins))
	router.Use(middleware.Logger(d.Logger))

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			response.OK(c, gin.H{"status": "ok", "timestamp": d.Now().UTC().Format(isoMillis)})
		})
		api.GET("/schedules", d.Schedules.List)
		api.POST("/submit", d.Submissions.Submit)
	}

	if d.Assets != nil {
		router.NoRoute(web.Handler(d.Assets))
	}
	return router
}
