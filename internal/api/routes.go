package api

import (
	"log"

	"github.com/flipperlab/backend/internal/api/handlers"
	"github.com/flipperlab/backend/internal/config"
	"github.com/flipperlab/backend/internal/middleware"
	"github.com/flipperlab/backend/internal/presets"
	"github.com/flipperlab/backend/internal/session"
	"github.com/flipperlab/backend/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// SetupRoutes configures all API routes. db may be nil, in which case storage-backed routes answer 503.
func SetupRoutes(router *gin.Engine, db *sqlx.DB, cfg *config.Config, store *presets.Store, manager *session.Manager, hub *ws.Hub) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(manager))

		// Preset endpoints
		presetsGroup := v1.Group("/presets")
		{
			presetsGroup.GET("", handlers.ListPresets(store))
			presetsGroup.GET("/:name", handlers.GetPreset(store))
			presetsGroup.POST("", middleware.AdminAuth(cfg), handlers.UpsertPreset(db, store))
			presetsGroup.PUT("/:name", middleware.AdminAuth(cfg), handlers.UpsertPreset(db, store))
			presetsGroup.DELETE("/:name", middleware.AdminAuth(cfg), handlers.DeletePreset(db, store))
		}

		// Session endpoints
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handlers.CreateSession(manager))
			sessions.GET("/:id", handlers.GetSession(manager))
			sessions.POST("/:id/coil", handlers.SetCoil(manager))
			sessions.POST("/:id/balls", handlers.AddBall(manager))
			sessions.POST("/:id/step", handlers.StepSession(manager))
			sessions.DELETE("/:id", handlers.CloseSession(manager))
			sessions.GET("/:id/ws", middleware.WebSocketCORSCheck(cfg), hub.HandleWebSocket)
		}

		// Stored replays
		runs := v1.Group("/runs")
		{
			runs.GET("", handlers.ListRuns(db))
			runs.GET("/:id", handlers.GetRun(db))
			runs.POST("/:id/verify", handlers.VerifyRun(db))
		}

		// Admin endpoints
		v1.POST("/admin/login", handlers.AdminLogin(db, cfg))
		adminGroup := v1.Group("/admin", middleware.AdminAuth(cfg))
		{
			adminGroup.GET("/me", handlers.AdminMe())
			adminGroup.GET("/config", handlers.GetAdminRuntimeConfig(db, cfg))
			adminGroup.PUT("/config/:key", handlers.UpdateAdminRuntimeConfig(db, cfg))
			adminGroup.GET("/audit", handlers.GetAdminAuditLogs(db))
		}
	}
}
