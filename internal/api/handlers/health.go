package handlers

import (
	"net/http"
	"time"

	"github.com/flipperlab/backend/internal/session"
	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status
func HealthCheck(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"service":         "flipperlab-api",
			"version":         version,
			"uptime":          time.Since(startTime).String(),
			"active_sessions": manager.ActiveCount(),
		})
	}
}
