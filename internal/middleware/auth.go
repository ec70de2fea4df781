package middleware

import (
	"net/http"
	"strings"

	"github.com/flipperlab/backend/internal/admin"
	"github.com/flipperlab/backend/internal/config"
	"github.com/gin-gonic/gin"
)

// AdminUsernameKey is the gin context key holding the authenticated admin
const AdminUsernameKey = "admin_username"

// AdminAuth validates the bearer admin JWT and sets the admin username in context
func AdminAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := admin.ParseToken(cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(AdminUsernameKey, claims.Username)
		c.Next()
	}
}
