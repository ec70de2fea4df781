package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/flipperlab/backend/internal/admin"
	"github.com/flipperlab/backend/internal/config"
	"github.com/flipperlab/backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// AdminLogin validates username and token and issues a session JWT
func AdminLogin(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireDB(c, db) {
			return
		}
		var req struct {
			Username string `json:"username" binding:"required"`
			Token    string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		username := strings.TrimSpace(req.Username)
		acc, err := admin.ValidateAdminCredentials(db, username, strings.TrimSpace(req.Token), c.ClientIP())
		if err != nil {
			admin.LogAdminAction(db, username, c.ClientIP(), "/api/v1/admin/login", "login", nil, false)
			if errors.Is(err, admin.ErrAccountNotFound) || errors.Is(err, admin.ErrInvalidToken) || errors.Is(err, admin.ErrIPNotAllowed) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			log.Printf("[ADMIN] Login failed for %s: %v", username, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		token, err := admin.IssueToken(cfg.JWTSecret, acc.Username, acc.Roles, time.Now())
		if err != nil {
			log.Printf("[ADMIN] Failed to sign token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		admin.LogAdminAction(db, acc.Username, c.ClientIP(), "/api/v1/admin/login", "login", nil, true)
		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"expires_in": int(admin.TokenTTL.Seconds()),
			"admin":      gin.H{"username": acc.Username, "display_name": acc.DisplayName, "roles": acc.Roles},
		})
	}
}

// AdminMe returns the authenticated admin
func AdminMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": c.GetString(middleware.AdminUsernameKey)})
	}
}
