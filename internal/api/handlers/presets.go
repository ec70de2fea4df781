package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/flipperlab/backend/internal/admin"
	"github.com/flipperlab/backend/internal/middleware"
	"github.com/flipperlab/backend/internal/presets"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// ListPresets returns every available flipper preset
func ListPresets(store *presets.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := store.List(c.Request.Context())
		if err != nil {
			log.Printf("[PRESET] Failed to list presets: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch presets"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"presets": list})
	}
}

// GetPreset returns one preset by name
func GetPreset(store *presets.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := store.Get(c.Request.Context(), c.Param("name"))
		if errors.Is(err, presets.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "preset not found"})
			return
		}
		if err != nil {
			log.Printf("[PRESET] Failed to load %s: %v", c.Param("name"), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch preset"})
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// UpsertPreset creates or replaces a preset (admin only)
func UpsertPreset(db *sqlx.DB, store *presets.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminUsername := c.GetString(middleware.AdminUsernameKey)

		var p presets.Preset
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid preset"})
			return
		}
		if name := c.Param("name"); name != "" {
			p.Name = name
		}

		err := store.Upsert(c.Request.Context(), &p)
		details := map[string]interface{}{"name": p.Name, "side": p.Side}
		if err != nil {
			admin.LogAdminAction(db, adminUsername, c.ClientIP(), c.FullPath(), "upsert_preset", details, false)
			if errors.Is(err, presets.ErrInvalid) || errors.Is(err, presets.ErrInvalidName) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			log.Printf("[PRESET] Failed to store %s: %v", p.Name, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store preset"})
			return
		}

		admin.LogAdminAction(db, adminUsername, c.ClientIP(), c.FullPath(), "upsert_preset", details, true)
		c.JSON(http.StatusOK, p)
	}
}

// DeletePreset removes a stored preset (admin only)
func DeletePreset(db *sqlx.DB, store *presets.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminUsername := c.GetString(middleware.AdminUsernameKey)
		name := c.Param("name")

		err := store.Delete(c.Request.Context(), name)
		admin.LogAdminAction(db, adminUsername, c.ClientIP(), c.FullPath(), "delete_preset", map[string]interface{}{"name": name}, err == nil)
		if errors.Is(err, presets.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "preset not found"})
			return
		}
		if err != nil {
			log.Printf("[PRESET] Failed to delete %s: %v", name, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete preset"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
