package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/flipperlab/backend/internal/replay"
	"github.com/flipperlab/backend/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

func requireDB(c *gin.Context, db *sqlx.DB) bool {
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage not configured"})
		return false
	}
	return true
}

func runID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return 0, false
	}
	return id, true
}

// ListRuns returns recent stored runs
func ListRuns(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireDB(c, db) {
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if limit <= 0 || limit > 200 {
			limit = 200
		}

		runs, err := session.ListRuns(c.Request.Context(), db, limit, offset)
		if err != nil {
			log.Printf("[REPLAY] Failed to list runs: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch runs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
	}
}

// GetRun returns run metadata, or the raw msgpack recording with ?format=msgpack
func GetRun(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireDB(c, db) {
			return
		}
		id, ok := runID(c)
		if !ok {
			return
		}

		run, err := session.GetRun(c.Request.Context(), db, id)
		if errors.Is(err, session.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		if err != nil {
			log.Printf("[REPLAY] Failed to load run %d: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch run"})
			return
		}

		if c.Query("format") == "msgpack" {
			c.Data(http.StatusOK, "application/msgpack", run.Recording)
			return
		}
		c.JSON(http.StatusOK, gin.H{"run": run})
	}
}

// VerifyRun replays a stored run and reports whether it reproduces the recorded state
func VerifyRun(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireDB(c, db) {
			return
		}
		id, ok := runID(c)
		if !ok {
			return
		}

		run, err := session.GetRun(c.Request.Context(), db, id)
		if errors.Is(err, session.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		if err != nil {
			log.Printf("[REPLAY] Failed to load run %d: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch run"})
			return
		}

		digest, err := session.VerifyRun(run)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"ok": true, "digest": digest})
		case errors.Is(err, replay.ErrDigestMismatch):
			log.Printf("[REPLAY] Run %d does not reproduce: %v", id, err)
			c.JSON(http.StatusOK, gin.H{"ok": false, "digest": digest, "expected": run.Digest})
		default:
			log.Printf("[REPLAY] Run %d could not be replayed: %v", id, err)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "error": err.Error()})
		}
	}
}
