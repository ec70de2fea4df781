package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/flipperlab/backend/internal/presets"
	"github.com/flipperlab/backend/internal/session"
	"github.com/flipperlab/backend/internal/table"
	"github.com/gin-gonic/gin"
)

// sessionError maps session errors to HTTP responses
func sessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, session.ErrTooManySessions):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrRealtime):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, presets.ErrNotFound),
		errors.Is(err, session.ErrNoFlippers),
		errors.Is(err, session.ErrBadStep),
		errors.Is(err, session.ErrUnknownCoil),
		errors.Is(err, session.ErrBallOutsideTable),
		errors.Is(err, table.ErrNoSuchFlipper):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("[SESSION] request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func setSimHeaders(c *gin.Context, id string, snap table.Snapshot) {
	c.Header("X-Session-ID", id)
	c.Header("X-Sim-Time", strconv.FormatInt(snap.TimeMs, 10))
}

// CreateSession starts a new simulation session
func CreateSession(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req session.CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		s, err := manager.Create(c.Request.Context(), req)
		if err != nil {
			sessionError(c, err)
			return
		}

		snap := s.Snapshot()
		setSimHeaders(c, s.ID, snap)
		c.JSON(http.StatusCreated, gin.H{"session": s.Info(), "snapshot": snap})
	}
}

// GetSession returns session info and state. Closed sessions return their last cached state.
func GetSession(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if s, err := manager.Get(id); err == nil {
			snap := s.Snapshot()
			setSimHeaders(c, id, snap)
			c.JSON(http.StatusOK, gin.H{"session": s.Info(), "snapshot": snap})
			return
		}

		snap, err := manager.Snapshot(c.Request.Context(), id)
		if err != nil {
			sessionError(c, err)
			return
		}
		setSimHeaders(c, id, snap)
		c.JSON(http.StatusOK, gin.H{"closed": true, "snapshot": snap})
	}
}

// SetCoil switches one flipper coil
func SetCoil(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Flipper *int   `json:"flipper"`
			Name    string `json:"name"`
			Coil    string `json:"coil"`
			On      bool   `json:"on"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		id := c.Param("id")
		idx := -1
		switch {
		case req.Name != "":
			s, err := manager.Get(id)
			if err != nil {
				sessionError(c, err)
				return
			}
			idx = s.FlipperIndex(req.Name)
		case req.Flipper != nil:
			idx = *req.Flipper
		}
		if idx < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "flipper or name required"})
			return
		}

		snap, err := manager.SetCoil(id, idx, req.Coil, req.On)
		if err != nil {
			sessionError(c, err)
			return
		}
		setSimHeaders(c, id, snap)
		c.JSON(http.StatusOK, gin.H{"snapshot": snap})
	}
}

// AddBall places a ball on the table
func AddBall(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req session.BallSpec
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		ball, err := manager.AddBall(c.Param("id"), req)
		if err != nil {
			sessionError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ball": ball})
	}
}

// StepSession advances a manually clocked session
func StepSession(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Ms int `json:"ms"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		id := c.Param("id")
		snap, events, err := manager.Step(id, req.Ms)
		if err != nil {
			sessionError(c, err)
			return
		}
		setSimHeaders(c, id, snap)
		c.JSON(http.StatusOK, gin.H{"snapshot": snap, "events": events})
	}
}

// CloseSession stops a session and stores its replay
func CloseSession(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID, err := manager.Close(c.Request.Context(), c.Param("id"))
		if errors.Is(err, session.ErrSessionNotFound) {
			sessionError(c, err)
			return
		}
		resp := gin.H{"ok": true}
		if runID > 0 {
			resp["run_id"] = runID
		}
		if err != nil {
			resp["warning"] = "replay was not saved"
		}
		c.JSON(http.StatusOK, resp)
	}
}
