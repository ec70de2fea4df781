package ws

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/flipperlab/backend/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// CoilData switches a coil. Flipper is resolved by Name when set, otherwise by Index.
type CoilData struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Coil  string `json:"coil"`
	On    bool   `json:"on"`
}

type StepData struct {
	Ms int `json:"ms"`
}

func newClientID() string {
	b := make([]byte, 6)
	rand.Read(b)
	return "c_" + hex.EncodeToString(b)
}

// HandleWebSocket upgrades a request for /sessions/:id/ws and joins the session room.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	sessionID := c.Param("id")
	s, err := h.manager.Get(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		id:        newClientID(),
		sessionID: sessionID,
		send:      make(chan []byte, sendBuffer),
	}

	h.register <- client

	snap := s.Snapshot()
	client.reply(map[string]interface{}{
		"type":     "state",
		"session":  s.Info(),
		"snapshot": snap,
	})

	go client.writePump()
	go client.readPump()
}

// readPump reads client commands until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] unexpected close for client %s: %v", c.id, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message")
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage runs one client command against the session.
func (c *Client) handleMessage(msg WSMessage) {
	m := c.hub.manager
	s, err := m.Get(c.sessionID)
	if err != nil {
		c.sendError("Session not found")
		return
	}

	switch msg.Type {
	case "coil":
		var data CoilData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid coil data")
			return
		}
		idx := data.Index
		if data.Name != "" {
			if idx = s.FlipperIndex(data.Name); idx < 0 {
				c.sendError("Unknown flipper " + data.Name)
				return
			}
		}
		// the resulting state reaches every client through the session fan-out
		if _, err := m.SetCoil(c.sessionID, idx, data.Coil, data.On); err != nil {
			c.sendError(err.Error())
		}

	case "add_ball":
		var data session.BallSpec
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid ball data")
			return
		}
		ball, err := m.AddBall(c.sessionID, data)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.reply(map[string]interface{}{"type": "ball_added", "ball": ball})

	case "step":
		var data StepData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid step data")
			return
		}
		if _, _, err := m.Step(c.sessionID, data.Ms); err != nil {
			c.sendError(err.Error())
		}

	case "get_state":
		c.reply(map[string]interface{}{
			"type":     "state",
			"session":  s.Info(),
			"snapshot": s.Snapshot(),
		})

	default:
		c.sendError("Unknown message type")
	}
}
