package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/flipperlab/backend/internal/flipper"
	rediskeys "github.com/flipperlab/backend/internal/redis"
	"github.com/flipperlab/backend/internal/table"
	"github.com/redis/go-redis/v9"
)

// MessageType tags a message on the events channel.
type MessageType string

const (
	MessageTick   MessageType = "tick"
	MessageStep   MessageType = "step"
	MessageCoil   MessageType = "coil"
	MessageClosed MessageType = "session_closed"
)

// Message is what the manager fans out to websocket clients.
type Message struct {
	Type      MessageType     `json:"type"`
	SessionID string          `json:"session_id"`
	TimeMs    int64           `json:"time_ms"`
	Events    []flipper.Event `json:"events,omitempty"`
	Snapshot  *table.Snapshot `json:"snapshot,omitempty"`
	RunID     int             `json:"run_id,omitempty"`
}

func (m *Manager) publish(msg Message) {
	if m.rdb == nil {
		m.mu.RLock()
		sinks := m.sinks
		m.mu.RUnlock()
		for _, fn := range sinks {
			fn(msg)
		}
		return
	}

	b, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[SESSION] marshal %s message for %s: %v", msg.Type, msg.SessionID, err)
		return
	}
	if err := m.rdb.Publish(context.Background(), rediskeys.EventsChannel, b).Err(); err != nil {
		log.Printf("[SESSION] publish %s for %s failed: %v", msg.Type, msg.SessionID, err)
	}
}

func (m *Manager) stateTTL() time.Duration {
	minutes := m.config.SessionExpiryMinutes
	if minutes <= 0 {
		minutes = 30
	}
	return time.Duration(minutes) * time.Minute
}

// cacheState keeps the latest snapshot in redis so it outlives the session.
func (m *Manager) cacheState(id string, snap table.Snapshot) {
	if m.rdb == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := m.rdb.SetEx(context.Background(), rediskeys.SessionStateKey(id), data, m.stateTTL()).Err(); err != nil {
		log.Printf("[SESSION] cache state for %s failed: %v", id, err)
	}
}

func (m *Manager) loadState(ctx context.Context, id string) (table.Snapshot, error) {
	if m.rdb == nil {
		return table.Snapshot{}, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	data, err := m.rdb.Get(ctx, rediskeys.SessionStateKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return table.Snapshot{}, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return table.Snapshot{}, fmt.Errorf("load state %s: %w", id, err)
	}

	var snap table.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return table.Snapshot{}, fmt.Errorf("decode state %s: %w", id, err)
	}
	return snap, nil
}
