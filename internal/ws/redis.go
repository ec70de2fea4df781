package ws

import (
	"context"
	"encoding/json"
	"log"

	rediskeys "github.com/flipperlab/backend/internal/redis"
	"github.com/redis/go-redis/v9"
)

// StartEventSubscriber subscribes to the flipper events channel and forwards each payload to its session room.
func (h *Hub) StartEventSubscriber(ctx context.Context, rdb *redis.Client) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; delivering session messages locally")
		h.manager.OnMessage(h.Deliver)
		return
	}

	pubsub := rdb.Subscribe(ctx, rediskeys.EventsChannel)
	ch := pubsub.Channel()
	go func() {
		<-ctx.Done()
		pubsub.Close()
	}()
	go func() {
		log.Printf("[WS] %s subscriber started", rediskeys.EventsChannel)
		for msg := range ch {
			var head struct {
				Type      string `json:"type"`
				SessionID string `json:"session_id"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &head); err != nil || head.SessionID == "" {
				log.Printf("[WS] invalid event payload: %v", err)
				continue
			}
			h.broadcastRaw(head.SessionID, []byte(msg.Payload))
		}
		log.Printf("[WS] %s subscriber stopped", rediskeys.EventsChannel)
	}()
}
