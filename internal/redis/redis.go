package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// EventsChannel carries flipper events from every session to the websocket hub.
const EventsChannel = "flipper_events"

// Connect establishes a connection to Redis
func Connect(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// PresetKey caches one flipper preset.
func PresetKey(name string) string { return "preset:" + name }

// PresetListKey caches the preset listing.
const PresetListKey = "preset:_all"

// SessionStateKey caches the last snapshot of a session.
func SessionStateKey(id string) string { return fmt.Sprintf("session:%s:state", id) }
