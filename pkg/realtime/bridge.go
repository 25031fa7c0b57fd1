package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"godispatch/pkg/cache"
)

const bridgeChannel = "realtime:events"

// Publisher is the fan-out contract the notification dispatcher uses. Delivery
// is best-effort: failures are logged by callers, never escalated.
type Publisher interface {
	Publish(ctx context.Context, room, event string, data map[string]interface{}) error
}

// RedisBridge relays events through redis pub/sub so every server instance
// delivers them to its local websocket clients. Without redis it degrades to
// local-only delivery.
type RedisBridge struct {
	hub   *Hub
	redis *cache.RedisCache
}

func NewRedisBridge(hub *Hub, redis *cache.RedisCache) *RedisBridge {
	return &RedisBridge{
		hub:   hub,
		redis: redis,
	}
}

func (b *RedisBridge) Publish(ctx context.Context, room, event string, data map[string]interface{}) error {
	envelope := Event{
		Room:      room,
		Event:     event,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	if b.redis == nil {
		b.hub.Emit(room, event, data)
		return nil
	}

	return b.redis.Publish(ctx, bridgeChannel, envelope)
}

// Run consumes bridged events until the context is cancelled. Call it in a
// goroutine next to hub.Run.
func (b *RedisBridge) Run(ctx context.Context) {
	if b.redis == nil {
		return
	}

	sub := b.redis.Subscribe(ctx, bridgeChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var envelope Event
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				log.Printf("realtime bridge: bad envelope: %v", err)
				continue
			}

			b.hub.Emit(envelope.Room, envelope.Event, envelope.Data)
		}
	}
}
