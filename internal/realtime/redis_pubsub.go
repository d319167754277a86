package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hushhour/backend/internal/models"
)

const (
	channelPrefix  = "room:"
	publishTimeout = 5 * time.Second
)

// redisPayload is the envelope published to a room's Redis channel.
type redisPayload struct {
	Type   models.EventType `json:"type"`
	RoomID uuid.UUID        `json:"room_id"`
	At     int64            `json:"at"`
}

// RedisPubSub implements Bridge on Redis pub/sub so multiple server
// instances fan the same room events out to their local connections.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub bridge for room events.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	return &RedisPubSub{client: client, logger: logger}
}

// PublishRoomEvent publishes an event to the room's Redis channel.
func (r *RedisPubSub) PublishRoomEvent(ev models.Event) error {
	body, err := json.Marshal(redisPayload{Type: ev.Type, RoomID: ev.RoomID, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return r.client.Publish(ctx, channelPrefix+ev.RoomID.String(), body).Err()
}

// SubscribeRoom subscribes to a room's Redis channel and calls handler for
// each message. Returns a cancel function that stops the subscription.
func (r *RedisPubSub) SubscribeRoom(roomID uuid.UUID, handler func(ev models.Event)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, channelPrefix+roomID.String())
	if _, err = pubsub.Receive(ctx); err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var p redisPayload
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					r.logger.Debug("bad bridge payload", zap.Error(err))
					continue
				}
				handler(models.Event{Type: p.Type, RoomID: p.RoomID})
			}
		}
	}()
	return func() { cancelCtx() }, nil
}
