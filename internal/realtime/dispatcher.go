package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/shopmind/shopmind/internal/logging"
)

// Event is the wire frame sent to room members.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Dispatcher publishes named events to a room. Fire-and-forget: no retry,
// no delivery guarantee beyond what the transport gives.
type Dispatcher interface {
	Publish(ctx context.Context, room, event string, payload any) error
}

// RedisDispatcher fans events out through Redis pub/sub so every node's
// hub sees them, whichever node accepted the websocket.
type RedisDispatcher struct {
	rdb *redis.Client
}

func NewRedisDispatcher(rdb *redis.Client) *RedisDispatcher {
	return &RedisDispatcher{rdb: rdb}
}

func (d *RedisDispatcher) Publish(ctx context.Context, room, event string, payload any) error {
	data, err := json.Marshal(Event{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("realtime: marshal event: %w", err)
	}
	if err := d.rdb.Publish(ctx, room, data).Err(); err != nil {
		return fmt.Errorf("realtime: publish: %w", err)
	}
	return nil
}

// Relay subscribes to all room channels and feeds frames into the local
// hub. Runs until ctx is cancelled.
func Relay(ctx context.Context, rdb *redis.Client, hub *Hub) {
	l := logging.FromContext(ctx).With("component", "realtime_relay")
	sub := rdb.PSubscribe(ctx, "tenant:*", "conversation:*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				l.Warn("relay channel closed")
				return
			}
			hub.Deliver(msg.Channel, []byte(msg.Payload))
		}
	}
}

// LocalDispatcher delivers straight into one hub. Used in tests and in
// single-node setups without Redis.
type LocalDispatcher struct {
	Hub *Hub
}

func (d *LocalDispatcher) Publish(_ context.Context, room, event string, payload any) error {
	data, err := json.Marshal(Event{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("realtime: marshal event: %w", err)
	}
	d.Hub.Deliver(room, data)
	return nil
}
