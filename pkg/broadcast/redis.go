package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus distributes events across API instances via Redis pub/sub so
// reviewer sessions held by different nodes still see feedback updates.
type RedisBus struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisBus constructs a bus publishing on the given Redis channel.
func NewRedisBus(client *redis.Client, channel string, logger *zap.Logger) *RedisBus {
	if channel == "" {
		channel = "cfms:feedback:updates"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBus{client: client, channel: channel, logger: logger}
}

// Publish marshals the event and pushes it onto the Redis channel.
func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	if b.client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal broadcast event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish broadcast event: %w", err)
	}
	return nil
}

// Subscribe consumes the Redis channel and forwards matching events
// until the context is canceled.
func (b *RedisBus) Subscribe(ctx context.Context, folderID, section string) (<-chan Event, error) {
	if b.client == nil {
		return nil, fmt.Errorf("redis client not configured")
	}
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer pubsub.Close() //nolint:errcheck
		src := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-src:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn("dropping malformed broadcast payload", zap.Error(err))
					continue
				}
				if !matches(event, folderID, section) {
					continue
				}
				select {
				case out <- event:
				default:
				}
			}
		}
	}()
	return out, nil
}
