package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"forum_backend/internal/events"
	"forum_backend/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisBridge relays frames between server instances over one Redis pub/sub
// channel. Every instance publishes what it emits and delivers what the
// others emit.
type RedisBridge struct {
	client     *redis.Client
	channel    string
	instanceID string
}

type envelope struct {
	Origin   string          `json:"origin"`
	Audience events.Audience `json:"audience"`
	Frame    json.RawMessage `json:"frame"`
}

func NewRedisBridge(client *redis.Client, channel string) *RedisBridge {
	return &RedisBridge{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
	}
}

func (b *RedisBridge) InstanceID() string {
	return b.instanceID
}

func (b *RedisBridge) Forward(ctx context.Context, audience events.Audience, frame []byte) error {
	data, err := json.Marshal(envelope{
		Origin:   b.instanceID,
		Audience: audience,
		Frame:    frame,
	})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Subscribe calls deliver for every frame published by another instance
// until ctx is done. It returns once the subscription is confirmed or fails.
func (b *RedisBridge) Subscribe(ctx context.Context, deliver func(events.Audience, []byte)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	go func() {
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
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					logger.Warn("malformed bridge message", "error", err)
					continue
				}
				if env.Origin == b.instanceID {
					continue
				}
				deliver(env.Audience, env.Frame)
			}
		}
	}()

	logger.Info("realtime bridge subscribed", "channel", b.channel, "instance_id", b.instanceID)
	return nil
}

var _ Bridge = (*RedisBridge)(nil)
