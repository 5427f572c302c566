package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type envelope struct {
	Event
	Audience []string `json:"audience"`
}

// RedisBridge shares events between instances over a Redis channel. Every instance
// publishes to the channel and delivers what it receives to its own hub.
type RedisBridge struct {
	client  *redis.Client
	channel string
	hub     *Hub
	log     logrus.FieldLogger
}

func NewRedisBridge(client *redis.Client, channel string, hub *Hub, log logrus.FieldLogger) *RedisBridge {
	return &RedisBridge{client: client, channel: channel, hub: hub, log: log}
}

func (b *RedisBridge) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(envelope{Event: e, Audience: e.Audience})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Start subscribes to the channel and forwards messages to the hub until ctx ends.
// It returns once the subscription is confirmed.
func (b *RedisBridge) Start(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	go func() {
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					b.log.WithError(err).Warn("Dropping malformed realtime event")
					continue
				}
				env.Event.Audience = env.Audience
				b.hub.Deliver(env.Event)
			}
		}
	}()
	return nil
}
