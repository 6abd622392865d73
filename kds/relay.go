package kds

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/yeremiapane/tableorder/utils"
)

// Envelope is what travels between instances.
type Envelope struct {
	Origin  string   `json:"origin"`
	Rooms   []string `json:"rooms"`
	Message Message  `json:"message"`
}

// Relay carries published messages to the hubs of other instances.
type Relay interface {
	Publish(ctx context.Context, env Envelope) error
	// Listen subscribes and returns once the subscription is active. The
	// channel is closed when ctx is done.
	Listen(ctx context.Context) (<-chan Envelope, error)
}

type RedisRelay struct {
	client  *redis.Client
	channel string
}

func NewRedisRelay(client *redis.Client, channel string) *RedisRelay {
	if channel == "" {
		channel = "tableorder:broadcast"
	}
	return &RedisRelay{client: client, channel: channel}
}

func (r *RedisRelay) Publish(ctx context.Context, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, raw).Err()
}

func (r *RedisRelay) Listen(ctx context.Context) (<-chan Envelope, error) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	out := make(chan Envelope)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					utils.ErrorLogger.Printf("Error decoding relayed message: %v", err)
					continue
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
