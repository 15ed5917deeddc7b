package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// OpenRedis returns a client for addr. The connection is lazy.
func OpenRedis(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// RedisSubscriber reads the data and control channels over redis pub/sub.
type RedisSubscriber struct {
	client   *redis.Client
	channels []string
	route    router
}

// NewRedisSubscriber returns a subscriber on client. controlChannel may be
// empty.
func NewRedisSubscriber(client *redis.Client, dataChannel, controlChannel string, h Handler, log *slog.Logger, obs Observer) *RedisSubscriber {
	channels := []string{dataChannel}
	if controlChannel != "" {
		channels = append(channels, controlChannel)
	}
	return &RedisSubscriber{
		client:   client,
		channels: channels,
		route:    newRouter("redis", dataChannel, controlChannel, h, log, obs),
	}
}

// Run subscribes and delivers messages until ctx is cancelled. It returns
// nil on cancellation and an error if the subscription cannot be set up.
func (s *RedisSubscriber) Run(ctx context.Context) error {
	ps := s.client.Subscribe(ctx, s.channels...)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribing to %v: %w", s.channels, err)
	}
	s.route.log.Info("subscribed", "channels", s.channels)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.route.deliver(msg.Channel, []byte(msg.Payload))
		}
	}
}

// Publish sends payload on channel. It is used by tooling that replays
// recorded plans.
func Publish(ctx context.Context, client *redis.Client, channel string, payload []byte) error {
	if err := client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", channel, err)
	}
	return nil
}
