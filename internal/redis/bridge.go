package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"

	"revivatech-realtime/internal/models"
	"revivatech-realtime/internal/realtime"
)

// Bridge fans locally-originated events out to sibling instances over a
// single pub/sub channel, and re-delivers remote events to local
// connections. Delivery stays fire-and-forget end to end.
type Bridge struct {
	rdb     *redis.Client
	channel string
	origin  string
	logger  *slog.Logger
}

// NewBridge connects to Redis and verifies the connection with a ping.
func NewBridge(redisURL, channel, origin string, logger *slog.Logger) (*Bridge, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	logger = logger.With(slog.String("component", "redis_bridge"))
	logger.Info("connected to redis", slog.String("channel", channel))

	return &Bridge{
		rdb:     rdb,
		channel: channel,
		origin:  origin,
		logger:  logger,
	}, nil
}

func (b *Bridge) Close() error {
	return b.rdb.Close()
}

// Publish implements realtime.Publisher.
func (b *Bridge) Publish(ev models.WireEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis: marshal wire event: %w", err)
	}
	return b.rdb.Publish(context.Background(), b.channel, payload).Err()
}

// Run consumes remote events and hands them to the hub until ctx is
// cancelled. Events published by this instance are dropped here; the hub
// already delivered them locally.
func (b *Bridge) Run(ctx context.Context, hub *realtime.Hub) error {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis: subscribe: %w", err)
	}
	b.logger.Info("subscribed to event channel")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev models.WireEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Error("bad wire event", slog.Any("error", err))
				continue
			}
			if ev.Origin == b.origin {
				continue
			}
			hub.HandleRemote(ev)
		}
	}
}
