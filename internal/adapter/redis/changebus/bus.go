// Package changebus announces document store changes over Redis pub/sub, so
// several server processes sharing one database refresh each other's live
// queries.
package changebus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/heartmarshall/cypress-connect/internal/domain"
)

// NewClient connects to the Redis server at url and pings it.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w: %w", domain.ErrUnavailable, err)
	}
	return client, nil
}

// Bus publishes and follows collection names on one Redis channel.
type Bus struct {
	client  *redis.Client
	channel string
	log     *slog.Logger
}

// New creates a Bus on channel.
func New(client *redis.Client, channel string, log *slog.Logger) *Bus {
	return &Bus{client: client, channel: channel, log: log.With("component", "redis_bus")}
}

// Publish announces a change to collection.
func (b *Bus) Publish(ctx context.Context, collection string) error {
	if err := b.client.Publish(ctx, b.channel, collection).Err(); err != nil {
		return fmt.Errorf("publish %s: %w: %w", collection, domain.ErrUnavailable, err)
	}
	return nil
}

// Listen returns the names of changed collections until ctx is done or the
// subscription fails; then the channel is closed.
func (b *Bus) Listen(ctx context.Context) (<-chan string, error) {
	ps := b.client.Subscribe(ctx, b.channel)

	// Wait for the subscription confirmation so no publish is missed after
	// Listen returns.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w: %w", b.channel, domain.ErrUnavailable, err)
	}

	msgs := ps.Channel()
	out := make(chan string, 64)
	go func() {
		defer close(out)
		defer ps.Close()

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					if ctx.Err() == nil {
						b.log.Error("subscription closed", slog.String("channel", b.channel))
					}
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	b.log.InfoContext(ctx, "listening", slog.String("channel", b.channel))
	return out, nil
}

// Ping checks the connection.
func (b *Bus) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w: %w", domain.ErrUnavailable, err)
	}
	return nil
}
