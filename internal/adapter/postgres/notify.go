package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotifyBus announces document changes with NOTIFY and follows them with
// LISTEN on a dedicated pooled connection.
type NotifyBus struct {
	pool    *pgxpool.Pool
	channel string
	log     *slog.Logger
}

// NewNotifyBus creates a change bus on channel.
func NewNotifyBus(pool *pgxpool.Pool, channel string, log *slog.Logger) *NotifyBus {
	return &NotifyBus{pool: pool, channel: channel, log: log.With("component", "notify_bus")}
}

// Publish announces a change to collection.
func (b *NotifyBus) Publish(ctx context.Context, collection string) error {
	if _, err := b.pool.Exec(ctx, "SELECT pg_notify($1, $2)", b.channel, collection); err != nil {
		return MapError(err, "notify", collection)
	}
	return nil
}

// Listen returns the names of changed collections until ctx is done or the
// connection fails; then the channel is closed.
func (b *NotifyBus) Listen(ctx context.Context) (<-chan string, error) {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return nil, MapError(err, "listen", b.channel)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{b.channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, MapError(err, "listen", b.channel)
	}

	out := make(chan string, 64)
	go func() {
		defer close(out)
		defer func() {
			// The connection goes back to the pool; it must not keep listening.
			_, _ = conn.Exec(context.WithoutCancel(ctx), "UNLISTEN *")
			conn.Release()
		}()

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					b.log.Error("listen failed", slog.String("error", err.Error()))
				}
				return
			}
			select {
			case out <- n.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	b.log.InfoContext(ctx, "listening", slog.String("channel", b.channel))
	return out, nil
}
