package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Channel is the Postgres notification channel fired by the items table trigger.
const Channel = "items_changed"

// reconnectDelay is the pause between listen attempts after a lost connection.
const reconnectDelay = 2 * time.Second

// refresher is the part of Refresher the Listener needs.
type refresher interface {
	Refresh(ctx context.Context) error
}

// Listener holds a dedicated connection in LISTEN mode and refreshes the feed
// on every notification, so changes written by other processes reach
// subscribers too.
type Listener struct {
	pool    *pgxpool.Pool
	refresh refresher
	log     *slog.Logger
}

// NewListener constructs a Listener. A nil logger selects slog.Default().
func NewListener(pool *pgxpool.Pool, r refresher, log *slog.Logger) *Listener {
	if log == nil {
		log = slog.Default()
	}
	return &Listener{pool: pool, refresh: r, log: log.With("component", "feed")}
}

// Run listens until ctx is cancelled, reconnecting after failures. It
// returns nil once ctx is done.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.log.WarnContext(ctx, "feed listener disconnected", "error", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

// listen runs one connection's lifetime. A refresh is issued right after
// LISTEN succeeds so changes missed while disconnected are picked up.
func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), "UNLISTEN *")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return err
	}
	l.log.InfoContext(ctx, "feed listener started", "channel", Channel)

	if err := l.refresh.Refresh(ctx); err != nil {
		l.log.WarnContext(ctx, "feed refresh failed", "error", err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.log.DebugContext(ctx, "items changed", "payload", n.Payload)
		if err := l.refresh.Refresh(ctx); err != nil {
			l.log.WarnContext(ctx, "feed refresh failed", "error", err)
		}
	}
}
