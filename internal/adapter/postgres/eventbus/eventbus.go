package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyang/prompt-workshop/internal/domain/event"
	porteventbus "github.com/alanyang/prompt-workshop/internal/port/eventbus"
)

const (
	channelPrefix = "prompt_workshop_"

	minBackoff = 250 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// EventBus implements port/eventbus.EventBus over Postgres LISTEN/NOTIFY, so
// every server instance sharing the database sees library changes. Events it
// publishes carry its Origin, letting a subscriber tell its own writes apart
// from a peer's.
type EventBus struct {
	pool   *pgxpool.Pool
	origin string
}

func New(pool *pgxpool.Pool) *EventBus {
	return &EventBus{pool: pool, origin: uuid.NewString()}
}

// Origin identifies this instance on the shared channels.
func (eb *EventBus) Origin() string { return eb.origin }

// Publish sends e via NOTIFY on the channel for its type, stamped with Origin
// unless the caller set one.
func (eb *EventBus) Publish(ctx context.Context, e event.Event) error {
	if e.Origin == "" {
		e.Origin = eb.origin
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	channel := channelName(event.ChannelFor(e.Type))
	if _, err := eb.pool.Exec(ctx, "SELECT pg_notify($1, $2)", channel, string(payload)); err != nil {
		return fmt.Errorf("publishing event on channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe LISTENs on ch over a dedicated pooled connection. The first LISTEN
// happens before Subscribe returns; afterwards a dropped connection is
// re-acquired with backoff until the subscription ends. Notifications sent
// while reconnecting are lost.
func (eb *EventBus) Subscribe(ctx context.Context, ch event.Channel, handler porteventbus.Handler) (porteventbus.Subscription, error) {
	channel := channelName(ch)
	conn, err := eb.listen(ctx, channel)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		backoff := minBackoff
		for {
			err := eb.drain(subCtx, conn, channel, handler)
			conn.Exec(context.Background(), "UNLISTEN "+channel) //nolint:errcheck
			conn.Release()
			if subCtx.Err() != nil {
				return
			}
			slog.Warn("listen connection lost, reconnecting", "channel", channel, "error", err, "backoff", backoff)

			for {
				select {
				case <-subCtx.Done():
					return
				case <-time.After(backoff):
				}
				conn, err = eb.listen(subCtx, channel)
				if err == nil {
					backoff = minBackoff
					break
				}
				backoff = min(backoff*2, maxBackoff)
			}
		}
	}()

	return sub, nil
}

func (eb *EventBus) listen(ctx context.Context, channel string) (*pgxpool.Conn, error) {
	conn, err := eb.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for LISTEN: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("executing LISTEN on channel %s: %w", channel, err)
	}
	return conn, nil
}

// drain delivers notifications until ctx ends or the connection fails.
func (eb *EventBus) drain(ctx context.Context, conn *pgxpool.Conn, channel string, handler porteventbus.Handler) error {
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		e, err := decode(n.Payload)
		if err != nil {
			slog.Warn("dropping malformed notification", "channel", channel, "error", err)
			continue
		}
		handler(ctx, e)
	}
}

func decode(payload string) (event.Event, error) {
	var e event.Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return event.Event{}, fmt.Errorf("decoding notification: %w", err)
	}
	if e.Type == "" {
		return event.Event{}, fmt.Errorf("decoding notification: missing type")
	}
	return e, nil
}

// channelName converts a domain Channel to a safe Postgres channel identifier.
func channelName(ch event.Channel) string {
	return channelPrefix + string(ch)
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *subscription) Unsubscribe() {
	s.cancel()
	<-s.done
}
