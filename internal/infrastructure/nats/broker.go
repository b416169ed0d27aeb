package natsinfra

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-api-realtime/internal/infrastructure/broker"
	natspkg "github.com/nats-io/nats.go"
)

// Broker implements broker.Broker over core NATS subjects. NATS invokes a
// subscription's callback serially, which keeps per-topic order.
type Broker struct {
	nc     *natspkg.Conn
	prefix string

	mu   sync.Mutex
	subs []*natspkg.Subscription
}

// Connect dials url and returns a Broker that owns the connection.
func Connect(url, prefix string) (*Broker, error) {
	nc, err := natspkg.Connect(url,
		natspkg.Name("go-api-realtime"),
		natspkg.MaxReconnects(-1),
		natspkg.DisconnectErrHandler(func(_ *natspkg.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "err", err)
			}
		}),
		natspkg.ReconnectHandler(func(c *natspkg.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return &Broker{nc: nc, prefix: prefix}, nil
}

func (b *Broker) subject(topic string) string { return b.prefix + topic }

func (b *Broker) IsConnected() bool {
	return b.nc != nil && b.nc.Status() == natspkg.CONNECTED
}

func (b *Broker) Publish(_ context.Context, topic string, payload []byte) error {
	if err := b.nc.Publish(b.subject(topic), payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", topic, err)
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, topic string, h broker.Handler) error {
	sub, err := b.nc.Subscribe(b.subject(topic), func(msg *natspkg.Msg) {
		h(ctx, topic, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", topic, err)
	}
	if err := b.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("nats flush %s: %w", topic, err)
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

// Close drains subscriptions and closes the connection.
func (b *Broker) Close() error {
	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
	if b.nc == nil || b.nc.IsClosed() {
		return nil
	}
	return b.nc.Drain()
}
