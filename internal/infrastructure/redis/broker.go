package redisinfra

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-api-realtime/internal/infrastructure/broker"
	"github.com/redis/go-redis/v9"
)

// Broker implements broker.Broker over Redis pub/sub channels. Channel names
// are the topic names, optionally prefixed.
type Broker struct {
	client *redis.Client
	prefix string

	mu     sync.Mutex
	subs   []*redis.PubSub
	closed bool
	wg     sync.WaitGroup
}

func NewBroker(client *redis.Client, prefix string) *Broker {
	return &Broker{client: client, prefix: prefix}
}

func (b *Broker) channel(topic string) string { return b.prefix + topic }

func (b *Broker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.client.Publish(ctx, b.channel(topic), payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe blocks until Redis confirms the subscription, then delivers
// payloads to h from a single goroutine in arrival order.
func (b *Broker) Subscribe(ctx context.Context, topic string, h broker.Handler) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return broker.ErrClosed
	}
	b.mu.Unlock()

	ps := b.client.Subscribe(ctx, b.channel(topic))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("redis subscribe %s: %w", topic, err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, ps)
	b.mu.Unlock()

	ch := ps.Channel()
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					slog.Info("redis subscription closed", "topic", topic)
					return
				}
				h(ctx, topic, []byte(msg.Payload))
			}
		}
	}()
	return nil
}

// Close ends every subscription. The underlying client is owned by the caller.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, ps := range subs {
		_ = ps.Close()
	}
	b.wg.Wait()
	return nil
}
