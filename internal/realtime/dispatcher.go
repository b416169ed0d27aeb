package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-api-realtime/internal/infrastructure/broker"
	"github.com/go-api-realtime/internal/infrastructure/metrics"
)

type subscriber interface {
	Subscribe(ctx context.Context, topic string, h broker.Handler) error
}

// routes maps each broker topic to the per-user destination it feeds.
var routes = map[string]string{
	broker.TopicMessaging:     QueueMessages,
	broker.TopicNotifications: QueueNotifications,
}

// Dispatcher is the single subscriber for both topics. It reads the recipient
// from each event and pushes the raw payload to that user's queue.
type Dispatcher struct {
	sub      subscriber
	registry *Registry
	metrics  *metrics.Metrics
}

func NewDispatcher(sub subscriber, registry *Registry, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{sub: sub, registry: registry, metrics: m}
}

// Start subscribes to every routed topic. Subscriptions end with ctx.
func (d *Dispatcher) Start(ctx context.Context) error {
	for _, topic := range []string{broker.TopicMessaging, broker.TopicNotifications} {
		if err := d.sub.Subscribe(ctx, topic, d.handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

type recipientEnvelope struct {
	RecipientID int64 `json:"recipientId"`
}

// handle never lets one bad event stop the subscription.
func (d *Dispatcher) handle(_ context.Context, topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatcher panic", "topic", topic, "panic", r)
			d.metrics.SubscriberError(topic, "panic")
		}
	}()

	queue, ok := routes[topic]
	if !ok {
		slog.Warn("event on unrouted topic", "topic", topic)
		d.metrics.SubscriberError(topic, "routing")
		return
	}
	var env recipientEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		slog.Warn("undecodable event", "topic", topic, "err", err)
		d.metrics.SubscriberError(topic, "decode")
		return
	}
	if env.RecipientID <= 0 {
		slog.Warn("event without recipient", "topic", topic)
		d.metrics.SubscriberError(topic, "routing")
		return
	}
	if n := d.registry.Push(env.RecipientID, queue, payload); n == 0 {
		slog.Debug("no live session for recipient", "topic", topic, "recipient_id", env.RecipientID)
		d.metrics.Dropped(topic)
	}
}
