// Package broker defines the publish/subscribe port used for real-time
// fan-out and ships the in-process implementation.
package broker

import (
	"context"
	"errors"
)

// Topic names agreed between producers and the subscriber.
const (
	TopicMessaging     = "messaging"
	TopicNotifications = "notifications"
)

// ErrClosed is returned by operations on a closed broker.
var ErrClosed = errors.New("broker closed")

// Handler processes one payload received on topic. Handlers for a given
// topic are invoked sequentially in publish order.
type Handler func(ctx context.Context, topic string, payload []byte)

// Publisher sends serialized payloads to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Broker is a Publisher that can also register the topic's subscriber.
// Subscribe returns once the subscription is active; delivery runs in the
// background until ctx is cancelled or the broker is closed.
type Broker interface {
	Publisher
	Subscribe(ctx context.Context, topic string, h Handler) error
	Close() error
}
