package broker

import (
	"context"
	"log/slog"
)

// Tee publishes to a primary broker and copies every payload to mirrors.
// Only the primary's error is returned; mirror failures are logged.
type Tee struct {
	Broker
	mirrors   []Publisher
	onFailure func(topic string)
}

func NewTee(primary Broker, mirrors ...Publisher) *Tee {
	return &Tee{Broker: primary, mirrors: mirrors}
}

// OnFailure registers a callback invoked with the topic whenever the primary
// publish fails. Used to feed failure counters.
func (t *Tee) OnFailure(fn func(topic string)) *Tee {
	t.onFailure = fn
	return t
}

func (t *Tee) Publish(ctx context.Context, topic string, payload []byte) error {
	err := t.Broker.Publish(ctx, topic, payload)
	if err != nil && t.onFailure != nil {
		t.onFailure(topic)
	}
	for _, m := range t.mirrors {
		if mErr := m.Publish(ctx, topic, payload); mErr != nil {
			slog.Warn("broker mirror publish failed", "topic", topic, "err", mErr)
		}
	}
	return err
}
