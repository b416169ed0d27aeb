package broker

import (
	"context"
	"log/slog"
	"sync"
)

const defaultBuffer = 256

// Memory is an in-process Broker. Each subscription owns a buffered channel
// drained by a single goroutine, so per-topic order is preserved.
// Publishing to a topic with no subscriber is a no-op.
type Memory struct {
	mu     sync.RWMutex
	subs   map[string][]*memorySub
	buffer int
	closed bool
	wg     sync.WaitGroup
}

type memorySub struct {
	ch   chan []byte
	done chan struct{}
	once sync.Once
}

func (s *memorySub) stop() { s.once.Do(func() { close(s.done) }) }

// NewMemory creates an in-process broker; buffer <= 0 uses a default size.
func NewMemory(buffer int) *Memory {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Memory{subs: make(map[string][]*memorySub), buffer: buffer}
}

func (b *Memory) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for _, s := range b.subs[topic] {
		select {
		case s.ch <- payload:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *Memory) Subscribe(ctx context.Context, topic string, h Handler) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	s := &memorySub{ch: make(chan []byte, b.buffer), done: make(chan struct{})}
	b.subs[topic] = append(b.subs[topic], s)
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.remove(topic, s)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case payload := <-s.ch:
				h(ctx, topic, payload)
			}
		}
	}()
	return nil
}

func (b *Memory) remove(topic string, target *memorySub) {
	target.stop()
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[topic]
	for i, s := range subs {
		if s == target {
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if pending := len(target.ch); pending > 0 {
		slog.Debug("memory broker dropped pending payloads", "topic", topic, "count", pending)
	}
}

// Close stops every subscription and waits for their goroutines to exit.
func (b *Memory) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, s := range subs {
			s.stop()
		}
	}
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}
