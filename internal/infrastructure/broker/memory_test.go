package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu  sync.Mutex
	got []string
}

func (c *collector) handle(_ context.Context, _ string, payload []byte) {
	c.mu.Lock()
	c.got = append(c.got, string(payload))
	c.mu.Unlock()
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.got...)
}

func TestMemory_PreservesPublishOrder(t *testing.T) {
	b := NewMemory(4)
	defer b.Close()
	c := &collector{}
	require.NoError(t, b.Subscribe(context.Background(), TopicMessaging, c.handle))

	var want []string
	for i := 0; i < 50; i++ {
		p := fmt.Sprintf("p%d", i)
		want = append(want, p)
		require.NoError(t, b.Publish(context.Background(), TopicMessaging, []byte(p)))
	}

	require.Eventually(t, func() bool { return len(c.snapshot()) == len(want) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, c.snapshot())
}

func TestMemory_TopicsAreIsolated(t *testing.T) {
	b := NewMemory(0)
	defer b.Close()
	msgs, notifs := &collector{}, &collector{}
	require.NoError(t, b.Subscribe(context.Background(), TopicMessaging, msgs.handle))
	require.NoError(t, b.Subscribe(context.Background(), TopicNotifications, notifs.handle))

	require.NoError(t, b.Publish(context.Background(), TopicNotifications, []byte("n1")))

	require.Eventually(t, func() bool { return len(notifs.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, msgs.snapshot())
}

func TestMemory_PublishWithoutSubscriberIsNoop(t *testing.T) {
	b := NewMemory(0)
	defer b.Close()
	assert.NoError(t, b.Publish(context.Background(), TopicMessaging, []byte("dropped")))
}

func TestMemory_SubscriptionEndsWithContext(t *testing.T) {
	b := NewMemory(1)
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	c := &collector{}
	require.NoError(t, b.Subscribe(ctx, TopicMessaging, c.handle))
	cancel()

	require.Eventually(t, func() bool {
		b.mu.RLock()
		defer b.mu.RUnlock()
		return len(b.subs[TopicMessaging]) == 0
	}, time.Second, 5*time.Millisecond)
	assert.NoError(t, b.Publish(context.Background(), TopicMessaging, []byte("late")))
}

func TestMemory_Closed(t *testing.T) {
	b := NewMemory(0)
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Publish(context.Background(), TopicMessaging, nil), ErrClosed)
	assert.ErrorIs(t, b.Subscribe(context.Background(), TopicMessaging, func(context.Context, string, []byte) {}), ErrClosed)
	assert.NoError(t, b.Close())
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, string, []byte) error {
	f.calls++
	return errors.New("mirror down")
}

func TestTee_MirrorFailureDoesNotFailPublish(t *testing.T) {
	primary := NewMemory(0)
	defer primary.Close()
	c := &collector{}
	require.NoError(t, primary.Subscribe(context.Background(), TopicMessaging, c.handle))
	mirror := &failingPublisher{}

	tee := NewTee(primary, mirror)
	require.NoError(t, tee.Publish(context.Background(), TopicMessaging, []byte("x")))

	assert.Equal(t, 1, mirror.calls)
	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestTee_ReportsPrimaryFailure(t *testing.T) {
	primary := NewMemory(0)
	require.NoError(t, primary.Close())

	var failed []string
	tee := NewTee(primary).OnFailure(func(topic string) { failed = append(failed, topic) })

	err := tee.Publish(context.Background(), TopicNotifications, []byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, []string{TopicNotifications}, failed)
}
