package realtime

import (
	"errors"
	"sync"
)

type fakeConn struct {
	id string

	mu      sync.Mutex
	frames  []Frame
	failErr error
	panics  bool
	closed  bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.panics {
		panic("socket exploded")
	}
	if c.closed {
		return errors.New("send on closed connection")
	}
	if c.failErr != nil {
		return c.failErr
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) sent() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Frame(nil), c.frames...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
