package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/go-api-realtime/internal/realtime"
	"github.com/gorilla/websocket"
)

// conn adapts a gorilla connection to realtime.Conn. gorilla allows one
// concurrent writer, so every data frame goes through writeMu.
type conn struct {
	id           string
	ws           *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	closeOnce    sync.Once
}

func newConn(id string, ws *websocket.Conn, writeTimeout time.Duration) *conn {
	return &conn{id: id, ws: ws, writeTimeout: writeTimeout}
}

func (c *conn) ID() string { return c.id }

func (c *conn) Send(f realtime.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *conn) ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

// Close sends a close frame once and tears down the socket.
func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.writeTimeout))
		err = c.ws.Close()
	})
	return err
}

func (c *conn) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(c.writeTimeout))
		_ = c.ws.Close()
	})
}
