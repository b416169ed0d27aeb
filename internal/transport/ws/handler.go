// Package ws serves the persistent-connection endpoint: upgrade, CONNECT
// handshake through the gate, then keepalive until the client leaves.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-api-realtime/internal/application/credential"
	"github.com/go-api-realtime/internal/pkg/id"
	"github.com/go-api-realtime/internal/realtime"
	"github.com/gorilla/websocket"
)

const (
	maxFrameBytes      = 16 << 10
	msgHandshakeFailed = "handshake failed"
)

var errExpectedConnect = errors.New("expected CONNECT frame")

type gate interface {
	Handshake(ctx context.Context, headers map[string]string, c realtime.Conn) (*realtime.Session, error)
	Release(s *realtime.Session)
}

type Config struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	AllowedOrigins   []string
}

type Handler struct {
	gate     gate
	upgrader websocket.Upgrader
	cfg      Config
}

func NewHandler(g gate, cfg Config) *Handler {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &Handler{
		gate: g,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		slog.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	wsConn.SetReadLimit(maxFrameBytes)
	c := newConn(id.New(), wsConn, h.cfg.WriteTimeout)

	session, err := h.handshake(r, c)
	if err != nil {
		msg := rejectMessage(err)
		if msg == msgHandshakeFailed {
			slog.Warn("websocket handshake failed", "conn_id", c.ID(), "remote", r.RemoteAddr, "err", err)
		}
		_ = c.Send(realtime.Frame{Command: realtime.CommandError, Headers: map[string]string{"message": msg}})
		c.closeWith(websocket.ClosePolicyViolation, "handshake rejected")
		return
	}
	defer c.Close()
	defer h.gate.Release(session)

	connected := map[string]string{"conn-id": c.ID()}
	if !session.Anonymous() {
		connected["session-id"] = session.Identity.SessionID
	}
	if err := c.Send(realtime.Frame{Command: realtime.CommandConnected, Headers: connected}); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	go h.keepalive(c, done)

	h.readLoop(c)
}

// handshake waits for the client's CONNECT frame. An Authorization header on
// the upgrade request counts as a connect header unless the frame sets one.
func (h *Handler) handshake(r *http.Request, c *conn) (*realtime.Session, error) {
	_ = c.ws.SetReadDeadline(time.Now().Add(h.cfg.HandshakeTimeout))
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	var f realtime.Frame
	if err := json.Unmarshal(data, &f); err != nil || f.Command != realtime.CommandConnect {
		return nil, errExpectedConnect
	}
	headers := make(map[string]string, len(f.Headers)+1)
	if v := r.Header.Get(realtime.HeaderAuthorization); v != "" {
		headers[realtime.HeaderAuthorization] = v
	}
	for k, v := range f.Headers {
		headers[k] = v
	}
	return h.gate.Handshake(r.Context(), headers, c)
}

// rejectMessage is the client-facing text for a failed handshake. Anything
// that is not a credential or protocol problem stays in the server log.
func rejectMessage(err error) string {
	switch {
	case errors.Is(err, errExpectedConnect):
		return errExpectedConnect.Error()
	case errors.Is(err, realtime.ErrCredentialRequired):
		return "credential required"
	}
	if reason := credential.Reason(err); reason != "error" {
		return reason + " credential"
	}
	return msgHandshakeFailed
}

func (h *Handler) readLoop(c *conn) {
	idle := 2 * h.cfg.PingInterval
	_ = c.ws.SetReadDeadline(time.Now().Add(idle))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(idle))
	})
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket closed", "conn_id", c.ID(), "err", err)
			}
			return
		}
		var f realtime.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		if f.Command == realtime.CommandDisconnect {
			return
		}
	}
}

func (h *Handler) keepalive(c *conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
