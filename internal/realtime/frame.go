// Package realtime binds authenticated identities to live connections and
// fans broker events out to each recipient's private queues.
package realtime

import "encoding/json"

// Frame commands. Clients send CONNECT and DISCONNECT; the server sends the rest.
const (
	CommandConnect    = "CONNECT"
	CommandConnected  = "CONNECTED"
	CommandMessage    = "MESSAGE"
	CommandError      = "ERROR"
	CommandDisconnect = "DISCONNECT"
)

// Per-user destinations, one per entity kind.
const (
	QueueMessages      = "/user/queue/messages"
	QueueNotifications = "/user/queue/notifications"
)

// Frame is the JSON envelope exchanged over a persistent connection.
type Frame struct {
	Command     string            `json:"command"`
	Destination string            `json:"destination,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        json.RawMessage   `json:"body,omitempty"`
}

// Conn is a live client connection. Send must be safe for concurrent use.
type Conn interface {
	ID() string
	Send(f Frame) error
	Close() error
}
