// Package chat holds the server side of the demo: peers, the hub that fans
// frames out to them, and the Conn abstraction both wire protocols satisfy.
package chat

import (
	"context"

	"github.com/omochice/socket-session/internal/transport"
)

// Conn is one accepted client connection, framed TCP or WebSocket.
type Conn interface {
	// ReadFrame blocks for the next complete frame.
	// It returns io.EOF after an orderly close by the client.
	ReadFrame(ctx context.Context) ([]byte, error)

	// WriteFrame sends one frame.
	WriteFrame(ctx context.Context, frame []byte) error

	// Close closes the connection. WebSocket conns send code and reason in
	// a close frame first; framed TCP has no close handshake.
	Close(code transport.CloseCode, reason string) error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string

	// Kind is "tcp" or "ws".
	Kind() string
}
