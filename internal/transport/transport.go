// Package transport defines the connection collaborator a session drives.
//
// A Transport opens connections asynchronously and reports their lifecycle
// through a Handler. Implementations live in the tcp and ws subpackages.
package transport

import (
	"context"
	"fmt"
)

// Handler receives connection lifecycle callbacks.
//
// Callbacks for one Conn are never invoked concurrently with each other.
// After OnFailure or OnClosed no further callbacks are made for that Conn.
type Handler interface {
	// OnOpen is called once the connection is ready for Send.
	OnOpen()
	// OnMessage is called with each inbound frame.
	OnMessage(frame []byte)
	// OnFailure is called when dialing fails or the connection breaks
	// without a close handshake.
	OnFailure(err error)
	// OnClosed is called when the peer closes the connection with a code.
	OnClosed(code CloseCode, reason string)
}

// Conn is one physical connection attempt.
type Conn interface {
	// Send writes a single frame.
	Send(ctx context.Context, frame []byte) error
	// Close closes the connection. Callbacks already running may still
	// complete, but no new callback starts once Close returns.
	Close(code CloseCode, reason string) error
}

// Transport opens connections.
type Transport interface {
	// Open starts connecting and returns immediately.
	// The outcome is reported to h.
	Open(h Handler) Conn
}

// CloseCode is a RFC 6455 close status code.
type CloseCode int

// Close codes used by the session layer.
const (
	CloseNormal          CloseCode = 1000
	CloseGoingAway       CloseCode = 1001
	CloseProtocolError   CloseCode = 1002
	CloseUnsupportedData CloseCode = 1003
	CloseNoStatus        CloseCode = 1005
	CloseAbnormal        CloseCode = 1006
	CloseInvalidPayload  CloseCode = 1007
	ClosePolicyViolation CloseCode = 1008
	CloseMessageTooBig   CloseCode = 1009
	CloseInternalError   CloseCode = 1011
	CloseServiceRestart  CloseCode = 1012
	CloseTryAgainLater   CloseCode = 1013
)

// IsNormal reports whether the code marks an intentional shutdown.
func (c CloseCode) IsNormal() bool {
	return c == CloseNormal || c == CloseGoingAway
}

// IsRetryable reports whether reconnecting after this code may succeed.
func (c CloseCode) IsRetryable() bool {
	switch c {
	case CloseAbnormal, CloseInternalError, CloseServiceRestart, CloseTryAgainLater:
		return true
	default:
		return false
	}
}

func (c CloseCode) String() string {
	switch c {
	case CloseNormal:
		return "normal closure"
	case CloseGoingAway:
		return "going away"
	case CloseProtocolError:
		return "protocol error"
	case CloseUnsupportedData:
		return "unsupported data"
	case CloseNoStatus:
		return "no status"
	case CloseAbnormal:
		return "abnormal closure"
	case CloseInvalidPayload:
		return "invalid payload"
	case ClosePolicyViolation:
		return "policy violation"
	case CloseMessageTooBig:
		return "message too big"
	case CloseInternalError:
		return "internal error"
	case CloseServiceRestart:
		return "service restart"
	case CloseTryAgainLater:
		return "try again later"
	default:
		return fmt.Sprintf("close code %d", int(c))
	}
}
