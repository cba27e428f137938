package session

import (
	"fmt"
	"time"

	"github.com/omochice/socket-session/pkg/protocol"
)

// EventType identifies a lifecycle notification.
type EventType int

const (
	// EventConnected is emitted when a connection opens.
	EventConnected EventType = iota
	// EventDisconnected is emitted when a live connection is lost or the
	// server closes it without a retryable code. Err holds the cause.
	EventDisconnected
	// EventReconnecting is emitted when a retry is scheduled.
	// Attempt counts from 0 and Delay is the wait before the retry.
	EventReconnecting
	// EventReconnectFailed is emitted once when the retry budget is spent.
	EventReconnectFailed
	// EventMessageReceived carries each decoded data message.
	EventMessageReceived
	// EventBufferOverflow carries the message dropped by the overflow policy.
	EventBufferOverflow
	// EventDecodeError carries an inbound frame that could not be decoded.
	EventDecodeError
	// EventStateChanged reports every transition in Prev and State.
	EventStateChanged
	// EventSendFailed carries a message that was dropped without being
	// written, for example because encoding failed.
	EventSendFailed
	// EventListenerError reports a message listener that returned an error
	// or panicked.
	EventListenerError
	// EventClosed is emitted once when the session is closed.
	EventClosed
)

func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventReconnecting:
		return "reconnecting"
	case EventReconnectFailed:
		return "reconnect_failed"
	case EventMessageReceived:
		return "message_received"
	case EventBufferOverflow:
		return "buffer_overflow"
	case EventDecodeError:
		return "decode_error"
	case EventStateChanged:
		return "state_changed"
	case EventSendFailed:
		return "send_failed"
	case EventListenerError:
		return "listener_error"
	case EventClosed:
		return "closed"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event is a lifecycle notification. Only the fields relevant to Type are set.
// For EventBufferOverflow, Delay is how long the dropped message was buffered.
type Event struct {
	Type     EventType
	State    State
	Prev     State
	Attempt  int
	Delay    time.Duration
	Message  protocol.Message
	Frame    []byte
	Listener ListenerID
	Err      error
}

// EventListener observes session events. It runs on the session goroutine
// and must not block.
type EventListener func(Event)
