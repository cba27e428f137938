package session

import (
	"time"

	"github.com/omochice/socket-session/pkg/protocol"
)

// Envelope is a queued outbound message.
type Envelope struct {
	Message    protocol.Message
	EnqueuedAt time.Time
}

// Buffer is a bounded FIFO of envelopes. It is not safe for concurrent use;
// the Session touches it only from its own goroutine.
type Buffer struct {
	items  []Envelope
	cap    int
	policy OverflowPolicy
}

// NewBuffer creates a buffer holding at most capacity envelopes.
func NewBuffer(capacity int, policy OverflowPolicy) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{items: make([]Envelope, 0, capacity), cap: capacity, policy: policy}
}

// Enqueue appends env. When the buffer is full the overflow policy picks an
// envelope to drop, which is returned with dropped set to true. Under Reject
// the dropped envelope is env itself and ErrBufferOverflow is returned.
func (b *Buffer) Enqueue(env Envelope) (dropped Envelope, ok bool, err error) {
	if len(b.items) < b.cap {
		b.items = append(b.items, env)
		return Envelope{}, false, nil
	}
	switch b.policy {
	case DropNewest:
		dropped = b.items[len(b.items)-1]
		b.items[len(b.items)-1] = env
		return dropped, true, nil
	case Reject:
		return env, true, ErrBufferOverflow
	default:
		dropped = b.items[0]
		copy(b.items, b.items[1:])
		b.items[len(b.items)-1] = env
		return dropped, true, nil
	}
}

// Flush hands every envelope to sink in insertion order. If sink fails, the
// failed envelope and everything after it stay buffered in order and the
// error is returned.
func (b *Buffer) Flush(sink func(Envelope) error) error {
	for len(b.items) > 0 {
		env := b.items[0]
		if err := sink(env); err != nil {
			return err
		}
		b.items[0] = Envelope{}
		b.items = b.items[1:]
	}
	b.items = make([]Envelope, 0, b.cap)
	return nil
}

// Clear discards every envelope.
func (b *Buffer) Clear() {
	clear(b.items)
	b.items = b.items[:0]
}

// Len returns the number of buffered envelopes.
func (b *Buffer) Len() int { return len(b.items) }

// Cap returns the capacity.
func (b *Buffer) Cap() int { return b.cap }

// Snapshot returns a copy of the buffered envelopes, oldest first.
func (b *Buffer) Snapshot() []Envelope {
	return append([]Envelope(nil), b.items...)
}
