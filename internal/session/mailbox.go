package session

import (
	"sync"
	"time"
)

// mailbox is an unbounded queue of work for the session goroutine.
// Posting never blocks.
type mailbox struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

// post queues fn and reports whether the mailbox still accepts work.
func (m *mailbox) post(fn func()) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, fn)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
	return true
}

// take removes and returns all queued work.
func (m *mailbox) take() []func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queue
	m.queue = nil
	return q
}

// close rejects further posts. Work already queued is still taken.
func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// scheduler runs callbacks on the session goroutine after a delay.
type scheduler func(d time.Duration, fn func()) (stop func())

// afterFunc returns a scheduler whose timers post into m. The stop flag is
// read and written only on the session goroutine, so a stopped timer never
// runs fn even if it already fired and its post is queued.
func afterFunc(m *mailbox) scheduler {
	return func(d time.Duration, fn func()) func() {
		stopped := false
		t := time.AfterFunc(d, func() {
			m.post(func() {
				if !stopped {
					fn()
				}
			})
		})
		return func() {
			stopped = true
			t.Stop()
		}
	}
}
