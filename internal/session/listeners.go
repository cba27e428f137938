package session

import (
	"slices"
	"sync"

	"github.com/omochice/socket-session/pkg/protocol"
)

// ListenerID identifies a registered listener.
type ListenerID uint64

// MessageListener receives decoded data messages. A returned error is
// reported as an EventListenerError and does not stop delivery to later
// listeners.
type MessageListener func(msg protocol.Message) error

type listenerEntry[F any] struct {
	id ListenerID
	fn F
}

// listenerSet is a copy-on-write list so dispatch can iterate a snapshot
// while listeners are added or removed.
type listenerSet[F any] struct {
	mu      sync.Mutex
	next    ListenerID
	entries []listenerEntry[F]
}

func (l *listenerSet[F]) add(fn F) ListenerID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	entries := make([]listenerEntry[F], len(l.entries), len(l.entries)+1)
	copy(entries, l.entries)
	l.entries = append(entries, listenerEntry[F]{id: l.next, fn: fn})
	return l.next
}

func (l *listenerSet[F]) remove(id ListenerID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := slices.IndexFunc(l.entries, func(e listenerEntry[F]) bool { return e.id == id })
	if i < 0 {
		return false
	}
	l.entries = slices.Delete(slices.Clone(l.entries), i, i+1)
	return true
}

func (l *listenerSet[F]) snapshot() []listenerEntry[F] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries
}

func (l *listenerSet[F]) contains(id ListenerID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.ContainsFunc(l.entries, func(e listenerEntry[F]) bool { return e.id == id })
}
