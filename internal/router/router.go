// Package router routes inbound session messages to handlers by topic.
package router

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/omochice/socket-session/pkg/protocol"
)

// Handler handles messages of one topic.
type Handler func(msg protocol.Message) error

// Router maps topics to handlers. Its Dispatch method can be registered
// directly as a session message listener.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	fallback Handler
	log      *zap.Logger
}

// New creates an empty Router. A nil logger discards output.
func New(log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{handlers: make(map[string]Handler), log: log}
}

// Handle registers h for topic, replacing any previous handler.
func (r *Router) Handle(topic string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[topic] = h
	r.log.Debug("registered handler", zap.String("topic", topic))
}

// Remove unregisters the handler for topic.
func (r *Router) Remove(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, topic)
}

// Topics returns the registered topics in sorted order.
func (r *Router) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	topics := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		topics = append(topics, t)
	}
	slices.Sort(topics)
	return topics
}

// SetFallback sets the handler for messages whose topic has no handler.
func (r *Router) SetFallback(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = h
}

// Dispatch calls the handler for msg.Topic, or the fallback. Messages with
// no matching handler and no fallback are dropped.
func (r *Router) Dispatch(msg protocol.Message) error {
	r.mu.RLock()
	h, ok := r.handlers[msg.Topic]
	fallback := r.fallback
	r.mu.RUnlock()

	if !ok {
		if fallback == nil {
			r.log.Debug("no handler for topic", zap.String("topic", msg.Topic))
			return nil
		}
		h = fallback
	}
	if err := h(msg); err != nil {
		return fmt.Errorf("topic %q: %w", msg.Topic, err)
	}
	return nil
}
