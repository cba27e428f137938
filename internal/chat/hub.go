package chat

import (
	"sync"

	"go.uber.org/zap"

	"github.com/omochice/socket-session/internal/transport"
)

// Peer is a registered client. Frames queued on Outgoing are written by the
// peer's writer goroutine.
type Peer struct {
	ID       string
	Conn     Conn
	Outgoing chan []byte

	mu       sync.RWMutex
	username string
}

// NewPeer returns a peer with an outgoing queue of size queue.
func NewPeer(id string, conn Conn, queue int) *Peer {
	return &Peer{
		ID:       id,
		Conn:     conn,
		Outgoing: make(chan []byte, queue),
	}
}

// Username returns the name announced by the peer, if any.
func (p *Peer) Username() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.username
}

// SetUsername records the name announced by the peer.
func (p *Peer) SetUsername(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.username = name
}

// Hub tracks connected peers and fans frames out to them.
// TCP and WebSocket peers share a single Hub.
type Hub struct {
	log   *zap.Logger
	mu    sync.RWMutex
	peers map[*Peer]struct{}
}

// NewHub creates an empty Hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:   log,
		peers: make(map[*Peer]struct{}),
	}
}

// Register adds a peer to the hub.
func (h *Hub) Register(p *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p] = struct{}{}
}

// Unregister removes a peer. It reports whether the peer was registered.
func (h *Hub) Unregister(p *Peer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[p]; !ok {
		return false
	}
	delete(h.peers, p)
	return true
}

// ClientCount returns number of connected peers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Peers returns a snapshot of the registered peers.
func (h *Hub) Peers() []*Peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Peer, 0, len(h.peers))
	for p := range h.peers {
		out = append(out, p)
	}
	return out
}

// Broadcast queues frame to every peer, skipping sender unless
// includeSender is set. A peer whose queue is full misses the frame.
// It returns the number of peers the frame was queued for.
func (h *Hub) Broadcast(frame []byte, sender *Peer, includeSender bool) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for p := range h.peers {
		if p == sender && !includeSender {
			continue
		}
		select {
		case p.Outgoing <- frame:
			n++
		default:
			h.log.Warn("peer queue full, dropping frame",
				zap.String("peer", p.ID), zap.Int("bytes", len(frame)))
		}
	}
	return n
}

// CloseAll closes every registered connection with code and reason. Peers
// unregister themselves once their read loops observe the close.
func (h *Hub) CloseAll(code transport.CloseCode, reason string) {
	for _, p := range h.Peers() {
		if err := p.Conn.Close(code, reason); err != nil {
			h.log.Debug("close peer", zap.String("peer", p.ID), zap.Error(err))
		}
	}
}
