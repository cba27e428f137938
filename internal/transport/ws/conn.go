// Package ws provides a WebSocket client transport built on nhooyr.io/websocket.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/omochice/socket-session/internal/transport"
)

// ErrNotConnected is returned by Send before the handshake completes.
var ErrNotConnected = errors.New("ws: not connected")

// Options configures a Transport.
type Options struct {
	// Header is sent with every handshake request.
	Header http.Header
	// DialTimeout bounds the handshake. Zero means no limit.
	DialTimeout time.Duration
	// ReadLimit is the largest accepted message in bytes. Zero keeps the
	// library default.
	ReadLimit int64
}

// Transport dials a WebSocket URL for every Open.
type Transport struct {
	url  string
	opts Options
}

// New creates a Transport for url (ws:// or wss://).
func New(url string, opts Options) *Transport {
	return &Transport{url: url, opts: opts}
}

// Open implements transport.Transport.
func (t *Transport) Open(h transport.Handler) transport.Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{cancel: cancel}
	go c.run(ctx, t, h)
	return c
}

// Conn is one WebSocket connection attempt.
type Conn struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	cancel context.CancelFunc
}

func (c *Conn) run(ctx context.Context, t *Transport, h transport.Handler) {
	dialCtx := ctx
	if t.opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, t.opts.DialTimeout)
		defer cancel()
	}

	wc, _, err := websocket.Dial(dialCtx, t.url, &websocket.DialOptions{HTTPHeader: t.opts.Header})
	if err != nil {
		if !c.isClosed() {
			h.OnFailure(fmt.Errorf("dial %s: %w", t.url, err))
		}
		return
	}
	if t.opts.ReadLimit > 0 {
		wc.SetReadLimit(t.opts.ReadLimit)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		wc.CloseNow()
		return
	}
	c.conn = wc
	c.mu.Unlock()

	h.OnOpen()

	for {
		_, data, err := wc.Read(ctx)
		if c.isClosed() {
			return
		}
		if err != nil {
			var ce websocket.CloseError
			if errors.As(err, &ce) {
				h.OnClosed(transport.CloseCode(ce.Code), ce.Reason)
			} else {
				h.OnFailure(fmt.Errorf("read: %w", err))
				wc.CloseNow()
			}
			return
		}
		h.OnMessage(data)
	}
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Send implements transport.Conn by writing one binary message.
func (c *Conn) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	wc, closed := c.conn, c.closed
	c.mu.Unlock()
	if closed {
		return net.ErrClosed
	}
	if wc == nil {
		return ErrNotConnected
	}
	return wc.Write(ctx, websocket.MessageBinary, data)
}

// Close implements transport.Conn. The close handshake runs in the
// background so Close never blocks on an unresponsive peer.
func (c *Conn) Close(code transport.CloseCode, reason string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	wc := c.conn
	c.mu.Unlock()

	if wc == nil {
		c.cancel()
		return nil
	}
	go func() {
		defer c.cancel()
		_ = wc.Close(websocket.StatusCode(code), reason)
	}()
	return nil
}
