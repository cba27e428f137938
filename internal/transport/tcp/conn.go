// Package tcp provides a raw TCP client transport carrying length-prefixed
// frames.
package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/omochice/socket-session/internal/transport"
	"github.com/omochice/socket-session/internal/transport/frame"
)

// ErrNotConnected is returned by Send before the dial completes.
var ErrNotConnected = errors.New("tcp: not connected")

// Transport dials a TCP address for every Open.
type Transport struct {
	address     string
	dialTimeout time.Duration
}

// New creates a Transport for address. A zero dialTimeout means no limit.
func New(address string, dialTimeout time.Duration) *Transport {
	return &Transport{address: address, dialTimeout: dialTimeout}
}

// Open implements transport.Transport.
func (t *Transport) Open(h transport.Handler) transport.Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{cancel: cancel}
	go c.run(ctx, t, h)
	return c
}

// Conn is one TCP connection attempt.
type Conn struct {
	mu     sync.Mutex
	conn   net.Conn
	closed bool
	cancel context.CancelFunc

	wmu sync.Mutex
}

func (c *Conn) run(ctx context.Context, t *Transport, h transport.Handler) {
	dialCtx := ctx
	if t.dialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, t.dialTimeout)
		defer cancel()
	}

	var d net.Dialer
	nc, err := d.DialContext(dialCtx, "tcp", t.address)
	if err != nil {
		if !c.isClosed() {
			h.OnFailure(fmt.Errorf("dial %s: %w", t.address, err))
		}
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		nc.Close()
		return
	}
	c.conn = nc
	c.mu.Unlock()

	h.OnOpen()

	br := bufio.NewReader(nc)
	for {
		data, err := frame.ReadFrame(br)
		if c.isClosed() {
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				h.OnClosed(transport.CloseAbnormal, "connection closed by peer")
			} else {
				h.OnFailure(fmt.Errorf("read: %w", err))
			}
			nc.Close()
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

// Send implements transport.Conn.
// The context deadline, if any, bounds the write.
func (c *Conn) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	nc, closed := c.conn, c.closed
	c.mu.Unlock()
	if closed {
		return net.ErrClosed
	}
	if nc == nil {
		return ErrNotConnected
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	deadline, _ := ctx.Deadline()
	if err := nc.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return frame.WriteFrame(nc, data)
}

// Close implements transport.Conn. TCP carries no close code, so code and
// reason are ignored.
func (c *Conn) Close(_ transport.CloseCode, _ string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	nc := c.conn
	c.mu.Unlock()

	c.cancel()
	if nc != nil {
		return nc.Close()
	}
	return nil
}
