package transporttest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/omochice/socket-session/internal/transport"
)

// ErrFakeSend is the default error returned by a Conn whose sends fail.
var ErrFakeSend = errors.New("transporttest: send failed")

// Transport is an in-memory transport.Transport. Every Open creates a Conn
// that the test drives by hand.
type Transport struct {
	// Dial, if set, is called synchronously from Open with the new Conn,
	// for example to open or fail it at once.
	Dial func(c *Conn)

	mu    sync.Mutex
	conns []*Conn
}

// Open implements transport.Transport.
func (t *Transport) Open(h transport.Handler) transport.Conn {
	c := &Conn{h: h, failAfter: -1}
	t.mu.Lock()
	c.Index = len(t.conns)
	t.conns = append(t.conns, c)
	dial := t.Dial
	t.mu.Unlock()
	if dial != nil {
		dial(c)
	}
	return c
}

// Opens returns how many times Open was called.
func (t *Transport) Opens() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// Conn returns the i-th opened connection.
func (t *Transport) Conn(i int) *Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[i]
}

// Last returns the most recently opened connection, or nil.
func (t *Transport) Last() *Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.conns) == 0 {
		return nil
	}
	return t.conns[len(t.conns)-1]
}

// Sent is one frame written through a Conn.
type Sent struct {
	Frame []byte
	At    time.Time
}

// Conn is a fake connection. Its methods that raise events call the
// handler synchronously.
type Conn struct {
	// Index is the position of this Conn among all opens.
	Index int

	h transport.Handler

	mu          sync.Mutex
	sent        []Sent
	closed      bool
	closeCode   transport.CloseCode
	closeReason string
	failAfter   int
	sendErr     error
}

// Open reports a successful open.
func (c *Conn) Open() { c.h.OnOpen() }

// Deliver reports an inbound frame.
func (c *Conn) Deliver(frame []byte) { c.h.OnMessage(frame) }

// Fail reports a transport failure.
func (c *Conn) Fail(err error) { c.h.OnFailure(err) }

// PeerClose reports a close initiated by the peer.
func (c *Conn) PeerClose(code transport.CloseCode, reason string) { c.h.OnClosed(code, reason) }

// FailSends makes every send after the next n fail with err
// (ErrFakeSend when nil).
func (c *Conn) FailSends(n int, err error) {
	if err == nil {
		err = ErrFakeSend
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failAfter = n
	c.sendErr = err
}

// Send implements transport.Conn.
func (c *Conn) Send(_ context.Context, frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("transporttest: send on closed conn")
	}
	if c.failAfter == 0 {
		return c.sendErr
	}
	if c.failAfter > 0 {
		c.failAfter--
	}
	c.sent = append(c.sent, Sent{Frame: append([]byte(nil), frame...), At: time.Now()})
	return nil
}

// Close implements transport.Conn.
func (c *Conn) Close(code transport.CloseCode, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.closeCode = code
		c.closeReason = reason
	}
	return nil
}

// Sent returns every frame written so far.
func (c *Conn) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// Closed reports whether Close was called and with which code.
func (c *Conn) Closed() (bool, transport.CloseCode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.closeCode
}
