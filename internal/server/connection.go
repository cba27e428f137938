package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/omochice/socket-session/internal/chat"
	"github.com/omochice/socket-session/internal/transport"
	"github.com/omochice/socket-session/internal/transport/frame"
)

// bufferedConn wraps a net.Conn with a bufio.Reader to preserve peeked data
type bufferedConn struct {
	net.Conn
	reader *bufio.Reader
}

func (bc *bufferedConn) Read(p []byte) (int, error) {
	return bc.reader.Read(p)
}

// writeDeadline applies the context deadline, if any, to conn writes.
func writeDeadline(ctx context.Context, conn net.Conn) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	return conn.SetWriteDeadline(deadline)
}

// framedConn is a chat.Conn for raw TCP clients using length-prefixed frames.
type framedConn struct {
	conn   net.Conn
	reader *bufio.Reader
	wmu    sync.Mutex
}

func newFramedConn(conn net.Conn, reader *bufio.Reader) *framedConn {
	return &framedConn{conn: conn, reader: reader}
}

func (c *framedConn) ReadFrame(_ context.Context) ([]byte, error) {
	return frame.ReadFrame(c.reader)
}

func (c *framedConn) WriteFrame(ctx context.Context, data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := writeDeadline(ctx, c.conn); err != nil {
		return err
	}
	return frame.WriteFrame(c.conn, data)
}

// Close drops the connection; framed TCP carries no close code.
func (c *framedConn) Close(_ transport.CloseCode, _ string) error {
	return c.conn.Close()
}

func (c *framedConn) RemoteAddr() string { return c.conn.RemoteAddr().String() }

func (c *framedConn) Kind() string { return "tcp" }

// wsConn is a chat.Conn over a server-side gobwas/ws connection.
type wsConn struct {
	conn   net.Conn
	reader *wsutil.Reader

	// wmu serializes data frames with control replies written by the reader.
	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newWSConn(conn *bufferedConn) *wsConn {
	c := &wsConn{conn: conn}
	c.reader = &wsutil.Reader{
		Source:         conn,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		MaxFrameSize:   frame.MaxSize,
		OnIntermediate: c.handleControl,
	}
	return c
}

// handleControl answers pings and close frames.
func (c *wsConn) handleControl(h ws.Header, r io.Reader) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return wsutil.ControlHandler{
		Src:                 r,
		Dst:                 c.conn,
		State:               ws.StateServerSide,
		DisableSrcCiphering: true,
	}.Handle(h)
}

// ReadFrame returns the next binary or text message. A close frame from the
// client ends the stream with io.EOF.
func (c *wsConn) ReadFrame(_ context.Context) ([]byte, error) {
	for {
		hdr, err := c.reader.NextFrame()
		if err != nil {
			return nil, err
		}
		if hdr.OpCode.IsControl() {
			if err := c.handleControl(hdr, c.reader); err != nil {
				var closed wsutil.ClosedError
				if errors.As(err, &closed) {
					return nil, io.EOF
				}
				return nil, err
			}
			continue
		}
		if hdr.OpCode&(ws.OpBinary|ws.OpText) == 0 {
			if err := c.reader.Discard(); err != nil {
				return nil, err
			}
			continue
		}
		return io.ReadAll(c.reader)
	}
}

func (c *wsConn) WriteFrame(ctx context.Context, data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := writeDeadline(ctx, c.conn); err != nil {
		return err
	}
	return wsutil.WriteServerBinary(c.conn, data)
}

// Close sends a close frame carrying code and reason, then drops the
// connection.
func (c *wsConn) Close(code transport.CloseCode, reason string) error {
	c.closeOnce.Do(func() {
		c.wmu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		body := ws.NewCloseFrameBody(ws.StatusCode(code), reason)
		_ = ws.WriteFrame(c.conn, ws.NewCloseFrame(body))
		c.wmu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *wsConn) RemoteAddr() string { return c.conn.RemoteAddr().String() }

func (c *wsConn) Kind() string { return "ws" }

var (
	_ chat.Conn = (*framedConn)(nil)
	_ chat.Conn = (*wsConn)(nil)
)
