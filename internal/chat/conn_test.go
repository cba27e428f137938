package chat_test

import (
	"context"
	"io"
	"sync"

	"github.com/omochice/socket-session/internal/chat"
	"github.com/omochice/socket-session/internal/transport"
)

// mockConn is a mock implementation of chat.Conn for testing.
type mockConn struct {
	readCh     chan []byte
	writtenMu  sync.Mutex
	written    [][]byte
	closed     bool
	closeCode  transport.CloseCode
	remoteAddr string
}

func newMockConn(addr string) *mockConn {
	return &mockConn{
		readCh:     make(chan []byte, 10),
		remoteAddr: addr,
	}
}

func (m *mockConn) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case data, ok := <-m.readCh:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	}
}

func (m *mockConn) WriteFrame(_ context.Context, data []byte) error {
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	m.written = append(m.written, append([]byte(nil), data...))
	return nil
}

func (m *mockConn) Close(code transport.CloseCode, _ string) error {
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	m.closed = true
	m.closeCode = code
	return nil
}

func (m *mockConn) RemoteAddr() string { return m.remoteAddr }

func (m *mockConn) Kind() string { return "mock" }

func (m *mockConn) isClosed() (bool, transport.CloseCode) {
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	return m.closed, m.closeCode
}

// Compile-time check that mockConn implements chat.Conn
var _ chat.Conn = (*mockConn)(nil)
