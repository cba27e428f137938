package server_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/omochice/socket-session/internal/chat"
	"github.com/omochice/socket-session/internal/server"
	"github.com/omochice/socket-session/internal/session"
	"github.com/omochice/socket-session/internal/transport"
	"github.com/omochice/socket-session/internal/transport/tcp"
	"github.com/omochice/socket-session/internal/transport/ws"
	"github.com/omochice/socket-session/pkg/protocol"
	"github.com/omochice/socket-session/pkg/protocol/codec"
)

func sessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.Heartbeat.Enabled = false
	cfg.Reconnect.BaseDelay = 20 * time.Millisecond
	cfg.Reconnect.MaxDelay = 100 * time.Millisecond
	cfg.Reconnect.Jitter = 0
	cfg.Reconnect.MaxAttempts = 0
	cfg.WriteTimeout = time.Second
	return cfg
}

func waitEvent(t *testing.T, events <-chan session.Event, want session.EventType) session.Event {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case ev := <-events:
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
			return session.Event{}
		}
	}
}

// TestSession_ReplaysBufferAfterOutage stops the server under a live
// session, sends while it is down and checks that a restarted server
// receives everything in order.
func TestSession_ReplaysBufferAfterOutage(t *testing.T) {
	tests := []struct {
		name string
		dial func(addr string) transport.Transport
	}{
		{"websocket", func(addr string) transport.Transport {
			return ws.New("ws://"+addr+"/ws", ws.Options{DialTimeout: time.Second})
		}},
		{"tcp", func(addr string) transport.Transport {
			return tcp.New(addr, time.Second)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := server.New(server.Options{Address: "127.0.0.1:0", Logger: zaptest.NewLogger(t)})
			require.NoError(t, err)
			require.NoError(t, first.Listen())
			go first.Serve()
			addr := first.Addr()

			events := make(chan session.Event, 256)
			s, err := session.New(tt.dial(addr), codec.Proto(), sessionConfig(),
				session.WithLogger(zaptest.NewLogger(t)))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			s.AddEventListener(func(ev session.Event) {
				select {
				case events <- ev:
				default:
				}
			})
			require.NoError(t, s.Connect())
			waitEvent(t, events, session.EventConnected)

			first.Stop()
			waitEvent(t, events, session.EventReconnecting)

			for i := range 5 {
				require.NoError(t, s.Send(protocol.NewData(chat.TopicText, fmt.Appendf(nil, "m%d", i))))
			}
			require.Eventually(t, func() bool { return s.PendingCount() == 5 },
				waitFor, 5*time.Millisecond)

			got := make(chan string, 16)
			startServer(t, server.Options{
				Address: addr,
				OnMessage: func(_ *chat.Peer, msg protocol.Message) {
					got <- string(msg.Payload)
				},
			})

			waitEvent(t, events, session.EventConnected)
			for i := range 5 {
				select {
				case payload := <-got:
					assert.Equal(t, fmt.Sprintf("m%d", i), payload)
				case <-time.After(waitFor):
					t.Fatalf("message %d not replayed", i)
				}
			}
			assert.Zero(t, s.PendingCount())

			require.NoError(t, s.Close())
			assert.Equal(t, session.StateClosed, s.State())
		})
	}
}

// TestSession_ServerRestartCode reconnects after the server closes every
// peer with a retryable code.
func TestSession_ServerRestartCode(t *testing.T) {
	srv := startServer(t, server.Options{})

	events := make(chan session.Event, 256)
	s, err := session.New(ws.New("ws://"+srv.Addr()+"/ws", ws.Options{DialTimeout: time.Second}),
		codec.Proto(), sessionConfig(), session.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.AddEventListener(func(ev session.Event) {
		select {
		case events <- ev:
		default:
		}
	})
	require.NoError(t, s.Connect())
	waitEvent(t, events, session.EventConnected)
	waitClients(t, srv, 1)

	srv.DisconnectAll(transport.CloseServiceRestart, "restarting")

	ev := waitEvent(t, events, session.EventReconnecting)
	assert.Equal(t, 0, ev.Attempt)
	waitEvent(t, events, session.EventConnected)
	waitClients(t, srv, 1)
}
