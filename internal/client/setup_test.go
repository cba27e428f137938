package client_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/omochice/socket-session/internal/chat"
	"github.com/omochice/socket-session/internal/client"
	"github.com/omochice/socket-session/internal/config"
	"github.com/omochice/socket-session/internal/interceptor"
	"github.com/omochice/socket-session/internal/server"
	"github.com/omochice/socket-session/internal/transport/tcp"
	"github.com/omochice/socket-session/internal/transport/ws"
	"github.com/omochice/socket-session/pkg/protocol"
)

func TestNewTransport(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    any
		wantErr bool
	}{
		{"websocket", "ws://localhost:8080/ws", &ws.Transport{}, false},
		{"secure websocket", "wss://example.com/ws", &ws.Transport{}, false},
		{"framed tcp", "tcp://localhost:9000", &tcp.Transport{}, false},
		{"tcp without host", "tcp:///", nil, true},
		{"unsupported scheme", "http://localhost", nil, true},
		{"malformed", "ws://[::1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.NewTransport(tt.url, time.Second, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestBuild_RequiresUsername(t *testing.T) {
	_, err := client.Build(config.Default(), nil)
	assert.Error(t, err)
}

func TestBuild_UnknownCodec(t *testing.T) {
	cfg := config.Default()
	cfg.Client.Username = "alice"
	cfg.Client.Codec = "xml"
	_, err := client.Build(cfg, nil)
	assert.Error(t, err)
}

func TestBuild_ChatAcrossProtocols(t *testing.T) {
	srv, err := server.New(server.Options{Address: "127.0.0.1:0", Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	require.NoError(t, srv.Listen())
	go srv.Serve()
	t.Cleanup(srv.Stop)

	build := func(name, url string) *client.Client {
		cfg := config.Default()
		cfg.Client.Username = name
		cfg.Client.URL = url
		cfg.Client.Token = "secret"
		c, err := client.Build(cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		t.Cleanup(c.Disconnect)
		require.NoError(t, c.Connect())
		require.Eventually(t, c.IsConnected, 3*time.Second, 10*time.Millisecond)
		return c
	}

	alice := build("alice", "ws://"+srv.Addr()+"/ws")
	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, 3*time.Second, 10*time.Millisecond)
	bob := build("bob", "tcp://"+srv.Addr())
	require.NoError(t, bob.Join())
	require.Eventually(t, func() bool { return srv.ClientCount() == 2 }, 3*time.Second, 10*time.Millisecond)

	// bob's join reaches alice first.
	select {
	case msg := <-alice.Messages():
		assert.Equal(t, chat.TopicJoin, msg.Topic)
		assert.Equal(t, "bob", msg.Header(protocol.HeaderSender))
	case <-time.After(3 * time.Second):
		t.Fatal("join not received")
	}

	require.NoError(t, alice.SendMessage("hello bob"))
	select {
	case msg := <-bob.Messages():
		assert.Equal(t, "hello bob", string(msg.Payload))
		assert.Equal(t, "alice", msg.Header(protocol.HeaderSender))
		assert.Equal(t, "secret", msg.Header(protocol.HeaderToken))
		_, ok := interceptor.SentAt(msg)
		assert.True(t, ok, "timestamp header set on send")
	case <-time.After(3 * time.Second):
		t.Fatal("message not received")
	}
}
