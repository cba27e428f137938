package interceptor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/omochice/socket-session/internal/interceptor"
	"github.com/omochice/socket-session/internal/session"
	"github.com/omochice/socket-session/pkg/protocol"
)

// interceptors must satisfy the session contract
var (
	_ session.Interceptor = (*interceptor.Timestamp)(nil)
	_ session.Interceptor = (*interceptor.AuthToken)(nil)
	_ session.Interceptor = (*interceptor.Logging)(nil)
)

func TestTimestamp(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	ts := interceptor.NewTimestampWithClock(func() time.Time { return at })

	out := ts.InterceptOutbound(protocol.NewData("chat", nil))
	assert.Equal(t, "1700000000123", out.Header(protocol.HeaderTimestamp))
	got, ok := interceptor.SentAt(out)
	require.True(t, ok)
	assert.True(t, got.Equal(at))

	ping := ts.InterceptOutbound(protocol.NewPing())
	assert.Empty(t, ping.Header(protocol.HeaderTimestamp), "control frames are not stamped")

	in := protocol.NewData("chat", nil)
	assert.Equal(t, in, ts.InterceptInbound(in))

	_, ok = interceptor.SentAt(protocol.Message{Headers: map[string]string{protocol.HeaderTimestamp: "soon"}})
	assert.False(t, ok)
}

func TestAuthToken(t *testing.T) {
	tests := []struct {
		name     string
		provider interceptor.TokenProvider
		msg      protocol.Message
		want     string
	}{
		{"injects token", interceptor.StaticToken("secret"), protocol.NewData("x", nil), "secret"},
		{"no token passes through", interceptor.StaticToken(""), protocol.NewData("x", nil), ""},
		{"func provider", interceptor.TokenFunc(func() (string, bool) { return "t2", true }), protocol.NewData("x", nil), "t2"},
		{"ping untouched", interceptor.StaticToken("secret"), protocol.NewPing(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := interceptor.NewAuthToken(tt.provider, nil)
			out := a.InterceptOutbound(tt.msg)
			assert.Equal(t, tt.want, out.Header(protocol.HeaderToken))
			assert.Empty(t, tt.msg.Header(protocol.HeaderToken), "input must not be mutated")
		})
	}
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name        string
		debug       bool
		wantPayload bool
	}{
		{"metadata only", false, false},
		{"debug includes payload", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			l := interceptor.NewLogging(zap.New(core), tt.debug)

			msg := protocol.NewData("chat", []byte("hello"))
			assert.Equal(t, msg, l.InterceptOutbound(msg))
			assert.Equal(t, msg, l.InterceptInbound(msg))

			entries := logs.All()
			require.Len(t, entries, 2)
			assert.Equal(t, ">>> send", entries[0].Message)
			assert.Equal(t, "<<< recv", entries[1].Message)
			fields := entries[0].ContextMap()
			assert.Equal(t, int64(5), fields["bytes"])
			_, hasPayload := fields["payload"]
			assert.Equal(t, tt.wantPayload, hasPayload)
		})
	}
}

func TestLogging_SkipsAboveDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := interceptor.NewLogging(zap.New(core), true)
	l.InterceptOutbound(protocol.NewData("chat", nil))
	assert.Zero(t, logs.Len())
}
