package session_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/omochice/socket-session/internal/session"
	"github.com/omochice/socket-session/internal/transport/transporttest"
	"github.com/omochice/socket-session/pkg/protocol"
	"github.com/omochice/socket-session/pkg/protocol/codec"
)

type (
	fakeTransport = transporttest.Transport
	fakeConn      = transporttest.Conn
)

type recordedEvent struct {
	session.Event
	At time.Time
}

// eventLog collects events from the session goroutine.
type eventLog struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (l *eventLog) record(ev session.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, recordedEvent{Event: ev, At: time.Now()})
}

func (l *eventLog) ofType(t session.EventType) []recordedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []recordedEvent
	for _, ev := range l.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (l *eventLog) states() []session.State {
	var out []session.State
	for _, ev := range l.ofType(session.EventStateChanged) {
		out = append(out, ev.State)
	}
	return out
}

type harness struct {
	t      *testing.T
	tr     *transporttest.Transport
	s      *session.Session
	events *eventLog
}

// quietConfig disables the heartbeat and jitter so timings are exact.
func quietConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.Heartbeat.Enabled = false
	cfg.Reconnect.Jitter = 0
	return cfg
}

func newHarness(t *testing.T, cfg session.Config, opts ...session.Option) *harness {
	t.Helper()
	tr := &fakeTransport{}
	s, err := session.New(tr, codec.Proto(), cfg, opts...)
	require.NoError(t, err)
	h := &harness{t: t, tr: tr, s: s, events: &eventLog{}}
	s.AddEventListener(h.events.record)
	t.Cleanup(func() { s.Close() })
	return h
}

// openFirst makes only the first Open succeed; later ones stay pending.
func openFirst(c *fakeConn) {
	if c.Index == 0 {
		c.Open()
	}
}

// openAll makes every Open succeed.
func openAll(c *fakeConn) { c.Open() }

func encode(t *testing.T, msg protocol.Message) []byte {
	t.Helper()
	data, err := codec.Proto().Encode(msg)
	require.NoError(t, err)
	return data
}

func decodeSent(t *testing.T, sent []transporttest.Sent) []protocol.Message {
	t.Helper()
	out := make([]protocol.Message, 0, len(sent))
	for _, s := range sent {
		msg, err := codec.Proto().Decode(s.Frame)
		require.NoError(t, err)
		out = append(out, msg)
	}
	return out
}

func topics(msgs []protocol.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Topic)
	}
	return out
}

func dataOnly(msgs []protocol.Message) []protocol.Message {
	var out []protocol.Message
	for _, m := range msgs {
		if m.Type == protocol.MessageTypeData {
			out = append(out, m)
		}
	}
	return out
}
