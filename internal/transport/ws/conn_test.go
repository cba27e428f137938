package ws_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/omochice/socket-session/internal/transport"
	"github.com/omochice/socket-session/internal/transport/transporttest"
	"github.com/omochice/socket-session/internal/transport/ws"
)

const waitFor = 2 * time.Second

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func awaitOpen(t *testing.T, rec *transporttest.Recorder) {
	t.Helper()
	select {
	case <-rec.Opened:
	case err := <-rec.Failures:
		t.Fatalf("unexpected failure: %v", err)
	case <-time.After(waitFor):
		t.Fatal("timeout waiting for open")
	}
}

func TestTransport_EchoAndServerClose(t *testing.T) {
	gotHeader := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader <- r.Header.Get("X-Token")
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()

		typ, data, err := c.Read(r.Context())
		if err != nil {
			return
		}
		_ = c.Write(r.Context(), typ, data)
		_ = c.Close(websocket.StatusServiceRestart, "restarting")
	}))
	defer server.Close()

	rec := transporttest.NewRecorder(4)
	tr := ws.New(wsURL(server), ws.Options{
		Header:      http.Header{"X-Token": []string{"secret"}},
		DialTimeout: time.Second,
	})
	conn := tr.Open(rec)
	defer conn.Close(transport.CloseNormal, "")

	awaitOpen(t, rec)
	assert.Equal(t, "secret", <-gotHeader)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Send(ctx, []byte("hello")))

	select {
	case data := <-rec.Messages:
		assert.Equal(t, "hello", string(data))
	case <-time.After(waitFor):
		t.Fatal("timeout waiting for echo")
	}

	select {
	case c := <-rec.Closes:
		assert.Equal(t, transport.CloseServiceRestart, c.Code)
		assert.Equal(t, "restarting", c.Reason)
		assert.True(t, c.Code.IsRetryable())
	case err := <-rec.Failures:
		t.Fatalf("expected close, got failure %v", err)
	case <-time.After(waitFor):
		t.Fatal("timeout waiting for close")
	}
}

func TestTransport_DialFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	rec := transporttest.NewRecorder(1)
	conn := ws.New(wsURL(server), ws.Options{}).Open(rec)
	defer conn.Close(transport.CloseNormal, "")

	select {
	case err := <-rec.Failures:
		assert.Error(t, err)
	case <-rec.Opened:
		t.Fatal("unexpected open")
	case <-time.After(waitFor):
		t.Fatal("timeout waiting for failure")
	}
}

func TestConn_ClientCloseSendsCode(t *testing.T) {
	status := make(chan websocket.StatusCode, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		_, _, err = c.Read(r.Context())
		status <- websocket.CloseStatus(err)
	}))
	defer server.Close()

	rec := transporttest.NewRecorder(4)
	conn := ws.New(wsURL(server), ws.Options{}).Open(rec)
	awaitOpen(t, rec)

	require.NoError(t, conn.Close(transport.CloseNormal, "bye"))

	select {
	case code := <-status:
		assert.Equal(t, websocket.StatusNormalClosure, code)
	case <-time.After(waitFor):
		t.Fatal("server did not observe close")
	}

	select {
	case <-rec.Closes:
		t.Fatal("no callback expected after Close")
	case <-time.After(100 * time.Millisecond):
	}
}
