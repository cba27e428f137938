package client

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/omochice/socket-session/internal/config"
	"github.com/omochice/socket-session/internal/interceptor"
	"github.com/omochice/socket-session/internal/session"
	"github.com/omochice/socket-session/internal/transport"
	"github.com/omochice/socket-session/internal/transport/tcp"
	"github.com/omochice/socket-session/internal/transport/ws"
	"github.com/omochice/socket-session/pkg/protocol/codec"
)

// NewTransport picks a transport by URL scheme: ws and wss dial WebSocket,
// tcp dials length-prefixed frames to host:port.
func NewTransport(rawURL string, dialTimeout time.Duration, header http.Header) (transport.Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
		return ws.New(rawURL, ws.Options{Header: header, DialTimeout: dialTimeout}), nil
	case "tcp":
		if u.Host == "" {
			return nil, fmt.Errorf("tcp url %q has no host", rawURL)
		}
		return tcp.New(u.Host, dialTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

// Build wires a Client from configuration: transport, codec, the
// timestamp, auth and logging interceptors and a session manager.
func Build(cfg *config.Config, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Client.Username == "" {
		return nil, fmt.Errorf("client.username is required")
	}

	registry, err := codec.NewRegistry()
	if err != nil {
		return nil, err
	}
	c, err := registry.Lookup(cfg.Client.Codec)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("X-Codec", c.ContentType())
	t, err := NewTransport(cfg.Client.URL, cfg.Client.DialTimeout, header)
	if err != nil {
		return nil, err
	}

	sc, err := cfg.SessionConfig()
	if err != nil {
		return nil, err
	}

	interceptors := []session.Interceptor{
		interceptor.NewTimestamp(),
		interceptor.NewAuthToken(interceptor.StaticToken(cfg.Client.Token), log),
		interceptor.NewLogging(log, cfg.Client.Debug),
	}
	mgr := session.NewManager(func() (*session.Session, error) {
		return session.New(t, c, sc,
			session.WithLogger(log.Named("session")),
			session.WithInterceptors(interceptors...))
	})
	return New(mgr, cfg.Client.Username, log), nil
}
