// Package server implements the demo chat server. One port serves framed
// TCP clients and WebSocket upgrades; the first bytes of a connection pick
// the protocol.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/omochice/socket-session/internal/chat"
	"github.com/omochice/socket-session/internal/transport"
	"github.com/omochice/socket-session/pkg/protocol"
	"github.com/omochice/socket-session/pkg/protocol/codec"
)

// ErrServerClosed is returned by Serve after Stop.
var ErrServerClosed = errors.New("server: closed")

const (
	defaultSniffTimeout     = 300 * time.Millisecond
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	defaultQueueSize        = 64
)

// Options configures a Server. Zero values select defaults.
type Options struct {
	Address string
	// Path is the WebSocket upgrade path.
	Path  string
	Codec codec.Codec
	// Echo also delivers broadcasts to their sender.
	Echo bool
	// Workers bounds concurrently served connections. Connections beyond
	// it are refused.
	Workers          int
	QueueSize        int
	SniffTimeout     time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	Logger           *zap.Logger
	// OnMessage observes every decoded data message before broadcast.
	OnMessage func(p *chat.Peer, msg protocol.Message)
}

// Server handles both framed TCP and WebSocket connections on one port.
type Server struct {
	opts     Options
	log      *zap.Logger
	hub      *chat.Hub
	pool     *ants.Pool
	listener net.Listener
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	received atomic.Int64
}

// New creates a Server. It does not listen until Listen or Start.
func New(opts Options) (*Server, error) {
	if opts.Path == "" {
		opts.Path = "/ws"
	}
	if opts.Codec == nil {
		opts.Codec = codec.Proto()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1024
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.SniffTimeout <= 0 {
		opts.SniffTimeout = defaultSniffTimeout
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		opts: opts,
		log:  log,
		hub:  chat.NewHub(log.Named("hub")),
		quit: make(chan struct{}),
	}
	pool, err := ants.NewPool(opts.Workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(a any) {
			s.log.Error("connection handler panic", zap.Any("panic", a), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	s.pool = pool
	return s, nil
}

// Listen binds the listener.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener
	s.log.Info("server started",
		zap.String("addr", listener.Addr().String()),
		zap.String("ws_path", s.opts.Path),
		zap.String("codec", s.opts.Codec.ContentType()))
	return nil
}

// Serve accepts connections until Stop. It always returns a non-nil error.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("server: Serve called before Listen")
	}
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return ErrServerClosed
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.log.Warn("accept timeout", zap.Error(err))
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.wg.Add(1)
		err = s.pool.Submit(func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		})
		if err != nil {
			s.wg.Done()
			s.log.Warn("refusing connection",
				zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
			conn.Close()
		}
	}
}

// Start listens and serves until Stop.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Stop closes the listener, closes every peer with CloseGoingAway and waits
// for their handlers to return.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.listener != nil {
			s.listener.Close()
		}
		s.hub.CloseAll(transport.CloseGoingAway, "server shutting down")
		s.wg.Wait()
		s.pool.Release()
	})
}

// DisconnectAll closes every peer with code and reason but keeps accepting.
func (s *Server) DisconnectAll(code transport.CloseCode, reason string) {
	s.hub.CloseAll(code, reason)
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// ClientCount returns the number of registered peers.
func (s *Server) ClientCount() int {
	return s.hub.ClientCount()
}

// Received returns the number of data messages decoded so far.
func (s *Server) Received() int64 {
	return s.received.Load()
}

func (s *Server) stopping() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

// handleConnection determines whether the connection is HTTP (WebSocket) or
// framed TCP and serves it.
func (s *Server) handleConnection(nc net.Conn) {
	log := s.log.With(zap.String("remote", nc.RemoteAddr().String()))

	proto, reader, err := detectProtocol(nc, s.opts.SniffTimeout)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			log.Debug("failed to detect protocol", zap.Error(err))
		}
		nc.Close()
		return
	}
	if err := nc.SetDeadline(time.Now().Add(s.opts.HandshakeTimeout)); err != nil {
		nc.Close()
		return
	}
	bc := &bufferedConn{Conn: nc, reader: reader}

	var conn chat.Conn
	if proto == protocolHTTP {
		if conn, err = s.upgrade(bc); err != nil {
			log.Debug("websocket upgrade failed", zap.Error(err))
			nc.Close()
			return
		}
	} else {
		conn = newFramedConn(nc, reader)
	}
	if err := nc.SetDeadline(time.Time{}); err != nil {
		nc.Close()
		return
	}

	s.servePeer(chat.NewPeer(proto.String()+"-"+uuid.NewString(), conn, s.opts.QueueSize), log)
}

func (s *Server) upgrade(bc *bufferedConn) (chat.Conn, error) {
	u := ws.Upgrader{
		OnRequest: func(uri []byte) error {
			path, _, _ := strings.Cut(string(uri), "?")
			if path != s.opts.Path {
				return ws.RejectConnectionError(ws.RejectionStatus(http.StatusNotFound))
			}
			return nil
		},
	}
	if _, err := u.Upgrade(bc); err != nil {
		return nil, err
	}
	return newWSConn(bc), nil
}

// servePeer registers p, runs its writer and reads until the connection ends.
func (s *Server) servePeer(p *chat.Peer, log *zap.Logger) {
	log = log.With(zap.String("peer", p.ID), zap.String("kind", p.Conn.Kind()))

	s.hub.Register(p)
	if s.stopping() {
		s.hub.Unregister(p)
		p.Conn.Close(transport.CloseGoingAway, "server shutting down")
		return
	}
	log.Info("peer connected", zap.Int("clients", s.hub.ClientCount()))

	ctx, cancel := context.WithCancel(context.Background())
	writerDone := make(chan struct{})
	go s.writeLoop(ctx, p, log, writerDone)

	defer func() {
		s.hub.Unregister(p)
		close(p.Outgoing)
		<-writerDone
		cancel()
		p.Conn.Close(transport.CloseNormal, "")
		log.Info("peer disconnected", zap.String("user", p.Username()))
	}()

	for {
		data, err := p.Conn.ReadFrame(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Debug("read failed", zap.Error(err))
			}
			return
		}
		s.handleFrame(p, data, log)
	}
}

func (s *Server) writeLoop(ctx context.Context, p *chat.Peer, log *zap.Logger, done chan<- struct{}) {
	defer close(done)
	failed := false
	for data := range p.Outgoing {
		if failed {
			continue
		}
		wctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
		err := p.Conn.WriteFrame(wctx, data)
		cancel()
		if err != nil {
			log.Debug("write failed", zap.Error(err))
			failed = true
			p.Conn.Close(transport.CloseAbnormal, "write failed")
		}
	}
}

func (s *Server) handleFrame(p *chat.Peer, data []byte, log *zap.Logger) {
	msg, err := s.opts.Codec.Decode(data)
	if err != nil {
		log.Warn("failed to decode message", zap.Error(err), zap.Int("bytes", len(data)))
		return
	}

	switch msg.Type {
	case protocol.MessageTypePing:
		pong, err := s.opts.Codec.Encode(protocol.NewPong())
		if err != nil {
			log.Error("encode pong", zap.Error(err))
			return
		}
		select {
		case p.Outgoing <- pong:
		default:
			log.Warn("peer queue full, dropping pong")
		}
		return
	case protocol.MessageTypePong:
		return
	}

	s.received.Add(1)
	sender := msg.Header(protocol.HeaderSender)
	switch msg.Topic {
	case chat.TopicJoin:
		p.SetUsername(sender)
		log.Info("user joined", zap.String("user", sender))
	case chat.TopicLeave:
		log.Info("user left", zap.String("user", sender))
	default:
		log.Debug("message", zap.String("user", sender), zap.String("topic", msg.Topic),
			zap.String("id", msg.ID), zap.Int("bytes", len(msg.Payload)))
	}
	if s.opts.OnMessage != nil {
		s.opts.OnMessage(p, msg)
	}
	s.hub.Broadcast(data, p, s.opts.Echo)
}
