package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/omochice/socket-session/internal/transport"
	"github.com/omochice/socket-session/pkg/protocol"
	"github.com/omochice/socket-session/pkg/protocol/codec"
)

// Option customizes a Session.
type Option func(*Session)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithInterceptors sets the interceptor chain, in order.
func WithInterceptors(interceptors ...Interceptor) Option {
	return func(s *Session) { s.chain = NewChain(interceptors...) }
}

// WithStrategy replaces the exponential backoff built from the config.
func WithStrategy(st Strategy) Option {
	return func(s *Session) { s.strategy = st }
}

// Session keeps one logical connection alive over a Transport.
type Session struct {
	transport transport.Transport
	codec     codec.Codec
	cfg       Config
	chain     Chain
	strategy  Strategy
	log       *zap.Logger

	mb   *mailbox
	done chan struct{}

	messageListeners listenerSet[MessageListener]
	eventListeners   listenerSet[EventListener]

	// mirrors for lock-free reads from other goroutines
	stateVal   atomic.Int32
	pendingVal atomic.Int32

	// owned by the session goroutine
	state       State
	conn        transport.Conn
	epoch       uint64
	trafficSeen bool
	buffer      *Buffer
	hb          *heartbeat
	rc          *reconnector
}

// New creates a Session in StateDisconnected and starts its goroutine.
// Call Connect to open the first connection and Close to release it.
func New(t transport.Transport, c codec.Codec, cfg Config, opts ...Option) (*Session, error) {
	if t == nil {
		return nil, errors.New("session: nil transport")
	}
	if c == nil {
		return nil, errors.New("session: nil codec")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session: invalid config: %w", err)
	}

	s := &Session{
		transport: t,
		codec:     c,
		cfg:       cfg,
		log:       zap.NewNop(),
		mb:        newMailbox(),
		done:      make(chan struct{}),
		state:     StateDisconnected,
		buffer:    NewBuffer(cfg.Buffer.Capacity, cfg.Buffer.Overflow),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.strategy == nil {
		s.strategy = NewExponentialBackoff(cfg.Reconnect)
	}
	s.log.Debug("session created",
		zap.Int("interceptors", s.chain.Len()),
		zap.Int("buffer", cfg.Buffer.Capacity),
		zap.Stringer("overflow", cfg.Buffer.Overflow))
	after := afterFunc(s.mb)
	s.hb = newHeartbeat(cfg.Heartbeat, after, s.sendPing, s.heartbeatExpired)
	s.rc = newReconnector(cfg.Reconnect, s.strategy, after)

	go s.loop()
	return s, nil
}

func (s *Session) loop() {
	defer close(s.done)
	for range s.mb.signal {
		for _, fn := range s.mb.take() {
			fn()
		}
		if s.state == StateClosed {
			return
		}
	}
}

// Connect starts connecting. It is a no-op while connecting or connected.
// From StateReconnecting it cancels the pending retry and connects at once.
// After Close it does nothing and returns ErrClosed.
func (s *Session) Connect() error {
	if !s.mb.post(s.connect) {
		return ErrClosed
	}
	return nil
}

// Send delivers msg, queueing it while the connection is down. A message
// without an ID is given a random one. Send never blocks on the network;
// the outcome is reported through events. It returns ErrClosed after Close.
func (s *Session) Send(msg protocol.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	env := Envelope{Message: msg, EnqueuedAt: time.Now()}
	if !s.mb.post(func() { s.deliver(env) }) {
		return ErrClosed
	}
	return nil
}

// Close moves the session to StateClosed: the pending retry and heartbeat
// are cancelled, the connection is closed with a normal code and buffered
// messages are discarded. Close waits for the session goroutine to exit,
// so it must not be called from a listener.
func (s *Session) Close() error {
	s.mb.post(s.shutdown)
	<-s.done
	return nil
}

// Done is closed once the session has shut down.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the current state.
func (s *Session) State() State { return State(s.stateVal.Load()) }

// PendingCount returns the number of buffered outbound messages.
func (s *Session) PendingCount() int { return int(s.pendingVal.Load()) }

// AddMessageListener registers fn. Listeners run on the session goroutine
// in registration order and must not block.
func (s *Session) AddMessageListener(fn MessageListener) ListenerID {
	return s.messageListeners.add(fn)
}

// RemoveMessageListener unregisters a listener. It is safe to call from a
// listener; a removed listener is not called again, even for the message
// being dispatched.
func (s *Session) RemoveMessageListener(id ListenerID) bool {
	return s.messageListeners.remove(id)
}

// AddEventListener registers fn for lifecycle events.
func (s *Session) AddEventListener(fn EventListener) ListenerID {
	return s.eventListeners.add(fn)
}

// RemoveEventListener unregisters an event listener.
func (s *Session) RemoveEventListener(id ListenerID) bool {
	return s.eventListeners.remove(id)
}

func (s *Session) connect() {
	switch s.state {
	case StateConnecting, StateConnected, StateClosed:
		return
	case StateReconnecting:
		s.rc.cancel()
	case StateDisconnected:
		s.rc.reset()
	}
	s.open()
}

func (s *Session) open() {
	s.closeConn(transport.CloseNormal, "superseded")
	s.epoch++
	s.trafficSeen = false
	s.setState(StateConnecting)
	s.log.Debug("opening transport", zap.Uint64("epoch", s.epoch))
	s.conn = s.transport.Open(&connHandler{s: s, epoch: s.epoch})
}

func (s *Session) retry() {
	if s.state != StateReconnecting {
		return
	}
	s.open()
}

func (s *Session) closeConn(code transport.CloseCode, reason string) {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(code, reason); err != nil {
		s.log.Debug("close transport", zap.Error(err))
	}
	s.conn = nil
}

func (s *Session) handleOpen(epoch uint64) {
	if epoch != s.epoch || s.state != StateConnecting {
		return
	}
	s.rc.cancel()
	if s.cfg.Reconnect.Reset == ResetOnOpen {
		s.rc.reset()
	}
	s.setState(StateConnected)
	s.log.Info("connected", zap.Uint64("epoch", epoch))
	s.emit(Event{Type: EventConnected})
	s.hb.start()
	s.flush()
}

func (s *Session) flush() {
	if s.buffer.Len() == 0 {
		return
	}
	s.log.Debug("flushing buffer", zap.Int("pending", s.buffer.Len()))
	err := s.buffer.Flush(func(env Envelope) error {
		return s.transmit(env.Message)
	})
	s.syncPending()
	if err != nil {
		s.fail(fmt.Errorf("%w: %w", ErrTransportWrite, err))
	}
}

func (s *Session) deliver(env Envelope) {
	switch s.state {
	case StateClosed:
		return
	case StateConnected:
		if err := s.transmit(env.Message); err != nil {
			s.enqueue(env)
			s.fail(fmt.Errorf("%w: %w", ErrTransportWrite, err))
		}
	default:
		s.enqueue(env)
	}
}

func (s *Session) enqueue(env Envelope) {
	dropped, ok, err := s.buffer.Enqueue(env)
	s.syncPending()
	if !ok {
		return
	}
	waited := time.Since(dropped.EnqueuedAt)
	s.log.Warn("buffer overflow",
		zap.Stringer("policy", s.cfg.Buffer.Overflow),
		zap.String("dropped", dropped.Message.ID),
		zap.Duration("waited", waited))
	if err == nil {
		err = ErrBufferOverflow
	}
	s.emit(Event{Type: EventBufferOverflow, Message: dropped.Message, Delay: waited, Err: err})
}

// transmit runs the outbound chain, encodes and writes msg. Encoding
// failures drop the message and return nil; only write failures are
// returned.
func (s *Session) transmit(msg protocol.Message) error {
	msg = s.chain.Outbound(msg)
	frame, err := s.codec.Encode(msg)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrEncode, err)
		s.log.Warn("dropping message", zap.String("id", msg.ID), zap.Error(err))
		s.emit(Event{Type: EventSendFailed, Message: msg, Err: err})
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()
	return s.conn.Send(ctx, frame)
}

// sendPing writes a heartbeat ping outside the buffer.
func (s *Session) sendPing() {
	if s.state != StateConnected {
		return
	}
	if err := s.transmit(protocol.NewPing()); err != nil {
		s.fail(fmt.Errorf("%w: %w", ErrTransportWrite, err))
	}
}

func (s *Session) heartbeatExpired() {
	if s.state != StateConnected {
		return
	}
	s.log.Warn("heartbeat timeout", zap.Duration("timeout", s.cfg.Heartbeat.Timeout))
	s.fail(ErrHeartbeatTimeout)
}

func (s *Session) handleMessage(epoch uint64, frame []byte) {
	if epoch != s.epoch || s.state != StateConnected {
		return
	}
	s.hb.traffic()
	if !s.trafficSeen {
		s.trafficSeen = true
		if s.cfg.Reconnect.Reset == ResetOnTraffic {
			s.rc.reset()
		}
	}

	msg, err := s.codec.Decode(frame)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrDecode, err)
		s.log.Warn("discarding frame", zap.Int("size", len(frame)), zap.Error(err))
		s.emit(Event{Type: EventDecodeError, Frame: frame, Err: err})
		return
	}
	msg = s.chain.Inbound(msg)

	switch msg.Type {
	case protocol.MessageTypePing:
		if err := s.transmit(protocol.NewPong()); err != nil {
			s.fail(fmt.Errorf("%w: %w", ErrTransportWrite, err))
		}
		return
	case protocol.MessageTypePong:
		return
	}

	s.emit(Event{Type: EventMessageReceived, Message: msg})
	s.dispatch(msg)
}

func (s *Session) dispatch(msg protocol.Message) {
	for _, l := range s.messageListeners.snapshot() {
		if !s.messageListeners.contains(l.id) {
			continue
		}
		if err := callListener(l.fn, msg); err != nil {
			s.log.Warn("message listener failed", zap.Uint64("listener", uint64(l.id)), zap.Error(err))
			s.emit(Event{Type: EventListenerError, Listener: l.id, Message: msg, Err: err})
		}
	}
}

func callListener(fn MessageListener, msg protocol.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return fn(msg)
}

func (s *Session) handleFailure(epoch uint64, err error) {
	if epoch != s.epoch {
		return
	}
	switch s.state {
	case StateConnecting:
		s.fail(fmt.Errorf("%w: %w", ErrTransportOpen, err))
	case StateConnected:
		s.fail(fmt.Errorf("%w: %w", ErrUnexpectedClose, err))
	}
}

func (s *Session) handleClosed(epoch uint64, code transport.CloseCode, reason string) {
	if epoch != s.epoch {
		return
	}
	if s.state != StateConnecting && s.state != StateConnected {
		return
	}
	err := fmt.Errorf("%w: %s (%d) %q", ErrUnexpectedClose, code, int(code), reason)
	if !code.IsRetryable() && !s.cfg.Reconnect.ReconnectOnClose {
		s.log.Info("server closed connection", zap.Int("code", int(code)), zap.String("reason", reason))
		s.disconnect(err)
		return
	}
	s.fail(err)
}

// disconnect tears down the connection and stays down.
func (s *Session) disconnect(cause error) {
	wasConnected := s.state == StateConnected
	s.hb.stop()
	s.rc.cancel()
	s.closeConn(transport.CloseNormal, "")
	s.setState(StateDisconnected)
	if wasConnected {
		s.emit(Event{Type: EventDisconnected, Err: cause})
	}
}

// fail handles any loss of the connection while connecting or connected.
func (s *Session) fail(cause error) {
	if s.state != StateConnecting && s.state != StateConnected {
		return
	}
	wasConnected := s.state == StateConnected
	s.hb.stop()
	s.closeConn(transport.CloseGoingAway, "reconnecting")
	s.log.Warn("connection lost", zap.Stringer("state", s.state), zap.Error(cause))
	if wasConnected {
		s.emit(Event{Type: EventDisconnected, Err: cause})
	}

	if !s.cfg.Reconnect.Enabled {
		s.setState(StateDisconnected)
		return
	}
	attempt, delay, ok := s.rc.schedule(s.retry)
	if !ok {
		s.setState(StateDisconnected)
		s.log.Error("giving up reconnecting", zap.Int("attempts", attempt))
		s.emit(Event{
			Type:    EventReconnectFailed,
			Attempt: attempt,
			Err:     fmt.Errorf("%w after %d attempts: %w", ErrReconnectExhausted, attempt, cause),
		})
		return
	}
	s.setState(StateReconnecting)
	s.log.Info("reconnecting", zap.Int("attempt", attempt), zap.Duration("delay", delay))
	s.emit(Event{Type: EventReconnecting, Attempt: attempt, Delay: delay, Err: cause})
}

func (s *Session) shutdown() {
	if s.state == StateClosed {
		return
	}
	s.mb.close()
	s.rc.cancel()
	s.hb.stop()
	s.closeConn(transport.CloseNormal, "session closed")
	s.buffer.Clear()
	s.syncPending()
	s.setState(StateClosed)
	s.log.Info("session closed")
	s.emit(Event{Type: EventClosed})
}

func (s *Session) setState(next State) {
	prev := s.state
	if prev == next {
		return
	}
	s.state = next
	s.stateVal.Store(int32(next))
	s.emit(Event{Type: EventStateChanged, Prev: prev, State: next})
}

func (s *Session) syncPending() {
	s.pendingVal.Store(int32(s.buffer.Len()))
}

func (s *Session) emit(ev Event) {
	if ev.Type != EventStateChanged {
		ev.State = s.state
	}
	for _, l := range s.eventListeners.snapshot() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("event listener panic", zap.Uint64("listener", uint64(l.id)), zap.Any("panic", r))
				}
			}()
			l.fn(ev)
		}()
	}
}

// connHandler forwards transport callbacks for one epoch to the session
// goroutine.
type connHandler struct {
	s     *Session
	epoch uint64
}

func (h *connHandler) OnOpen() {
	h.s.mb.post(func() { h.s.handleOpen(h.epoch) })
}

func (h *connHandler) OnMessage(frame []byte) {
	h.s.mb.post(func() { h.s.handleMessage(h.epoch, frame) })
}

func (h *connHandler) OnFailure(err error) {
	h.s.mb.post(func() { h.s.handleFailure(h.epoch, err) })
}

func (h *connHandler) OnClosed(code transport.CloseCode, reason string) {
	h.s.mb.post(func() { h.s.handleClosed(h.epoch, code, reason) })
}
