// Package client implements the chat client on top of a managed
// session.Session. Messages sent while the connection is down are buffered
// by the session and delivered after it reconnects.
package client

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/omochice/socket-session/internal/chat"
	"github.com/omochice/socket-session/internal/router"
	"github.com/omochice/socket-session/internal/session"
	"github.com/omochice/socket-session/pkg/protocol"
)

// ErrInboxFull is reported through session events when Messages is not
// drained fast enough.
var ErrInboxFull = errors.New("client: inbox full")

const inboxSize = 64

// Client is a chat participant.
type Client struct {
	mgr      *session.Manager
	username string
	router   *router.Router
	log      *zap.Logger
	messages chan protocol.Message

	mu        sync.Mutex
	sess      *session.Session
	inboxOnce sync.Once
}

// New creates a Client that sends as username through the session owned
// by mgr.
func New(mgr *session.Manager, username string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		mgr:      mgr,
		username: username,
		router:   router.New(log.Named("router")),
		log:      log,
		messages: make(chan protocol.Message, inboxSize),
	}
	for _, topic := range []string{chat.TopicText, chat.TopicJoin, chat.TopicLeave} {
		c.router.Handle(topic, c.push)
	}
	return c
}

// Router returns the router inbound messages pass through. Handlers added
// for other topics run on the session goroutine.
func (c *Client) Router() *router.Router { return c.router }

// Username returns the name the client sends as.
func (c *Client) Username() string { return c.username }

func (c *Client) session() (*session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != nil {
		return c.sess, nil
	}
	s, err := c.mgr.Session()
	if err != nil {
		return nil, err
	}
	s.AddMessageListener(c.router.Dispatch)
	go func() {
		<-s.Done()
		c.closeInbox()
	}()
	c.sess = s
	return s, nil
}

func (c *Client) closeInbox() {
	c.inboxOnce.Do(func() { close(c.messages) })
}

// Connect starts connecting. It returns before the connection opens;
// State or session events report progress.
func (c *Client) Connect() error {
	s, err := c.session()
	if err != nil {
		return err
	}
	return s.Connect()
}

// Disconnect closes the session and the Messages channel. Buffered
// outbound messages are discarded. It waits for the session goroutine to
// exit, so calling it from an OnEvent callback or a Router handler
// deadlocks; start it in a new goroutine there instead.
func (c *Client) Disconnect() {
	if err := c.mgr.Shutdown(); err != nil {
		c.log.Warn("shutdown", zap.Error(err))
	}
	c.mu.Lock()
	created := c.sess != nil
	c.mu.Unlock()
	if !created {
		c.closeInbox()
	}
}

// IsConnected reports whether the session is connected.
func (c *Client) IsConnected() bool {
	return c.State() == session.StateConnected
}

// State returns the session state, StateDisconnected before first use.
func (c *Client) State() session.State {
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	if s == nil {
		return session.StateDisconnected
	}
	return s.State()
}

// Pending returns the number of messages waiting for a connection.
func (c *Client) Pending() int {
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	if s == nil {
		return 0
	}
	return s.PendingCount()
}

// OnEvent registers fn for session events. fn runs on the session
// goroutine and must not call Disconnect directly.
func (c *Client) OnEvent(fn session.EventListener) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	s.AddEventListener(fn)
	return nil
}

// SendMessage sends a chat line.
func (c *Client) SendMessage(content string) error {
	return c.send(chat.TopicText, []byte(content))
}

// Join announces the client to the room.
func (c *Client) Join() error {
	return c.send(chat.TopicJoin, nil)
}

// Leave announces that the client is leaving.
func (c *Client) Leave() error {
	return c.send(chat.TopicLeave, nil)
}

// Messages returns chat messages from other participants. It is closed
// once the session shuts down.
func (c *Client) Messages() <-chan protocol.Message {
	return c.messages
}

func (c *Client) send(topic string, payload []byte) error {
	s, err := c.session()
	if err != nil {
		return err
	}
	msg := protocol.NewData(topic, payload).WithHeader(protocol.HeaderSender, c.username)
	return s.Send(msg)
}

func (c *Client) push(msg protocol.Message) error {
	select {
	case c.messages <- msg:
		return nil
	default:
		return ErrInboxFull
	}
}
