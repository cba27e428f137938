package interceptor

import (
	"go.uber.org/zap"

	"github.com/omochice/socket-session/pkg/protocol"
)

// TokenProvider supplies the current authentication token.
type TokenProvider interface {
	// Token returns the token and false when there is none, for example
	// after logout.
	Token() (string, bool)
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func() (string, bool)

func (f TokenFunc) Token() (string, bool) { return f() }

// StaticToken always returns the same token. An empty token counts as none.
type StaticToken string

func (s StaticToken) Token() (string, bool) { return string(s), s != "" }

// AuthToken sets protocol.HeaderToken on outbound data messages. Without a
// token the message passes through unchanged.
type AuthToken struct {
	provider TokenProvider
	log      *zap.Logger
}

// NewAuthToken returns an AuthToken reading from provider.
func NewAuthToken(provider TokenProvider, log *zap.Logger) *AuthToken {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthToken{provider: provider, log: log}
}

func (a *AuthToken) InterceptOutbound(msg protocol.Message) protocol.Message {
	if msg.Type != protocol.MessageTypeData {
		return msg
	}
	token, ok := a.provider.Token()
	if !ok {
		a.log.Debug("no auth token available, sending without one", zap.String("id", msg.ID))
		return msg
	}
	return msg.WithHeader(protocol.HeaderToken, token)
}

func (a *AuthToken) InterceptInbound(msg protocol.Message) protocol.Message { return msg }
