package interceptor

import (
	"go.uber.org/zap"

	"github.com/omochice/socket-session/pkg/protocol"
)

// Logging logs every message in both directions at debug level. Payload
// bytes are only logged when debug is true.
type Logging struct {
	log   *zap.Logger
	debug bool
}

// NewLogging returns a Logging interceptor.
func NewLogging(log *zap.Logger, debug bool) *Logging {
	return &Logging{log: log.Named("wire"), debug: debug}
}

func (l *Logging) InterceptOutbound(msg protocol.Message) protocol.Message {
	l.write(">>> send", msg)
	return msg
}

func (l *Logging) InterceptInbound(msg protocol.Message) protocol.Message {
	l.write("<<< recv", msg)
	return msg
}

func (l *Logging) write(dir string, msg protocol.Message) {
	if ce := l.log.Check(zap.DebugLevel, dir); ce != nil {
		fields := []zap.Field{
			zap.Stringer("type", msg.Type),
			zap.String("id", msg.ID),
			zap.String("topic", msg.Topic),
			zap.Int("bytes", len(msg.Payload)),
		}
		if l.debug {
			fields = append(fields, zap.ByteString("payload", msg.Payload))
		}
		ce.Write(fields...)
	}
}
