// Package interceptor provides session interceptors for timestamping,
// authentication and logging.
package interceptor

import (
	"strconv"
	"time"

	"github.com/omochice/socket-session/pkg/protocol"
)

// Timestamp stamps outbound data messages with the send time in unix
// milliseconds under protocol.HeaderTimestamp. Inbound messages pass
// through.
type Timestamp struct {
	now func() time.Time
}

// NewTimestamp returns a Timestamp using the wall clock.
func NewTimestamp() *Timestamp {
	return &Timestamp{now: time.Now}
}

// NewTimestampWithClock returns a Timestamp reading time from now.
func NewTimestampWithClock(now func() time.Time) *Timestamp {
	return &Timestamp{now: now}
}

func (t *Timestamp) InterceptOutbound(msg protocol.Message) protocol.Message {
	if msg.Type != protocol.MessageTypeData {
		return msg
	}
	return msg.WithHeader(protocol.HeaderTimestamp, strconv.FormatInt(t.now().UnixMilli(), 10))
}

func (t *Timestamp) InterceptInbound(msg protocol.Message) protocol.Message { return msg }

// SentAt parses the timestamp header of msg.
func SentAt(msg protocol.Message) (time.Time, bool) {
	v := msg.Header(protocol.HeaderTimestamp)
	if v == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
