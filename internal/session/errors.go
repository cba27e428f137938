package session

import "errors"

var (
	ErrTransportOpen      = errors.New("session: transport open failed")
	ErrTransportWrite     = errors.New("session: transport write failed")
	ErrUnexpectedClose    = errors.New("session: connection closed unexpectedly")
	ErrHeartbeatTimeout   = errors.New("session: heartbeat timeout")
	ErrDecode             = errors.New("session: decode failed")
	ErrEncode             = errors.New("session: encode failed")
	ErrBufferOverflow     = errors.New("session: buffer overflow")
	ErrReconnectExhausted = errors.New("session: reconnection attempts exhausted")
	ErrClosed             = errors.New("session: closed")
)
