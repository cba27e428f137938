// Package transporttest provides helpers for testing code built on the
// transport interfaces.
package transporttest

import (
	"github.com/omochice/socket-session/internal/transport"
)

// Closed records one OnClosed callback.
type Closed struct {
	Code   transport.CloseCode
	Reason string
}

// Recorder is a transport.Handler that forwards every callback to a
// buffered channel.
type Recorder struct {
	Opened   chan struct{}
	Messages chan []byte
	Failures chan error
	Closes   chan Closed
}

// NewRecorder returns a Recorder whose channels hold up to size callbacks each.
func NewRecorder(size int) *Recorder {
	return &Recorder{
		Opened:   make(chan struct{}, size),
		Messages: make(chan []byte, size),
		Failures: make(chan error, size),
		Closes:   make(chan Closed, size),
	}
}

func (r *Recorder) OnOpen()                { r.Opened <- struct{}{} }
func (r *Recorder) OnMessage(frame []byte) { r.Messages <- frame }
func (r *Recorder) OnFailure(err error)    { r.Failures <- err }
func (r *Recorder) OnClosed(code transport.CloseCode, reason string) {
	r.Closes <- Closed{Code: code, Reason: reason}
}
