// Package frame implements u32 little-endian length-prefixed framing for
// stream sockets.
package frame

import (
	"encoding/binary"
	"errors"
	"io"
)

// MaxSize is the largest payload accepted by ReadFrame and WriteFrame.
const MaxSize = 1 << 24

// HeaderLen is the size of the length prefix.
const HeaderLen = 4

var ErrTooLarge = errors.New("frame: payload too large")

// WriteFrame writes the length prefix and payload of one frame.
// Callers that share w between goroutines must serialize calls.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxSize {
		return ErrTooLarge
	}
	buf := make([]byte, HeaderLen+len(payload))
	binary.LittleEndian.PutUint32(buf[:HeaderLen], uint32(len(payload)))
	copy(buf[HeaderLen:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one frame. It returns io.EOF only when r ends cleanly on
// a frame boundary, and io.ErrUnexpectedEOF when a frame is cut short.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenbuf [HeaderLen]byte
	if _, err := io.ReadFull(r, lenbuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenbuf[:])
	if n > MaxSize {
		return nil, ErrTooLarge
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}
