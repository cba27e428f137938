package frame_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/omochice/socket-session/internal/transport/frame"
)

func TestWriteReadFrame(t *testing.T) {
	payloads := [][]byte{
		[]byte("hello"),
		{},
		bytes.Repeat([]byte{0xab}, 70000),
	}

	var buf bytes.Buffer
	for _, p := range payloads {
		if err := frame.WriteFrame(&buf, p); err != nil {
			t.Fatalf("WriteFrame() error = %v", err)
		}
	}
	for i, want := range payloads {
		got, err := frame.ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame() #%d error = %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("ReadFrame() #%d = %d bytes, want %d", i, len(got), len(want))
		}
	}
	if _, err := frame.ReadFrame(&buf); err != io.EOF {
		t.Errorf("ReadFrame() at end error = %v, want io.EOF", err)
	}
}

func TestReadFrame_Errors(t *testing.T) {
	oversized := make([]byte, frame.HeaderLen)
	binary.LittleEndian.PutUint32(oversized, frame.MaxSize+1)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", []byte{1, 0}, io.ErrUnexpectedEOF},
		{"short payload", []byte{5, 0, 0, 0, 'a', 'b'}, io.ErrUnexpectedEOF},
		{"header only", []byte{3, 0, 0, 0}, io.ErrUnexpectedEOF},
		{"oversized", oversized, frame.ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := frame.ReadFrame(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("ReadFrame() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWriteFrame_TooLarge(t *testing.T) {
	err := frame.WriteFrame(io.Discard, make([]byte, frame.MaxSize+1))
	if !errors.Is(err, frame.ErrTooLarge) {
		t.Errorf("WriteFrame() error = %v, want ErrTooLarge", err)
	}
}
