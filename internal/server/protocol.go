package server

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"os"
	"time"
)

type protocolType int

const (
	protocolFramed protocolType = iota
	protocolHTTP
)

func (p protocolType) String() string {
	if p == protocolHTTP {
		return "ws"
	}
	return "tcp"
}

var httpMethods = [][]byte{
	[]byte("GET "),
	[]byte("POST"),
	[]byte("PUT "),
	[]byte("HEAD"),
	[]byte("OPTI"),
	[]byte("PATC"),
	[]byte("DELE"),
	[]byte("CONN"),
}

// detectProtocol peeks at the first bytes to tell an HTTP upgrade from a
// framed TCP client. A framed client may stay silent until it has something
// to send, so a peer that sends nothing within sniff is treated as framed.
// A length prefix that reads as an HTTP method would exceed frame.MaxSize.
// The read deadline is left set; callers reset it.
func detectProtocol(conn net.Conn, sniff time.Duration) (protocolType, *bufio.Reader, error) {
	reader := bufio.NewReader(conn)

	if sniff > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(sniff)); err != nil {
			return protocolFramed, reader, err
		}
	}

	peek, err := reader.Peek(4)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return protocolFramed, reader, nil
		}
		return protocolFramed, reader, err
	}

	for _, m := range httpMethods {
		if bytes.HasPrefix(peek, m) {
			return protocolHTTP, reader, nil
		}
	}
	return protocolFramed, reader, nil
}
