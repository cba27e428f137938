// Package codec converts protocol messages to and from wire frames.
package codec

import (
	"fmt"
	"strings"

	"github.com/omochice/socket-session/pkg/protocol"
)

// Codec encodes and decodes protocol messages.
// Implementations must be safe for concurrent use.
type Codec interface {
	ContentType() string
	Encode(msg protocol.Message) ([]byte, error)
	Decode(data []byte) (protocol.Message, error)
}

// Content types of the built-in codecs.
const (
	ContentTypeProto = "application/x-protobuf"
	ContentTypeJSON  = "application/json"
	ContentTypeCBOR  = "application/cbor"
)

// Registry maps content types and short names to codecs.
type Registry struct {
	byType map[string]Codec
	byName map[string]Codec
}

// NewRegistry constructs a registry preloaded with the built-in codecs
// registered under "proto", "json" and "cbor".
func NewRegistry() (*Registry, error) {
	r := &Registry{
		byType: make(map[string]Codec),
		byName: make(map[string]Codec),
	}
	r.Register("proto", Proto())
	r.Register("json", JSON())
	c, err := CBOR()
	if err != nil {
		return nil, err
	}
	r.Register("cbor", c)
	return r, nil
}

// Register adds a codec under name and its content type.
func (r *Registry) Register(name string, c Codec) {
	r.byType[c.ContentType()] = c
	r.byName[strings.ToLower(name)] = c
}

// Get returns a codec by content type, or nil.
func (r *Registry) Get(contentType string) Codec { return r.byType[contentType] }

// Lookup returns a codec by short name or content type.
func (r *Registry) Lookup(name string) (Codec, error) {
	if c, ok := r.byName[strings.ToLower(name)]; ok {
		return c, nil
	}
	if c, ok := r.byType[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("codec: unknown codec %q", name)
}
