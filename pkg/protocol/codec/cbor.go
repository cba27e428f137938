package codec

import (
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"

	"github.com/omochice/socket-session/pkg/protocol"
)

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBOR returns a deterministic CBOR codec (RFC 8949) with canonical encoding.
func CBOR() (Codec, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, err
	}
	return cborCodec{enc: em, dec: dm}, nil
}

func (c cborCodec) ContentType() string { return ContentTypeCBOR }

func (c cborCodec) Encode(msg protocol.Message) ([]byte, error) { return c.enc.Marshal(msg) }

func (c cborCodec) Decode(data []byte) (protocol.Message, error) {
	var msg protocol.Message
	if err := c.dec.Unmarshal(data, &msg); err != nil {
		return protocol.Message{}, fmt.Errorf("cbor: %w", err)
	}
	return msg, nil
}
