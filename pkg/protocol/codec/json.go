package codec

import (
	"encoding/json"
	"fmt"

	"github.com/omochice/socket-session/pkg/protocol"
)

type jsonCodec struct{}

// JSON returns a JSON codec (RFC 8259). Payloads are base64 strings.
func JSON() Codec { return jsonCodec{} }

func (jsonCodec) ContentType() string { return ContentTypeJSON }

func (jsonCodec) Encode(msg protocol.Message) ([]byte, error) { return json.Marshal(msg) }

func (jsonCodec) Decode(data []byte) (protocol.Message, error) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return protocol.Message{}, fmt.Errorf("json: %w", err)
	}
	return msg, nil
}
