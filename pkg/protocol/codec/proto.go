package codec

import "github.com/omochice/socket-session/pkg/protocol"

type protoCodec struct{}

// Proto returns the protobuf wire codec described by proto/message.proto.
// Header entries are written in key order so output is deterministic.
func Proto() Codec { return protoCodec{} }

func (protoCodec) ContentType() string { return ContentTypeProto }

func (protoCodec) Encode(msg protocol.Message) ([]byte, error) { return msg.Encode() }

func (protoCodec) Decode(data []byte) (protocol.Message, error) {
	var msg protocol.Message
	err := msg.Decode(data)
	return msg, err
}
