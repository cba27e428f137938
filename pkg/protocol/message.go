// Package protocol defines the message carried by a session and its protobuf
// wire form (see proto/message.proto).
package protocol

//go:generate protoc --go_out=pb --go_opt=paths=source_relative --proto_path=../../proto ../../proto/message.proto

import (
	"fmt"
	"maps"

	"google.golang.org/protobuf/proto"

	"github.com/omochice/socket-session/pkg/protocol/pb"
)

// MessageType represents the type of message
type MessageType int

const (
	MessageTypeData MessageType = iota
	MessageTypePing
	MessageTypePong
)

// String returns the string representation of MessageType
func (mt MessageType) String() string {
	switch mt {
	case MessageTypeData:
		return "DATA"
	case MessageTypePing:
		return "PING"
	case MessageTypePong:
		return "PONG"
	default:
		return "UNKNOWN"
	}
}

// IsControl reports whether the type is a liveness ping or its answer.
func (mt MessageType) IsControl() bool {
	return mt == MessageTypePing || mt == MessageTypePong
}

// Well-known header keys.
const (
	HeaderTimestamp = "timestamp"
	HeaderToken     = "token"
	HeaderSender    = "sender"
)

// Message represents one application message carried by a session.
type Message struct {
	Type    MessageType       `json:"type" cbor:"type"`
	ID      string            `json:"id,omitempty" cbor:"id,omitempty"`
	Topic   string            `json:"topic,omitempty" cbor:"topic,omitempty"`
	Headers map[string]string `json:"headers,omitempty" cbor:"headers,omitempty"`
	Payload []byte            `json:"payload,omitempty" cbor:"payload,omitempty"`
}

// NewData returns a data message for topic carrying payload.
func NewData(topic string, payload []byte) Message {
	return Message{Type: MessageTypeData, Topic: topic, Payload: payload}
}

// NewPing returns a liveness ping.
func NewPing() Message {
	return Message{Type: MessageTypePing}
}

// NewPong returns the answer to a liveness ping.
func NewPong() Message {
	return Message{Type: MessageTypePong}
}

// Header returns the value of header key, or "" when absent.
func (m Message) Header(key string) string {
	return m.Headers[key]
}

// WithHeader returns a copy of m with key set to value.
// The receiver's header map is never mutated.
func (m Message) WithHeader(key, value string) Message {
	headers := make(map[string]string, len(m.Headers)+1)
	maps.Copy(headers, m.Headers)
	headers[key] = value
	m.Headers = headers
	return m
}

// String returns a short description for logs.
func (m Message) String() string {
	return fmt.Sprintf("%s(id=%q topic=%q %dB)", m.Type, m.ID, m.Topic, len(m.Payload))
}

// marshalOptions sorts map entries so equal messages encode to equal bytes.
var marshalOptions = proto.MarshalOptions{Deterministic: true}

// Encode encodes the message into bytes using protobuf
func (m *Message) Encode() ([]byte, error) {
	pbMsg := m.toProto()
	data, err := marshalOptions.Marshal(pbMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return data, nil
}

// Decode decodes bytes into a message using protobuf.
// On failure the receiver is left untouched.
func (m *Message) Decode(data []byte) error {
	pbMsg := &pb.Message{}
	if err := proto.Unmarshal(data, pbMsg); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}
	m.fromProto(pbMsg)
	return nil
}

// toProto converts the Message to protobuf Message.
// This conversion isolates protobuf implementation details from the public API.
func (m *Message) toProto() *pb.Message {
	return &pb.Message{
		Type:    messageTypeToProto(m.Type),
		Id:      m.ID,
		Topic:   m.Topic,
		Headers: m.Headers,
		Payload: m.Payload,
	}
}

// fromProto populates the Message from protobuf Message.
// This conversion isolates protobuf implementation details from the public API.
func (m *Message) fromProto(pbMsg *pb.Message) {
	m.Type = messageTypeFromProto(pbMsg.GetType())
	m.ID = pbMsg.GetId()
	m.Topic = pbMsg.GetTopic()
	m.Headers = nil
	if len(pbMsg.GetHeaders()) > 0 {
		m.Headers = pbMsg.GetHeaders()
	}
	m.Payload = nil
	if len(pbMsg.GetPayload()) > 0 {
		m.Payload = pbMsg.GetPayload()
	}
}

// messageTypeToProto converts MessageType to protobuf enum.
// Unknown types are sent as data so a peer never sees an undefined enum value.
func messageTypeToProto(mt MessageType) pb.MessageType {
	switch mt {
	case MessageTypeData:
		return pb.MessageType_MESSAGE_TYPE_DATA
	case MessageTypePing:
		return pb.MessageType_MESSAGE_TYPE_PING
	case MessageTypePong:
		return pb.MessageType_MESSAGE_TYPE_PONG
	default:
		return pb.MessageType_MESSAGE_TYPE_DATA
	}
}

// messageTypeFromProto converts protobuf enum to MessageType.
// Enum values added by a newer peer decode as data.
func messageTypeFromProto(pbType pb.MessageType) MessageType {
	switch pbType {
	case pb.MessageType_MESSAGE_TYPE_DATA:
		return MessageTypeData
	case pb.MessageType_MESSAGE_TYPE_PING:
		return MessageTypePing
	case pb.MessageType_MESSAGE_TYPE_PONG:
		return MessageTypePong
	default:
		return MessageTypeData
	}
}
