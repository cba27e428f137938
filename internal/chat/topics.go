package chat

// Topics used by the chat demo. The sender's name travels in the
// protocol.HeaderSender header.
const (
	TopicJoin  = "chat.join"
	TopicLeave = "chat.leave"
	TopicText  = "chat.text"
)
