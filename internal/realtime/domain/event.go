package domain

import "encoding/json"

// ClientEvent client to server event name
type ClientEvent string

const (
	// EventJoinChat client event join_chat
	EventJoinChat ClientEvent = "join_chat"
	// EventLeaveChat client event leave_chat
	EventLeaveChat ClientEvent = "leave_chat"
	// EventSendMessage client event send_message
	EventSendMessage ClientEvent = "send_message"
	// EventTyping client event typing
	EventTyping ClientEvent = "typing"
	// EventDeleteMessage client event delete_message
	EventDeleteMessage ClientEvent = "delete_message"
	// EventReadReceipt client event read_receipt
	EventReadReceipt ClientEvent = "read_receipt"
	// EventLastSeen client event last_seen
	EventLastSeen ClientEvent = "last_seen"
)

// ServerEvent server to client event name
type ServerEvent string

const (
	// EventNewMessage server event new_message
	EventNewMessage ServerEvent = "new_message"
	// EventMessagesDelivered server event messages_delivered
	EventMessagesDelivered ServerEvent = "messages_delivered"
	// EventMessagesRead server event messages_read
	EventMessagesRead ServerEvent = "messages_read"
	// EventQueuedMessages server event queued_messages
	EventQueuedMessages ServerEvent = "queued_messages"
	// EventMessageQueued server event message_queued
	EventMessageQueued ServerEvent = "message_queued"
	// EventSocketError server event socket_error
	EventSocketError ServerEvent = "socket_error"
	// EventConnectError server event connect_error
	EventConnectError ServerEvent = "connect_error"
	// EventUserTyping server event user_typing
	EventUserTyping ServerEvent = "user_typing"
	// EventUserStopTyping server event user_stop_typing
	EventUserStopTyping ServerEvent = "user_stop_typing"
)

// WSCommand client to server envelope
type WSCommand struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// WSEvent server to client envelope
type WSEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinChatPayload payload of join_chat / leave_chat
type JoinChatPayload struct {
	ChatID string `json:"chat_id"`
}

// TypingCommandPayload payload of client typing event
type TypingCommandPayload struct {
	ChatID string `json:"chat_id"`
	Typing bool   `json:"typing"`
}

// ReadReceiptPayload payload of client read_receipt event
type ReadReceiptPayload struct {
	ChatID     string   `json:"chat_id"`
	MessageIDs []string `json:"message_ids"`
}

// LastSeenPayload payload of client last_seen event
// 重連後回報水位，伺服器據此補發 queued_messages
type LastSeenPayload struct {
	ChatID    string `json:"chat_id"`
	Timestamp int64  `json:"timestamp"`
}

// DeleteMessagePayload payload of client delete_message event
type DeleteMessagePayload struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
}

// NewMessagePayload payload of server new_message event
type NewMessagePayload struct {
	ID         string   `json:"id"`
	ChatID     string   `json:"chat_id"`
	SenderID   string   `json:"sender_id"`
	SenderName string   `json:"sender_name"`
	Text       string   `json:"text"`
	Images     []string `json:"images,omitempty"`
	Timestamp  int64    `json:"timestamp"`
}

// MessagesDeliveredPayload payload of server messages_delivered event
type MessagesDeliveredPayload struct {
	ChatID     string   `json:"chat_id"`
	MessageIDs []string `json:"message_ids"`
	UserID     string   `json:"user_id"`
}

// MessagesReadPayload payload of server messages_read event
type MessagesReadPayload struct {
	ChatID     string   `json:"chat_id"`
	MessageIDs []string `json:"message_ids"`
	UserID     string   `json:"user_id"`
}

// QueuedMessagesPayload payload of server queued_messages event
type QueuedMessagesPayload struct {
	ChatID   string              `json:"chat_id"`
	Messages []NewMessagePayload `json:"messages"`
}

// MessageQueuedPayload payload of server message_queued event
type MessageQueuedPayload struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
}

// SocketErrorPayload payload of server socket_error / connect_error event
type SocketErrorPayload struct {
	Message string `json:"message"`
}

// TypingEventPayload payload of server user_typing / user_stop_typing event
type TypingEventPayload struct {
	ChatID   string `json:"chat_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
