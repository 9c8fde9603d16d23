package domain

import "portfolio_social_service/pkg/eventbus"

// 伺服器推播經 Fanout 轉發到進程內 bus 的 typed topics
// topic 名稱與 wire event 名稱一致，payload 不做轉換
var (
	// TopicNewMessage relay of new_message
	TopicNewMessage = eventbus.NewTopic[NewMessagePayload](string(EventNewMessage))
	// TopicMessagesDelivered relay of messages_delivered
	TopicMessagesDelivered = eventbus.NewTopic[MessagesDeliveredPayload](string(EventMessagesDelivered))
	// TopicMessagesRead relay of messages_read
	TopicMessagesRead = eventbus.NewTopic[MessagesReadPayload](string(EventMessagesRead))
	// TopicQueuedMessages relay of queued_messages
	TopicQueuedMessages = eventbus.NewTopic[QueuedMessagesPayload](string(EventQueuedMessages))
	// TopicMessageQueued relay of message_queued
	TopicMessageQueued = eventbus.NewTopic[MessageQueuedPayload](string(EventMessageQueued))
	// TopicSocketError relay of socket_error
	TopicSocketError = eventbus.NewTopic[SocketErrorPayload](string(EventSocketError))
	// TopicConnectError relay of connect_error
	TopicConnectError = eventbus.NewTopic[SocketErrorPayload](string(EventConnectError))
	// TopicUserTyping relay of user_typing
	TopicUserTyping = eventbus.NewTopic[TypingEventPayload](string(EventUserTyping))
	// TopicUserStopTyping relay of user_stop_typing
	TopicUserStopTyping = eventbus.NewTopic[TypingEventPayload](string(EventUserStopTyping))

	// TopicConnectionState transport state transitions
	TopicConnectionState = eventbus.NewTopic[ConnectionChange]("connection_state")
)
