package domain

import "portfolio_social_service/pkg/eventbus"

// UI 透過 event bus 訂閱發送流程
var (
	TopicOptimisticMessage  = eventbus.NewTopic[OptimisticMessage]("message.optimistic")
	TopicMessageConfirmed   = eventbus.NewTopic[MessageConfirmed]("message.confirmed")
	TopicMessageFailed      = eventbus.NewTopic[MessageFailed]("message.failed")
	TopicAttachmentRejected = eventbus.NewTopic[RejectedFile]("message.attachment_rejected")
)
