package domain

import "portfolio_social_service/pkg/eventbus"

// UnreadChanged badge 數字變動
type UnreadChanged struct {
	Count int
}

// ListChanged 目前分頁清單變動
type ListChanged struct {
	Category Category
	Items    []Notification
}

var (
	TopicUnreadChanged = eventbus.NewTopic[UnreadChanged]("notification.unread_changed")
	TopicListChanged   = eventbus.NewTopic[ListChanged]("notification.list_changed")
)
