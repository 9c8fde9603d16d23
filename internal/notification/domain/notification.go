package domain

import "encoding/json"

// Category notification tab
type Category string

const (
	// CategoryLikes 按讚通知
	CategoryLikes Category = "likes"
	// CategoryComments 留言通知
	CategoryComments Category = "comments"
	// CategoryFollows 追蹤通知
	CategoryFollows Category = "follows"
	// CategoryMessages 聊天訊息通知
	CategoryMessages Category = "messages"
)

// Notification 單筆通知
type Notification struct {
	ID        string          `json:"id"`
	Category  Category        `json:"category"`
	Read      bool            `json:"read"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// UnreadCountResult GET unread count 回應
type UnreadCountResult struct {
	Count int `json:"count"`
}

// Preferences 通知偏好，passthrough 給伺服器
type Preferences struct {
	EmailOnMessage bool `json:"email_on_message"`
	EmailOnFollow  bool `json:"email_on_follow"`
	PushEnabled    bool `json:"push_enabled"`
}
