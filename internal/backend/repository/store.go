package repository

import (
	"context"
	"sort"
	"sync"

	notifdomain "portfolio_social_service/internal/notification/domain"
	"portfolio_social_service/pkg"
	errprocess "portfolio_social_service/pkg/err"
)

// User 開發後端的使用者
type User struct {
	ID           string
	Username     string
	PasswordHash string
}

// ChatRecord 聊天室
type ChatRecord struct {
	ID           string
	Participants []string
	Archived     bool
	Blocked      bool
	UpdatedAt    int64
}

// StoredMessage 已持久化訊息
type StoredMessage struct {
	ID        string   `json:"id"`
	ChatID    string   `json:"chat_id"`
	SenderID  string   `json:"sender_id"`
	Text      string   `json:"text"`
	Images    []string `json:"images"`
	Timestamp int64    `json:"timestamp"`
	Deleted   bool     `json:"-"`
}

// MemoryStore 開發後端的記憶體儲存
// 單機 harness 用，正式後端見各自的服務
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]User   // by id
	byUsername    map[string]string // username -> id
	chats         map[string]*ChatRecord
	messages      map[string][]*StoredMessage // by chat id
	lastSeen      map[string]map[string]int64 // user id -> chat id -> watermark
	readAt        map[string]map[string]int64 // user id -> chat id -> read watermark
	notifications map[string][]*notifdomain.Notification
	preferences   map[string]notifdomain.Preferences
}

// NewMemoryStore create memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]User),
		byUsername:    make(map[string]string),
		chats:         make(map[string]*ChatRecord),
		messages:      make(map[string][]*StoredMessage),
		lastSeen:      make(map[string]map[string]int64),
		readAt:        make(map[string]map[string]int64),
		notifications: make(map[string][]*notifdomain.Notification),
		preferences:   make(map[string]notifdomain.Preferences),
	}
}

// CreateUser username 重複時回錯誤
func (s *MemoryStore) CreateUser(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUsername[u.Username]; ok {
		return errprocess.Set("username already taken")
	}
	s.users[u.ID] = u
	s.byUsername[u.Username] = u.ID
	return nil
}

// UserByUsername 登入查詢
func (s *MemoryStore) UserByUsername(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[username]
	if !ok {
		return User{}, errprocess.Set("user not found")
	}
	return s.users[id], nil
}

// UserByID id 查詢
func (s *MemoryStore) UserByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, errprocess.Set("user not found")
	}
	return u, nil
}

// UpsertChat 建立或覆蓋聊天室
func (s *MemoryStore) UpsertChat(_ context.Context, c ChatRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[c.ID] = &c
}

// Chat 查詢聊天室
func (s *MemoryStore) Chat(_ context.Context, chatID string) (ChatRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[chatID]
	if !ok {
		return ChatRecord{}, errprocess.Set("chat not found")
	}
	return *c, nil
}

// DeleteChat 刪除聊天室與訊息
func (s *MemoryStore) DeleteChat(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[chatID]; !ok {
		return errprocess.Set("chat not found")
	}
	delete(s.chats, chatID)
	delete(s.messages, chatID)
	return nil
}

// SetChatArchived archive 旗標
func (s *MemoryStore) SetChatArchived(_ context.Context, chatID string, archived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return errprocess.Set("chat not found")
	}
	c.Archived = archived
	return nil
}

// SetChatBlocked block 旗標
func (s *MemoryStore) SetChatBlocked(_ context.Context, chatID string, blocked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return errprocess.Set("chat not found")
	}
	c.Blocked = blocked
	return nil
}

// IsParticipant 使用者是否在聊天室內
func (s *MemoryStore) IsParticipant(_ context.Context, chatID, userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[chatID]
	if !ok {
		return false
	}
	return pkg.Contains(c.Participants, userID)
}

// AppendMessage 寫入訊息並更新聊天室時間
func (s *MemoryStore) AppendMessage(_ context.Context, m StoredMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[m.ChatID] = append(s.messages[m.ChatID], &m)
	if c, ok := s.chats[m.ChatID]; ok {
		c.UpdatedAt = m.Timestamp
	}
}

// MarkMessageDeleted 軟刪除
func (s *MemoryStore) MarkMessageDeleted(_ context.Context, chatID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages[chatID] {
		if m.ID == messageID {
			m.Deleted = true
			return nil
		}
	}
	return errprocess.Set("message not found")
}

// MessagesSince 回傳 watermark 之後的訊息，舊到新
func (s *MemoryStore) MessagesSince(_ context.Context, chatID string, since int64) []StoredMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []StoredMessage
	for _, m := range s.messages[chatID] {
		if !m.Deleted && m.Timestamp > since {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// SetLastSeen 更新使用者在聊天室的 watermark
func (s *MemoryStore) SetLastSeen(_ context.Context, userID, chatID string, ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSeen[userID] == nil {
		s.lastSeen[userID] = make(map[string]int64)
	}
	if ts > s.lastSeen[userID][chatID] {
		s.lastSeen[userID][chatID] = ts
	}
}

// LastSeen 查詢 watermark
func (s *MemoryStore) LastSeen(_ context.Context, userID, chatID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen[userID][chatID]
}

// SetReadAt 已讀 watermark
func (s *MemoryStore) SetReadAt(_ context.Context, userID, chatID string, ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readAt[userID] == nil {
		s.readAt[userID] = make(map[string]int64)
	}
	if ts > s.readAt[userID][chatID] {
		s.readAt[userID][chatID] = ts
	}
}

// AddNotification 新增通知
func (s *MemoryStore) AddNotification(_ context.Context, userID string, n notifdomain.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[userID] = append(s.notifications[userID], &n)
}

// UnreadCount 未讀通知數
func (s *MemoryStore) UnreadCount(_ context.Context, userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications[userID] {
		if !n.Read {
			count++
		}
	}
	return count
}

// NotificationsByCategory 分頁清單，新到舊
func (s *MemoryStore) NotificationsByCategory(_ context.Context, userID string, category notifdomain.Category) []notifdomain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []notifdomain.Notification
	for _, n := range s.notifications[userID] {
		if n.Category == category {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

// MarkNotificationRead 單筆已讀
func (s *MemoryStore) MarkNotificationRead(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications[userID] {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return errprocess.Set("notification not found")
}

// MarkCategoryRead 整個分頁已讀
func (s *MemoryStore) MarkCategoryRead(_ context.Context, userID string, category notifdomain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications[userID] {
		if n.Category == category {
			n.Read = true
		}
	}
}

// DeleteNotification 刪除單筆
func (s *MemoryStore) DeleteNotification(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notifications[userID]
	for i, n := range list {
		if n.ID == id {
			s.notifications[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return errprocess.Set("notification not found")
}

// Preferences 偏好查詢
func (s *MemoryStore) Preferences(_ context.Context, userID string) notifdomain.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.preferences[userID]
}

// SetPreferences 偏好更新
func (s *MemoryStore) SetPreferences(_ context.Context, userID string, prefs notifdomain.Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferences[userID] = prefs
}
