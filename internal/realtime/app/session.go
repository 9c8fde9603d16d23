package app

import (
	"sync"

	"portfolio_social_service/internal/realtime/domain"
	"portfolio_social_service/pkg/eventbus"
)

// Session tracks which single chat room is currently joined
// 伺服器端房間成員的客戶端鏡像，至多一間
type Session struct {
	mu        sync.Mutex
	transport Emitter
	current   string
	lastSeen  int64
}

// NewSession create Session
func NewSession(transport Emitter) *Session {
	return &Session{transport: transport}
}

// Bind 訂閱 new_message 以維護 last_seen 水位，並掛上重連回呼
// 人在房內收到的訊息視為已讀，立即回報 read_receipt
func (s *Session) Bind(bus *eventbus.Bus, t *Transport) {
	eventbus.Subscribe(bus, domain.TopicNewMessage, func(p domain.NewMessagePayload) {
		s.mu.Lock()
		if p.Timestamp > s.lastSeen {
			s.lastSeen = p.Timestamp
		}
		current := s.current
		s.mu.Unlock()

		if current != "" && p.ChatID == current {
			s.transport.Emit(domain.EventReadReceipt, domain.ReadReceiptPayload{
				ChatID:     p.ChatID,
				MessageIDs: []string{p.ID},
			})
		}
	})
	t.SetReconnectHook(s.Rejoin)
}

// JoinChat join room, idempotent
// 未連線 no-op；重複 join 同一間 no-op；換房先離開舊房
func (s *Session) JoinChat(chatID string) {
	if chatID == "" || !s.transport.IsConnected() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == chatID {
		return
	}
	if s.current != "" {
		s.transport.Emit(domain.EventLeaveChat, domain.JoinChatPayload{ChatID: s.current})
	}
	s.transport.Emit(domain.EventJoinChat, domain.JoinChatPayload{ChatID: chatID})
	s.current = chatID
}

// LeaveChat leave room, no-op unless chatID is the current room
func (s *Session) LeaveChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chatID == "" || s.current != chatID {
		return
	}
	s.transport.Emit(domain.EventLeaveChat, domain.JoinChatPayload{ChatID: chatID})
	s.current = ""
}

// DeleteMessage 要求伺服器刪除目前聊天室內的訊息
// 不在任何聊天室時 no-op
func (s *Session) DeleteMessage(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if messageID == "" || s.current == "" {
		return
	}
	s.transport.Emit(domain.EventDeleteMessage, domain.DeleteMessagePayload{
		ChatID:    s.current,
		MessageID: messageID,
	})
}

// Current currently joined room id, "" when none
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Rejoin 重連後重新 join 原房間並回報 last_seen 水位
// 伺服器據此透過 queued_messages 補發斷線期間的訊息
func (s *Session) Rejoin() {
	s.mu.Lock()
	current := s.current
	lastSeen := s.lastSeen
	s.mu.Unlock()

	if current == "" {
		return
	}
	s.transport.Emit(domain.EventJoinChat, domain.JoinChatPayload{ChatID: current})
	s.transport.Emit(domain.EventLastSeen, domain.LastSeenPayload{ChatID: current, Timestamp: lastSeen})
}
