package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"portfolio_social_service/internal/backend/repository"
	notifdomain "portfolio_social_service/internal/notification/domain"
	realtimedomain "portfolio_social_service/internal/realtime/domain"
	errprocess "portfolio_social_service/pkg/err"
	"portfolio_social_service/pkg/logger"

	"github.com/google/uuid"
)

// ChatService 訊息持久化與 per-user channel 派送
type ChatService struct {
	store  *repository.MemoryStore
	pubsub repository.Broadcaster

	mu     sync.RWMutex
	online map[string]bool
}

// NewChatService create ChatService
func NewChatService(store *repository.MemoryStore, pubsub repository.Broadcaster) *ChatService {
	return &ChatService{store: store, pubsub: pubsub, online: make(map[string]bool)}
}

// UserChannel pub/sub channel 命名
func UserChannel(userID string) string {
	return "chat:user:" + userID
}

// SetOnline websocket 連線狀態，message_queued 判斷用
func (s *ChatService) SetOnline(userID string, online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if online {
		s.online[userID] = true
	} else {
		delete(s.online, userID)
	}
}

// IsOnline 使用者是否有 websocket 連線
func (s *ChatService) IsOnline(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online[userID]
}

// EmitToUser 包裝成 server envelope 後發布到使用者頻道
func (s *ChatService) EmitToUser(userID string, event realtimedomain.ServerEvent, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Error(fmt.Sprintf("marshal %s payload: %v", event, err))
		return
	}
	env := realtimedomain.WSEvent{Event: string(event), Payload: raw}
	if err := s.pubsub.Publish(UserChannel(userID), env); err != nil {
		logger.Log.Error(fmt.Sprintf("publish %s to user(%s): %v", event, userID, err))
	}
}

// CreateMessage 持久化訊息並派送 new_message 給其他成員
// 在線成員回 messages_delivered 給發送者，離線成員回 message_queued，皆寫入通知
func (s *ChatService) CreateMessage(ctx context.Context, chatID, senderID, text string, images []string) (repository.StoredMessage, error) {
	chat, err := s.store.Chat(ctx, chatID)
	if err != nil {
		return repository.StoredMessage{}, err
	}
	if chat.Blocked {
		return repository.StoredMessage{}, errprocess.Set("chat is blocked")
	}
	if !s.store.IsParticipant(ctx, chatID, senderID) {
		return repository.StoredMessage{}, errprocess.Set("not a chat participant")
	}
	sender, err := s.store.UserByID(ctx, senderID)
	if err != nil {
		return repository.StoredMessage{}, err
	}

	msg := repository.StoredMessage{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      text,
		Images:    images,
		Timestamp: time.Now().UnixMilli(),
	}
	s.store.AppendMessage(ctx, msg)

	payload := realtimedomain.NewMessagePayload{
		ID:         msg.ID,
		ChatID:     msg.ChatID,
		SenderID:   msg.SenderID,
		SenderName: sender.Username,
		Text:       msg.Text,
		Images:     msg.Images,
		Timestamp:  msg.Timestamp,
	}
	for _, p := range chat.Participants {
		if p == senderID {
			continue
		}
		s.EmitToUser(p, realtimedomain.EventNewMessage, payload)
		if s.IsOnline(p) {
			// 在線成員視為已送達，回報發送者
			s.EmitToUser(senderID, realtimedomain.EventMessagesDelivered, realtimedomain.MessagesDeliveredPayload{
				ChatID:     chatID,
				MessageIDs: []string{msg.ID},
				UserID:     p,
			})
		} else {
			s.EmitToUser(senderID, realtimedomain.EventMessageQueued, realtimedomain.MessageQueuedPayload{
				ChatID:    chatID,
				MessageID: msg.ID,
			})
		}
		s.store.AddNotification(ctx, p, notifdomain.Notification{
			ID:        uuid.NewString(),
			Category:  notifdomain.CategoryMessages,
			Timestamp: msg.Timestamp,
			Payload:   mustJSON(map[string]string{"chat_id": chatID, "message_id": msg.ID, "sender": sender.Username}),
		})
	}
	return msg, nil
}

// QueuedSince watermark 之後的訊息，重連補發用
func (s *ChatService) QueuedSince(ctx context.Context, chatID string, since int64) realtimedomain.QueuedMessagesPayload {
	stored := s.store.MessagesSince(ctx, chatID, since)
	out := realtimedomain.QueuedMessagesPayload{ChatID: chatID, Messages: make([]realtimedomain.NewMessagePayload, 0, len(stored))}
	for _, m := range stored {
		name := ""
		if u, err := s.store.UserByID(ctx, m.SenderID); err == nil {
			name = u.Username
		}
		out.Messages = append(out.Messages, realtimedomain.NewMessagePayload{
			ID:         m.ID,
			ChatID:     m.ChatID,
			SenderID:   m.SenderID,
			SenderName: name,
			Text:       m.Text,
			Images:     m.Images,
			Timestamp:  m.Timestamp,
		})
	}
	return out
}

// DeleteMessage 僅發送者可刪除
func (s *ChatService) DeleteMessage(ctx context.Context, chatID, messageID, userID string) error {
	for _, m := range s.store.MessagesSince(ctx, chatID, 0) {
		if m.ID == messageID {
			if m.SenderID != userID {
				return errprocess.Set("only the sender can delete a message")
			}
			return s.store.MarkMessageDeleted(ctx, chatID, messageID)
		}
	}
	return errprocess.Set("message not found")
}

// RelayToParticipants 發給聊天室內其他成員
func (s *ChatService) RelayToParticipants(ctx context.Context, chatID, fromUserID string, event realtimedomain.ServerEvent, payload interface{}) {
	chat, err := s.store.Chat(ctx, chatID)
	if err != nil {
		logger.Log.Warn(fmt.Sprintf("relay %s chat(%s): %v", event, chatID, err))
		return
	}
	for _, p := range chat.Participants {
		if p == fromUserID {
			continue
		}
		s.EmitToUser(p, event, payload)
	}
}

func mustJSON(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
