package app

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"portfolio_social_service/internal/message/domain"
	"portfolio_social_service/pkg/eventbus"
	"portfolio_social_service/pkg/logger"
)

// ChatAPI chat HTTP 介面
type ChatAPI interface {
	SendMessage(ctx context.Context, chatID, text string, images []domain.Attachment) (domain.SendMessageResult, error)
	FetchChat(ctx context.Context, chatID string) (domain.Chat, error)
	DeleteChat(ctx context.Context, chatID string) error
	ArchiveChat(ctx context.Context, chatID string, archived bool) error
	BlockChat(ctx context.Context, chatID string, blocked bool) error
}

// currentRoom Session 滿足此介面
type currentRoom interface {
	Current() string
}

// typingStopper 發送成功後立即送出 stop typing
type typingStopper interface {
	StopNow(chatID string)
}

// SendUseCase 樂觀發送流程：先發布 sending 泡泡再打 API
type SendUseCase struct {
	api     ChatAPI
	bus     *eventbus.Bus
	session currentRoom
	typing  typingStopper

	mu       sync.Mutex
	inFlight bool
}

// NewSendUseCase create send usecase
func NewSendUseCase(api ChatAPI, bus *eventbus.Bus, session currentRoom, typing typingStopper) *SendUseCase {
	return &SendUseCase{api: api, bus: bus, session: session, typing: typing}
}

// Execute 發送一則訊息，空白且無圖片或不在聊天室時為 no-op
// 同一時間只允許一筆發送中
func (u *SendUseCase) Execute(ctx context.Context, text string, images []domain.Attachment) {
	text = strings.TrimSpace(text)
	if text == "" && len(images) == 0 {
		return
	}
	chatID := u.session.Current()
	if chatID == "" {
		return
	}

	u.mu.Lock()
	if u.inFlight {
		u.mu.Unlock()
		return
	}
	u.inFlight = true
	u.mu.Unlock()
	defer func() {
		u.mu.Lock()
		u.inFlight = false
		u.mu.Unlock()
	}()

	tempID := newTempID()
	previews := make([]string, 0, len(images))
	for _, img := range images {
		previews = append(previews, img.Preview)
	}
	eventbus.Publish(u.bus, domain.TopicOptimisticMessage, domain.OptimisticMessage{
		TempID:    tempID,
		ChatID:    chatID,
		Text:      text,
		Images:    previews,
		Status:    domain.StatusSending,
		Timestamp: time.Now().UnixMilli(),
	})

	res, err := u.api.SendMessage(ctx, chatID, text, images)
	if err != nil {
		logger.Log.Error(fmt.Sprintf("send message chat(%s) temp(%s) failed: %v", chatID, tempID, err))
		eventbus.Publish(u.bus, domain.TopicMessageFailed, domain.MessageFailed{
			TempID: tempID,
			Status: domain.StatusFailed,
			Reason: err.Error(),
		})
		return
	}
	if res.MessageID == "" {
		// 沒有 durable id 就無法關聯泡泡，視同失敗
		logger.Log.Error(fmt.Sprintf("send message chat(%s) temp(%s): response missing message id", chatID, tempID))
		eventbus.Publish(u.bus, domain.TopicMessageFailed, domain.MessageFailed{
			TempID: tempID,
			Status: domain.StatusFailed,
			Reason: "response missing message id",
		})
		return
	}

	if u.typing != nil {
		u.typing.StopNow(chatID)
	}
	eventbus.Publish(u.bus, domain.TopicMessageConfirmed, domain.MessageConfirmed{
		TempID:    tempID,
		MessageID: res.MessageID,
		Status:    domain.StatusSent,
	})
}

// newTempID timestamp 加亂數，durable id 由伺服器指派
func newTempID() string {
	return fmt.Sprintf("%d%06d", time.Now().UnixMilli(), rand.Intn(1000000))
}
