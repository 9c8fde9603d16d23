package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"portfolio_social_service/internal/notification/domain"
	"portfolio_social_service/pkg/eventbus"
	errprocess "portfolio_social_service/pkg/err"
	"portfolio_social_service/pkg/logger"
)

// NotificationAPI notification HTTP 介面
type NotificationAPI interface {
	FetchUnreadCount(ctx context.Context) (int, error)
	ListByCategory(ctx context.Context, category domain.Category) ([]domain.Notification, error)
	MarkOneAsRead(ctx context.Context, id string) error
	MarkTabAsRead(ctx context.Context, category domain.Category) error
	DeleteOne(ctx context.Context, id string) error
	FetchPreferences(ctx context.Context) (domain.Preferences, error)
	UpdatePreferences(ctx context.Context, prefs domain.Preferences) error
}

// NotificationUseCase badge 與分頁清單的同步邏輯
// 樂觀變更失敗時回滾本地狀態，成功後以伺服器計數重新校正
type NotificationUseCase struct {
	api NotificationAPI
	bus *eventbus.Bus

	mu       sync.Mutex
	userID   string
	count    int
	category domain.Category
	items    []domain.Notification
	pending  map[string]bool // 每筆通知同時僅允許一個進行中的變更
}

// NewNotificationUseCase create notification usecase
func NewNotificationUseCase(api NotificationAPI, bus *eventbus.Bus) *NotificationUseCase {
	return &NotificationUseCase{api: api, bus: bus, pending: make(map[string]bool)}
}

// SetUser 登出(空字串)同步清空，登入後重拉 badge
func (u *NotificationUseCase) SetUser(ctx context.Context, userID string) {
	u.mu.Lock()
	u.userID = userID
	if userID == "" {
		u.count = 0
		u.items = nil
		cat := u.category
		u.mu.Unlock()
		eventbus.Publish(u.bus, domain.TopicUnreadChanged, domain.UnreadChanged{Count: 0})
		eventbus.Publish(u.bus, domain.TopicListChanged, domain.ListChanged{Category: cat, Items: nil})
		return
	}
	u.mu.Unlock()
	u.RefreshUnreadCount(ctx)
}

// UnreadCount 目前 badge 數字
func (u *NotificationUseCase) UnreadCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.count
}

// Items 目前分頁清單快照
func (u *NotificationUseCase) Items() []domain.Notification {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]domain.Notification, len(u.items))
	copy(out, u.items)
	return out
}

// RefreshUnreadCount 拉取伺服器計數
// 401 視為未登入，靜默歸零；其他錯誤記 log 並保留舊值
func (u *NotificationUseCase) RefreshUnreadCount(ctx context.Context) {
	count, err := u.api.FetchUnreadCount(ctx)
	if err != nil {
		if errors.Is(err, errprocess.ErrUnauthorized) {
			u.setCount(0)
			return
		}
		logger.Log.Error(fmt.Sprintf("refresh unread count failed: %v", err))
		return
	}
	u.setCount(count)
}

// LoadCategory 切換分頁並載入清單
func (u *NotificationUseCase) LoadCategory(ctx context.Context, category domain.Category) {
	items, err := u.api.ListByCategory(ctx, category)
	if err != nil {
		if errors.Is(err, errprocess.ErrUnauthorized) {
			u.setItems(category, nil)
			return
		}
		logger.Log.Error(fmt.Sprintf("load notifications category(%s) failed: %v", category, err))
		return
	}
	u.setItems(category, items)
}

// MarkOneAsRead 樂觀翻轉 read flag，失敗回滾，成功後重拉計數
func (u *NotificationUseCase) MarkOneAsRead(ctx context.Context, id string) {
	u.mu.Lock()
	if u.pending[id] {
		u.mu.Unlock()
		return
	}
	idx := u.indexOfLocked(id)
	if idx < 0 || u.items[idx].Read {
		u.mu.Unlock()
		return
	}
	u.pending[id] = true
	u.items[idx].Read = true
	cat, items := u.category, u.snapshotLocked()
	u.mu.Unlock()
	eventbus.Publish(u.bus, domain.TopicListChanged, domain.ListChanged{Category: cat, Items: items})

	err := u.api.MarkOneAsRead(ctx, id)

	u.mu.Lock()
	delete(u.pending, id)
	if err != nil {
		if idx := u.indexOfLocked(id); idx >= 0 {
			u.items[idx].Read = false
		}
		cat, items := u.category, u.snapshotLocked()
		u.mu.Unlock()
		logger.Log.Error(fmt.Sprintf("mark notification(%s) read failed: %v", id, err))
		eventbus.Publish(u.bus, domain.TopicListChanged, domain.ListChanged{Category: cat, Items: items})
		return
	}
	u.mu.Unlock()
	u.RefreshUnreadCount(ctx)
}

// MarkTabAsRead 樂觀翻轉整個分頁，失敗還原原本的 read flags
func (u *NotificationUseCase) MarkTabAsRead(ctx context.Context, category domain.Category) {
	u.mu.Lock()
	before := make(map[string]bool, len(u.items))
	for i := range u.items {
		before[u.items[i].ID] = u.items[i].Read
		u.items[i].Read = true
	}
	items := u.snapshotLocked()
	u.mu.Unlock()
	eventbus.Publish(u.bus, domain.TopicListChanged, domain.ListChanged{Category: category, Items: items})

	err := u.api.MarkTabAsRead(ctx, category)

	if err != nil {
		u.mu.Lock()
		for i := range u.items {
			if read, ok := before[u.items[i].ID]; ok {
				u.items[i].Read = read
			}
		}
		items := u.snapshotLocked()
		u.mu.Unlock()
		logger.Log.Error(fmt.Sprintf("mark tab(%s) read failed: %v", category, err))
		eventbus.Publish(u.bus, domain.TopicListChanged, domain.ListChanged{Category: category, Items: items})
		return
	}
	u.RefreshUnreadCount(ctx)
}

// DeleteOne 樂觀移除，失敗把該筆插回原位
func (u *NotificationUseCase) DeleteOne(ctx context.Context, id string) {
	u.mu.Lock()
	if u.pending[id] {
		u.mu.Unlock()
		return
	}
	idx := u.indexOfLocked(id)
	if idx < 0 {
		u.mu.Unlock()
		return
	}
	u.pending[id] = true
	removed := u.items[idx]
	u.items = append(u.items[:idx], u.items[idx+1:]...)
	cat, items := u.category, u.snapshotLocked()
	u.mu.Unlock()
	eventbus.Publish(u.bus, domain.TopicListChanged, domain.ListChanged{Category: cat, Items: items})

	err := u.api.DeleteOne(ctx, id)

	u.mu.Lock()
	delete(u.pending, id)
	if err != nil {
		if idx > len(u.items) {
			idx = len(u.items)
		}
		u.items = append(u.items[:idx], append([]domain.Notification{removed}, u.items[idx:]...)...)
		cat, items := u.category, u.snapshotLocked()
		u.mu.Unlock()
		logger.Log.Error(fmt.Sprintf("delete notification(%s) failed: %v", id, err))
		eventbus.Publish(u.bus, domain.TopicListChanged, domain.ListChanged{Category: cat, Items: items})
		return
	}
	u.mu.Unlock()
	u.RefreshUnreadCount(ctx)
}

// Preferences 偏好設定 passthrough
func (u *NotificationUseCase) Preferences(ctx context.Context) (domain.Preferences, error) {
	return u.api.FetchPreferences(ctx)
}

// UpdatePreferences 偏好設定 passthrough
func (u *NotificationUseCase) UpdatePreferences(ctx context.Context, prefs domain.Preferences) error {
	return u.api.UpdatePreferences(ctx, prefs)
}

func (u *NotificationUseCase) setCount(count int) {
	u.mu.Lock()
	changed := u.count != count
	u.count = count
	u.mu.Unlock()
	if changed {
		eventbus.Publish(u.bus, domain.TopicUnreadChanged, domain.UnreadChanged{Count: count})
	}
}

func (u *NotificationUseCase) setItems(category domain.Category, items []domain.Notification) {
	u.mu.Lock()
	u.category = category
	u.items = items
	snapshot := u.snapshotLocked()
	u.mu.Unlock()
	eventbus.Publish(u.bus, domain.TopicListChanged, domain.ListChanged{Category: category, Items: snapshot})
}

func (u *NotificationUseCase) indexOfLocked(id string) int {
	for i := range u.items {
		if u.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (u *NotificationUseCase) snapshotLocked() []domain.Notification {
	out := make([]domain.Notification, len(u.items))
	copy(out, u.items)
	return out
}
