package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"portfolio_social_service/internal/notification/domain"
	"portfolio_social_service/pkg/eventbus"
	errprocess "portfolio_social_service/pkg/err"
	"portfolio_social_service/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	m.Run()
}

type fakeNotificationAPI struct {
	count      int
	countErr   error
	items      []domain.Notification
	listErr    error
	markErr    error
	deleteErr  error
	markCalls  []string
	tabCalls   []domain.Category
	delCalls   []string
	countCalls int
}

func (f *fakeNotificationAPI) FetchUnreadCount(context.Context) (int, error) {
	f.countCalls++
	return f.count, f.countErr
}

func (f *fakeNotificationAPI) ListByCategory(_ context.Context, _ domain.Category) ([]domain.Notification, error) {
	return f.items, f.listErr
}

func (f *fakeNotificationAPI) MarkOneAsRead(_ context.Context, id string) error {
	f.markCalls = append(f.markCalls, id)
	return f.markErr
}

func (f *fakeNotificationAPI) MarkTabAsRead(_ context.Context, category domain.Category) error {
	f.tabCalls = append(f.tabCalls, category)
	return f.markErr
}

func (f *fakeNotificationAPI) DeleteOne(_ context.Context, id string) error {
	f.delCalls = append(f.delCalls, id)
	return f.deleteErr
}

func (f *fakeNotificationAPI) FetchPreferences(context.Context) (domain.Preferences, error) {
	return domain.Preferences{PushEnabled: true}, nil
}

func (f *fakeNotificationAPI) UpdatePreferences(context.Context, domain.Preferences) error {
	return nil
}

func loaded(t *testing.T, api *fakeNotificationAPI) (*NotificationUseCase, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.New()
	u := NewNotificationUseCase(api, bus)
	u.LoadCategory(context.Background(), domain.CategoryLikes)
	return u, bus
}

// 測試 401 靜默歸零，不視為錯誤
func TestRefreshUnauthorizedResetsToZero(t *testing.T) {
	api := &fakeNotificationAPI{count: 7}
	bus := eventbus.New()
	u := NewNotificationUseCase(api, bus)

	u.RefreshUnreadCount(context.Background())
	assert.Equal(t, 7, u.UnreadCount())

	api.countErr = errprocess.ErrUnauthorized
	u.RefreshUnreadCount(context.Background())
	assert.Equal(t, 0, u.UnreadCount())
}

// 測試 其他錯誤保留舊值
func TestRefreshOtherErrorKeepsStale(t *testing.T) {
	api := &fakeNotificationAPI{count: 5}
	bus := eventbus.New()
	u := NewNotificationUseCase(api, bus)

	u.RefreshUnreadCount(context.Background())
	assert.Equal(t, 5, u.UnreadCount())

	api.countErr = errors.New("network down")
	u.RefreshUnreadCount(context.Background())
	assert.Equal(t, 5, u.UnreadCount())
}

// 測試 登出同步清空，不需要任何網路呼叫
func TestLogoutResetsSynchronously(t *testing.T) {
	api := &fakeNotificationAPI{count: 3, items: []domain.Notification{{ID: "n1"}}}
	u, bus := loaded(t, api)
	u.RefreshUnreadCount(context.Background())
	assert.Equal(t, 3, u.UnreadCount())

	var badge []int
	eventbus.Subscribe(bus, domain.TopicUnreadChanged, func(c domain.UnreadChanged) {
		badge = append(badge, c.Count)
	})

	calls := api.countCalls
	u.SetUser(context.Background(), "")

	assert.Equal(t, 0, u.UnreadCount())
	assert.Empty(t, u.Items())
	assert.Equal(t, []int{0}, badge)
	assert.Equal(t, calls, api.countCalls)
}

// 測試 登入後重新拉取 badge
func TestLoginRepopulates(t *testing.T) {
	api := &fakeNotificationAPI{count: 4}
	bus := eventbus.New()
	u := NewNotificationUseCase(api, bus)

	u.SetUser(context.Background(), "user-1")
	assert.Equal(t, 4, u.UnreadCount())
}

// 測試 mark one 成功：樂觀翻轉並重拉計數
func TestMarkOneSuccess(t *testing.T) {
	api := &fakeNotificationAPI{items: []domain.Notification{{ID: "n1"}, {ID: "n2"}}}
	u, _ := loaded(t, api)

	api.count = 1
	u.MarkOneAsRead(context.Background(), "n1")

	items := u.Items()
	assert.True(t, items[0].Read)
	assert.False(t, items[1].Read)
	assert.Equal(t, []string{"n1"}, api.markCalls)
	assert.Equal(t, 1, u.UnreadCount())
}

// 測試 mark one 失敗：read flag 回滾
func TestMarkOneFailureRollsBack(t *testing.T) {
	api := &fakeNotificationAPI{items: []domain.Notification{{ID: "n1"}}, markErr: errors.New("boom")}
	u, _ := loaded(t, api)

	u.MarkOneAsRead(context.Background(), "n1")

	assert.False(t, u.Items()[0].Read)
}

// 測試 已讀或不存在的通知不打 API
func TestMarkOneNoop(t *testing.T) {
	api := &fakeNotificationAPI{items: []domain.Notification{{ID: "n1", Read: true}}}
	u, _ := loaded(t, api)

	u.MarkOneAsRead(context.Background(), "n1")
	u.MarkOneAsRead(context.Background(), "missing")

	assert.Empty(t, api.markCalls)
}

// 測試 mark tab 失敗：還原每筆原本的 read flag
func TestMarkTabFailureRollsBack(t *testing.T) {
	api := &fakeNotificationAPI{
		items:   []domain.Notification{{ID: "n1", Read: true}, {ID: "n2"}},
		markErr: errors.New("boom"),
	}
	u, _ := loaded(t, api)

	u.MarkTabAsRead(context.Background(), domain.CategoryLikes)

	items := u.Items()
	assert.True(t, items[0].Read)
	assert.False(t, items[1].Read)
}

// 測試 delete 成功：清單移除並重拉計數
func TestDeleteOneSuccess(t *testing.T) {
	api := &fakeNotificationAPI{items: []domain.Notification{{ID: "n1"}, {ID: "n2"}}}
	u, _ := loaded(t, api)

	u.DeleteOne(context.Background(), "n1")

	items := u.Items()
	assert.Len(t, items, 1)
	assert.Equal(t, "n2", items[0].ID)
	assert.Equal(t, []string{"n1"}, api.delCalls)
}

// 測試 delete 失敗：該筆插回原位
func TestDeleteOneFailureRollsBack(t *testing.T) {
	api := &fakeNotificationAPI{
		items:     []domain.Notification{{ID: "n1"}, {ID: "n2"}, {ID: "n3"}},
		deleteErr: errors.New("boom"),
	}
	u, _ := loaded(t, api)

	u.DeleteOne(context.Background(), "n2")

	items := u.Items()
	assert.Len(t, items, 3)
	assert.Equal(t, "n2", items[1].ID)
}
