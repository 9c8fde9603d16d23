package app

import (
	"fmt"
	"sync"
	"time"

	"portfolio_social_service/internal/realtime/domain"
	"portfolio_social_service/pkg/eventbus"
)

const (
	// DefaultDebounceInterval 本地打字靜默多久後送出 stop
	DefaultDebounceInterval = 1200 * time.Millisecond
	// DefaultRemoteExpiry 遠端打字者無更新多久後移除
	DefaultRemoteExpiry = 3000 * time.Millisecond
)

// LocalTyping 本地打字去抖動
// Idle → Typing 發 start；靜默 1200ms 或送出訊息時發 stop 回到 Idle
// Typing 中的每次按鍵只重置倒數，不重發 start
type LocalTyping struct {
	mu       sync.Mutex
	emitter  Emitter
	debounce time.Duration
	timer    *time.Timer
	chatID   string // "" 表示 Idle
}

// NewLocalTyping create LocalTyping，debounce <= 0 時用預設值
func NewLocalTyping(emitter Emitter, debounce time.Duration) *LocalTyping {
	if debounce <= 0 {
		debounce = DefaultDebounceInterval
	}
	return &LocalTyping{emitter: emitter, debounce: debounce}
}

// Keystroke 使用者在 chatID 輸入了一個按鍵
func (l *LocalTyping) Keystroke(chatID string) {
	if chatID == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.chatID != "" && l.chatID != chatID {
		// 換房時先結束舊房的打字狀態
		l.emitter.Emit(domain.EventTyping, domain.TypingCommandPayload{ChatID: l.chatID, Typing: false})
		l.chatID = ""
	}

	if l.chatID == "" {
		l.emitter.Emit(domain.EventTyping, domain.TypingCommandPayload{ChatID: chatID, Typing: true})
		l.chatID = chatID
	}

	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.debounce, l.expire)
}

func (l *LocalTyping) expire() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.chatID == "" {
		return
	}
	l.emitter.Emit(domain.EventTyping, domain.TypingCommandPayload{ChatID: l.chatID, Typing: false})
	l.chatID = ""
}

// StopNow 立即送出 stop，訊息送出成功後呼叫
func (l *LocalTyping) StopNow(chatID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.chatID == "" || l.chatID != chatID {
		return
	}
	if l.timer != nil {
		l.timer.Stop()
	}
	l.emitter.Emit(domain.EventTyping, domain.TypingCommandPayload{ChatID: chatID, Typing: false})
	l.chatID = ""
}

type remoteTyper struct {
	userID string
	name   string
	timer  *time.Timer
}

// RemoteTypers 遠端打字者集合
// 每個 user 至多出現一次，重複 start 只刷新 3000ms 視窗
type RemoteTypers struct {
	mu       sync.Mutex
	expiry   time.Duration
	order    []*remoteTyper // 依到達順序
	byID     map[string]*remoteTyper
	onChange func(names []string)
}

// NewRemoteTypers create RemoteTypers，expiry <= 0 時用預設值
func NewRemoteTypers(expiry time.Duration) *RemoteTypers {
	if expiry <= 0 {
		expiry = DefaultRemoteExpiry
	}
	return &RemoteTypers{
		expiry: expiry,
		byID:   make(map[string]*remoteTyper),
	}
}

// Bind 接上 bus 的 user_typing / user_stop_typing
func (r *RemoteTypers) Bind(bus *eventbus.Bus) {
	eventbus.Subscribe(bus, domain.TopicUserTyping, func(p domain.TypingEventPayload) {
		r.Start(p.UserID, p.Username)
	})
	eventbus.Subscribe(bus, domain.TopicUserStopTyping, func(p domain.TypingEventPayload) {
		r.Stop(p.UserID)
	})
}

// OnChange 註冊顯示層回呼，收到目前的名字列表
func (r *RemoteTypers) OnChange(fn func(names []string)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Start user 開始打字，已存在時只刷新過期視窗
func (r *RemoteTypers) Start(userID, name string) {
	if userID == "" {
		return
	}

	r.mu.Lock()
	if e, ok := r.byID[userID]; ok {
		e.timer.Reset(r.expiry)
		r.mu.Unlock()
		return
	}

	e := &remoteTyper{userID: userID, name: name}
	e.timer = time.AfterFunc(r.expiry, func() {
		r.Stop(userID)
	})
	r.byID[userID] = e
	r.order = append(r.order, e)
	names, fn := r.namesLocked()
	r.mu.Unlock()

	if fn != nil {
		fn(names)
	}
}

// Stop user 停止打字（顯式 stop 或過期）
func (r *RemoteTypers) Stop(userID string) {
	r.mu.Lock()
	e, ok := r.byID[userID]
	if !ok {
		r.mu.Unlock()
		return
	}
	e.timer.Stop()
	delete(r.byID, userID)
	for i, o := range r.order {
		if o == e {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	names, fn := r.namesLocked()
	r.mu.Unlock()

	if fn != nil {
		fn(names)
	}
}

// ActiveNames 目前打字者名字，依到達順序
func (r *RemoteTypers) ActiveNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names, _ := r.namesLocked()
	return names
}

func (r *RemoteTypers) namesLocked() ([]string, func(names []string)) {
	names := make([]string, 0, len(r.order))
	for _, e := range r.order {
		names = append(names, e.name)
	}
	return names, r.onChange
}

// FormatTypers 顯示文字
// 0 人空字串；1 人 "<name> is typing"；2 人 "<a> and <b> are typing"
// 3 人以上 "<first> and N others are typing"
func FormatTypers(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0] + " is typing"
	case 2:
		return names[0] + " and " + names[1] + " are typing"
	default:
		return fmt.Sprintf("%s and %d others are typing", names[0], len(names)-1)
	}
}
