package app

import (
	"testing"
	"time"

	"portfolio_social_service/internal/realtime/domain"

	"github.com/stretchr/testify/assert"
)

// 測試去抖動：間隔小於視窗的連續按鍵只發一次 start
func TestLocalTyping_Debounce(t *testing.T) {
	emitter := &fakeEmitter{connected: true}
	typing := NewLocalTyping(emitter, 120*time.Millisecond)

	// 三次按鍵，每次間隔 20ms，遠小於視窗
	typing.Keystroke("room-x")
	time.Sleep(20 * time.Millisecond)
	typing.Keystroke("room-x")
	time.Sleep(20 * time.Millisecond)
	typing.Keystroke("room-x")

	events := emitter.recorded()
	assert.Len(t, events, 1)
	assert.Equal(t, domain.TypingCommandPayload{ChatID: "room-x", Typing: true}, events[0].Payload)

	// 最後一次按鍵後靜默超過視窗才發 stop
	time.Sleep(200 * time.Millisecond)
	events = emitter.recorded()
	assert.Len(t, events, 2)
	assert.Equal(t, domain.TypingCommandPayload{ChatID: "room-x", Typing: false}, events[1].Payload)
}

// 測試按鍵重置倒數，視窗內不會提早發 stop
func TestLocalTyping_KeystrokeResetsCountdown(t *testing.T) {
	emitter := &fakeEmitter{connected: true}
	typing := NewLocalTyping(emitter, 100*time.Millisecond)

	typing.Keystroke("room-x")
	time.Sleep(70 * time.Millisecond)
	typing.Keystroke("room-x")
	time.Sleep(70 * time.Millisecond)

	// 距離最後一次按鍵僅 70ms，不應有 stop
	assert.Len(t, emitter.recorded(), 1)

	time.Sleep(80 * time.Millisecond)
	events := emitter.recorded()
	assert.Len(t, events, 2)
	assert.Equal(t, domain.TypingCommandPayload{ChatID: "room-x", Typing: false}, events[1].Payload)
}

// 測試送出訊息時立即 stop
func TestLocalTyping_StopNow(t *testing.T) {
	emitter := &fakeEmitter{connected: true}
	typing := NewLocalTyping(emitter, time.Hour)

	typing.Keystroke("room-x")
	typing.StopNow("room-x")

	events := emitter.recorded()
	assert.Len(t, events, 2)
	assert.Equal(t, domain.TypingCommandPayload{ChatID: "room-x", Typing: false}, events[1].Payload)

	// 已 Idle，重複 StopNow 為 no-op
	typing.StopNow("room-x")
	assert.Len(t, emitter.recorded(), 2)
}

// 測試預設視窗值
func TestLocalTyping_Defaults(t *testing.T) {
	typing := NewLocalTyping(&fakeEmitter{}, 0)
	assert.Equal(t, DefaultDebounceInterval, typing.debounce)

	typers := NewRemoteTypers(0)
	assert.Equal(t, DefaultRemoteExpiry, typers.expiry)
}

// 測試重複 start 不會讓同一 user 出現兩次
func TestRemoteTypers_DuplicateStart(t *testing.T) {
	typers := NewRemoteTypers(time.Hour)

	typers.Start("u1", "Alice")
	typers.Start("u1", "Alice")

	assert.Equal(t, []string{"Alice"}, typers.ActiveNames())
}

// 測試顯式 stop 立即移除
func TestRemoteTypers_ExplicitStop(t *testing.T) {
	typers := NewRemoteTypers(time.Hour)

	typers.Start("u1", "Alice")
	typers.Start("u2", "Bob")
	typers.Stop("u1")

	assert.Equal(t, []string{"Bob"}, typers.ActiveNames())
}

// 測試無更新時過期移除，刷新會延後過期
func TestRemoteTypers_Expiry(t *testing.T) {
	typers := NewRemoteTypers(150 * time.Millisecond)

	typers.Start("u1", "Alice")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"Alice"}, typers.ActiveNames(), "not expired yet")

	// 刷新視窗
	typers.Start("u1", "Alice")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"Alice"}, typers.ActiveNames(), "refresh postponed expiry")

	time.Sleep(120 * time.Millisecond)
	assert.Empty(t, typers.ActiveNames(), "expired after quiet window")
}

// 測試顯示文字規則
func TestFormatTypers(t *testing.T) {
	assert.Equal(t, "", FormatTypers(nil))
	assert.Equal(t, "Alice is typing", FormatTypers([]string{"Alice"}))
	assert.Equal(t, "Alice and Bob are typing", FormatTypers([]string{"Alice", "Bob"}))
	assert.Equal(t, "Alice and 2 others are typing", FormatTypers([]string{"Alice", "Bob", "Cara"}))
	assert.Equal(t, "Alice and 3 others are typing", FormatTypers([]string{"Alice", "Bob", "Cara", "Dan"}))
}

// 測試 OnChange 回呼收到最新名單
func TestRemoteTypers_OnChange(t *testing.T) {
	typers := NewRemoteTypers(time.Hour)

	var last []string
	typers.OnChange(func(names []string) { last = names })

	typers.Start("u1", "Alice")
	assert.Equal(t, []string{"Alice"}, last)

	typers.Start("u2", "Bob")
	assert.Equal(t, []string{"Alice", "Bob"}, last)

	typers.Stop("u1")
	assert.Equal(t, []string{"Bob"}, last)
}
