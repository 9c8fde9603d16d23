package app

import (
	"encoding/json"
	"sync"

	"portfolio_social_service/internal/realtime/domain"
	"portfolio_social_service/pkg/eventbus"
	"portfolio_social_service/pkg/logger"
)

// Fanout 純轉發：固定一組伺服器事件解碼後原樣發布到進程內 bus
// 不過濾、不去重、不排序，去重由 UI 端依 id 自行處理
type Fanout struct {
	transport *Transport
	bus       *eventbus.Bus

	mu  sync.Mutex
	ids map[domain.ServerEvent]int
}

// NewFanout create Fanout and register all relays
// Disconnect 會清空 transport 的 handler 註冊表，
// 因此每次進入 connected 狀態都重新註冊一次
func NewFanout(transport *Transport, bus *eventbus.Bus) *Fanout {
	f := &Fanout{
		transport: transport,
		bus:       bus,
		ids:       make(map[domain.ServerEvent]int),
	}
	f.register()
	eventbus.Subscribe(bus, domain.TopicConnectionState, func(ch domain.ConnectionChange) {
		if ch.New == domain.StateConnected {
			f.register()
		}
	})
	return f
}

func (f *Fanout) register() {
	f.mu.Lock()
	defer f.mu.Unlock()

	// 先解除上一輪註冊，註冊表已被 Disconnect 清空時為 no-op
	for event, id := range f.ids {
		f.transport.Off(event, id)
	}
	f.ids = make(map[domain.ServerEvent]int)

	relay(f, domain.EventNewMessage, domain.TopicNewMessage)
	relay(f, domain.EventMessagesDelivered, domain.TopicMessagesDelivered)
	relay(f, domain.EventMessagesRead, domain.TopicMessagesRead)
	relay(f, domain.EventQueuedMessages, domain.TopicQueuedMessages)
	relay(f, domain.EventMessageQueued, domain.TopicMessageQueued)
	relay(f, domain.EventSocketError, domain.TopicSocketError)
	relay(f, domain.EventConnectError, domain.TopicConnectError)
	relay(f, domain.EventUserTyping, domain.TopicUserTyping)
	relay(f, domain.EventUserStopTyping, domain.TopicUserStopTyping)
}

// relay 單一事件的解碼與轉發，呼叫端必須持有 f.mu
func relay[T any](f *Fanout, event domain.ServerEvent, topic eventbus.Topic[T]) {
	f.ids[event] = f.transport.On(event, func(raw json.RawMessage) {
		var payload T
		if err := json.Unmarshal(raw, &payload); err != nil {
			logger.Log.Errorf("relay payload unmarshal error:", err)
			return
		}
		eventbus.Publish(f.bus, topic, payload)
	})
}
