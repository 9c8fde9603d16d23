package eventbus

import (
	"sync"
)

// Bus 進程內事件總線，取代瀏覽器端以字串為名的全域事件
// Publish 為同步派發，handler 內不可再阻塞
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]func(interface{})
}

// Subscription identifies one registered handler, use for Unsubscribe
type Subscription struct {
	topic string
	id    int
}

// New create Bus
func New() *Bus {
	return &Bus{
		handlers: make(map[string]map[int]func(interface{})),
	}
}

func (b *Bus) subscribe(topic string, fn func(interface{})) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.handlers[topic]; !ok {
		b.handlers[topic] = make(map[int]func(interface{}))
	}
	b.nextID++
	b.handlers[topic][b.nextID] = fn
	return Subscription{topic: topic, id: b.nextID}
}

func (b *Bus) publish(topic string, payload interface{}) {
	b.mu.RLock()
	subs := make([]func(interface{}), 0, len(b.handlers[topic]))
	for _, fn := range b.handlers[topic] {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(payload)
	}
}

// Unsubscribe remove one handler
func (b *Bus) Unsubscribe(s Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if m, ok := b.handlers[s.topic]; ok {
		delete(m, s.id)
		if len(m) == 0 {
			delete(b.handlers, s.topic)
		}
	}
}

// UnsubscribeAll remove all handlers of the topic
func (b *Bus) UnsubscribeAll(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, topic)
}

// SubscriberCount 回傳 topic 目前註冊的 handler 數
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}

// Topic 具型別的事件主題，payload 形狀在編譯期檢查
type Topic[T any] struct {
	name string
}

// NewTopic create typed topic
func NewTopic[T any](name string) Topic[T] {
	return Topic[T]{name: name}
}

// Name topic name
func (t Topic[T]) Name() string {
	return t.name
}

// Subscribe register typed handler on the bus
func Subscribe[T any](b *Bus, t Topic[T], h func(T)) Subscription {
	return b.subscribe(t.name, func(v interface{}) {
		if p, ok := v.(T); ok {
			h(p)
		}
	})
}

// Publish dispatch typed payload to all topic handlers
func Publish[T any](b *Bus, t Topic[T], payload T) {
	b.publish(t.name, payload)
}
