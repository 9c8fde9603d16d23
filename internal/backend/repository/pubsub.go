package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"portfolio_social_service/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// Broadcaster 使用者頻道的跨連線派送
type Broadcaster interface {
	Publish(channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error
}

// RedisPubSub redis pub/sub 派送，多節點部署用
type RedisPubSub struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{
		client: client,
		ctx:    context.Background(),
	}
}

// Publish 將 message 序列化後，發布到指定 channel
func (r *RedisPubSub) Publish(channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.client.Publish(r.ctx, channel, data).Err()
}

// Subscribe 訂閱 channel，收到訊息後呼叫 handler 處理
// ctx 取消時關閉訂閱
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error {
	sub := r.client.Subscribe(r.ctx, channel)
	go func() {
		ch := sub.Channel()
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(m.Payload))
			case <-ctx.Done():
				logger.Log.Info(fmt.Sprintf("%s , sub close", channel))
				sub.Close()
				return
			}
		}
	}()
	return nil
}

// LocalPubSub 單機版派送，redis 未啟用時使用
type LocalPubSub struct {
	mu       sync.RWMutex
	channels map[string]map[int]func([]byte)
	nextID   int
}

// NewLocalPubSub create LocalPubSub
func NewLocalPubSub() *LocalPubSub {
	return &LocalPubSub{channels: make(map[string]map[int]func([]byte))}
}

// Publish 序列化後同步派送給所有訂閱者
func (l *LocalPubSub) Publish(channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	l.mu.RLock()
	handlers := make([]func([]byte), 0, len(l.channels[channel]))
	for _, h := range l.channels[channel] {
		handlers = append(handlers, h)
	}
	l.mu.RUnlock()
	for _, h := range handlers {
		h(data)
	}
	return nil
}

// Subscribe 訂閱 channel，ctx 取消時移除
func (l *LocalPubSub) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	if l.channels[channel] == nil {
		l.channels[channel] = make(map[int]func([]byte))
	}
	l.channels[channel][id] = handler
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		delete(l.channels[channel], id)
		if len(l.channels[channel]) == 0 {
			delete(l.channels, channel)
		}
		l.mu.Unlock()
	}()
	return nil
}
