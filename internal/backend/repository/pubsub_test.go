package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"portfolio_social_service/pkg/logger"
	testtool "portfolio_social_service/pkg/test_tool"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	m.Run()
}

// 測試 local pub/sub：同步派送與 ctx 取消退訂
func TestLocalPubSub(t *testing.T) {
	ps := NewLocalPubSub()

	var got []string
	ctx, cancel := context.WithCancel(context.Background())
	assert.NoError(t, ps.Subscribe(ctx, "ch-1", func(payload []byte) {
		got = append(got, string(payload))
	}))

	assert.NoError(t, ps.Publish("ch-1", map[string]string{"k": "v"}))
	assert.Equal(t, []string{`{"k":"v"}`}, got)

	// 其他 channel 不受影響
	assert.NoError(t, ps.Publish("ch-2", "ignored"))
	assert.Len(t, got, 1)

	cancel()
	assert.Eventually(t, func() bool {
		ps.mu.RLock()
		defer ps.mu.RUnlock()
		return len(ps.channels["ch-1"]) == 0
	}, time.Second, 10*time.Millisecond)

	assert.NoError(t, ps.Publish("ch-1", "after cancel"))
	assert.Len(t, got, 1)
}

// 測試 redis pub/sub 與 local 版行為一致
func TestRedisPubSub(t *testing.T) {
	ctx := context.Background()
	redisContainer, redisHost, redisPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "redis:latest",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	defer redisContainer.Terminate(ctx)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", redisHost, redisPort)})
	defer client.Close()
	ps := NewRedisPubSub(client)

	received := make(chan []byte, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	assert.NoError(t, ps.Subscribe(subCtx, "chat:user:test", func(payload []byte) {
		received <- payload
	}))
	// 等訂閱建立
	time.Sleep(200 * time.Millisecond)

	assert.NoError(t, ps.Publish("chat:user:test", map[string]string{"event": "new_message"}))

	select {
	case payload := <-received:
		var out map[string]string
		assert.NoError(t, json.Unmarshal(payload, &out))
		assert.Equal(t, "new_message", out["event"])
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber did not receive message")
	}
}
