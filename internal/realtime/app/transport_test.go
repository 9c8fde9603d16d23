package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"portfolio_social_service/internal/realtime/domain"
	"portfolio_social_service/pkg/config"
	"portfolio_social_service/pkg/eventbus"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// pushServer 升級連線後推送給定事件，並統計升級次數
func pushServer(t *testing.T, push []domain.WSEvent, upgrades *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if upgrades != nil {
			atomic.AddInt32(upgrades, 1)
		}
		for _, ev := range push {
			b, _ := json.Marshal(ev)
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
		// 保持連線直到 client 關閉
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testSocketConfig(url string) config.SocketConfig {
	return config.SocketConfig{
		URL:                  url,
		ReconnectionDelay:    20 * time.Millisecond,
		ReconnectionAttempts: 3,
		HandshakeTimeout:     time.Second,
	}
}

// 測試 Connect 冪等：重複呼叫只建立一條連線
func TestTransport_ConnectIdempotent(t *testing.T) {
	var upgrades int32
	srv := pushServer(t, nil, &upgrades)
	defer srv.Close()

	bus := eventbus.New()
	transport := NewTransport(testSocketConfig(wsURL(srv)), bus, nil)
	defer transport.Disconnect()

	require.NoError(t, transport.Connect(context.Background()))
	require.NoError(t, transport.Connect(context.Background()))

	assert.True(t, transport.IsConnected())
	assert.Equal(t, int32(1), atomic.LoadInt32(&upgrades))
}

// 測試未連線時 emit 丟棄且不報錯
func TestTransport_EmitWhileDisconnected(t *testing.T) {
	bus := eventbus.New()
	transport := NewTransport(testSocketConfig("ws://127.0.0.1:1/ws"), bus, nil)

	err := transport.Emit(domain.EventSendMessage, domain.JoinChatPayload{ChatID: "room-x"})
	assert.NoError(t, err)
	assert.False(t, transport.IsConnected())
}

// 測試 Fanout 轉發：伺服器推播原樣出現在 bus 上
func TestTransport_FanoutRelay(t *testing.T) {
	payload, _ := json.Marshal(domain.NewMessagePayload{
		ID:       "m-1",
		ChatID:   "room-x",
		SenderID: "u2",
		Text:     "hi there",
	})
	srv := pushServer(t, []domain.WSEvent{
		{Event: string(domain.EventNewMessage), Payload: payload},
	}, nil)
	defer srv.Close()

	bus := eventbus.New()
	transport := NewTransport(testSocketConfig(wsURL(srv)), bus, nil)
	defer transport.Disconnect()
	NewFanout(transport, bus)

	got := make(chan domain.NewMessagePayload, 1)
	eventbus.Subscribe(bus, domain.TopicNewMessage, func(p domain.NewMessagePayload) {
		got <- p
	})

	require.NoError(t, transport.Connect(context.Background()))

	select {
	case p := <-got:
		assert.Equal(t, "m-1", p.ID)
		assert.Equal(t, "room-x", p.ChatID)
		assert.Equal(t, "hi there", p.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("new_message not relayed")
	}
}

// 測試 Disconnect 清空註冊表後重新 Connect，Fanout 轉發仍然生效
func TestTransport_FanoutRelayAfterDisconnectConnect(t *testing.T) {
	payload, _ := json.Marshal(domain.NewMessagePayload{
		ID:     "m-2",
		ChatID: "room-x",
		Text:   "after reconnect",
	})
	srv := pushServer(t, []domain.WSEvent{
		{Event: string(domain.EventNewMessage), Payload: payload},
	}, nil)
	defer srv.Close()

	bus := eventbus.New()
	transport := NewTransport(testSocketConfig(wsURL(srv)), bus, nil)
	defer transport.Disconnect()
	NewFanout(transport, bus)

	got := make(chan domain.NewMessagePayload, 2)
	eventbus.Subscribe(bus, domain.TopicNewMessage, func(p domain.NewMessagePayload) {
		got <- p
	})

	require.NoError(t, transport.Connect(context.Background()))
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("new_message not relayed on first connect")
	}

	transport.Disconnect()
	require.NoError(t, transport.Connect(context.Background()))

	select {
	case p := <-got:
		assert.Equal(t, "m-2", p.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("new_message not relayed after Disconnect+Connect")
	}
}

// 測試並發 Connect 只撥號一次
func TestTransport_ConcurrentConnect(t *testing.T) {
	var upgrades int32
	srv := pushServer(t, nil, &upgrades)
	defer srv.Close()

	bus := eventbus.New()
	transport := NewTransport(testSocketConfig(wsURL(srv)), bus, nil)
	defer transport.Disconnect()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, transport.Connect(context.Background()))
		}()
	}
	wg.Wait()

	assert.Eventually(t, transport.IsConnected, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&upgrades))
}

// 測試連線失敗時發布 connect_error
func TestTransport_ConnectError(t *testing.T) {
	bus := eventbus.New()
	transport := NewTransport(testSocketConfig("ws://127.0.0.1:1/ws"), bus, nil)

	errs := make(chan domain.SocketErrorPayload, 1)
	eventbus.Subscribe(bus, domain.TopicConnectError, func(p domain.SocketErrorPayload) {
		errs <- p
	})

	err := transport.Connect(context.Background())
	assert.Error(t, err)

	select {
	case p := <-errs:
		assert.NotEmpty(t, p.Message)
	case <-time.After(time.Second):
		t.Fatal("connect_error not published")
	}
}

// 測試 Disconnect 後 handle 歸零，可重新 Connect
func TestTransport_DisconnectThenReconnect(t *testing.T) {
	srv := pushServer(t, nil, nil)
	defer srv.Close()

	bus := eventbus.New()
	transport := NewTransport(testSocketConfig(wsURL(srv)), bus, nil)

	require.NoError(t, transport.Connect(context.Background()))
	transport.Disconnect()
	assert.False(t, transport.IsConnected())
	assert.Equal(t, domain.StateDisconnected, transport.State())

	require.NoError(t, transport.Connect(context.Background()))
	assert.True(t, transport.IsConnected())
	transport.Disconnect()
}

// 測試 On/Off 註冊表
func TestTransport_OnOff(t *testing.T) {
	srv := pushServer(t, nil, nil)
	defer srv.Close()

	bus := eventbus.New()
	transport := NewTransport(testSocketConfig(wsURL(srv)), bus, nil)
	defer transport.Disconnect()

	count := 0
	id := transport.On(domain.EventNewMessage, func(raw json.RawMessage) { count++ })
	transport.dispatch(domain.WSEvent{Event: string(domain.EventNewMessage)})
	assert.Equal(t, 1, count)

	transport.Off(domain.EventNewMessage, id)
	transport.dispatch(domain.WSEvent{Event: string(domain.EventNewMessage)})
	assert.Equal(t, 1, count)
}
