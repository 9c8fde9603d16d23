package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"portfolio_social_service/internal/realtime/domain"
	"portfolio_social_service/pkg/config"
	"portfolio_social_service/pkg/eventbus"
	"portfolio_social_service/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventHandler raw handler for a named server event
type EventHandler func(payload json.RawMessage)

// Emitter 傳輸層對外最小介面，session 與 typing 依賴這個
type Emitter interface {
	Emit(event domain.ClientEvent, payload interface{}) error
	IsConnected() bool
}

// Transport owns the single websocket connection per session
// 明確建構、依賴注入，不使用全域單例
type Transport struct {
	cfg     config.SocketConfig
	bus     *eventbus.Bus
	tokenFn func() string

	mu            sync.Mutex
	conn          *websocket.Conn
	state         domain.ConnectionState
	handlers      map[string]map[int]EventHandler
	nextID        int
	closing       bool
	reconnectHook func()

	// 單一 goroutine 寫入 websocket，gorilla 不允許並發寫
	writeMu sync.Mutex
}

// NewTransport create Transport
// tokenFn 於每次連線時讀取 auth_token cookie 值
func NewTransport(cfg config.SocketConfig, bus *eventbus.Bus, tokenFn func() string) *Transport {
	if tokenFn == nil {
		tokenFn = func() string { return "" }
	}
	return &Transport{
		cfg:      cfg,
		bus:      bus,
		tokenFn:  tokenFn,
		state:    domain.StateDisconnected,
		handlers: make(map[string]map[int]EventHandler),
	}
}

// Connect idempotent，已連線或撥號中時直接回傳
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.conn != nil || t.state == domain.StateConnecting {
		t.mu.Unlock()
		return nil
	}
	t.closing = false
	ch, changed := t.setStateLocked(domain.StateConnecting, nil)
	t.mu.Unlock()
	t.publishState(ch, changed)

	conn, err := t.dial(ctx)
	if err != nil {
		t.mu.Lock()
		ch, changed = t.setStateLocked(domain.StateDisconnected, err)
		t.mu.Unlock()
		t.publishState(ch, changed)
		eventbus.Publish(t.bus, domain.TopicConnectError, domain.SocketErrorPayload{Message: err.Error()})
		return err
	}

	t.mu.Lock()
	t.conn = conn
	ch, changed = t.setStateLocked(domain.StateConnected, nil)
	t.mu.Unlock()
	t.publishState(ch, changed)

	go t.readPump(conn)
	return nil
}

func (t *Transport) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(t.cfg.URL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	q := u.Query()
	if tok := t.tokenFn(); tok != "" {
		// token 同時放 query 與 cookie，對齊後端 middleware 的兩種取法
		q.Set("auth", tok)
		header.Set("Cookie", "auth_token="+tok)
	}
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{
		HandshakeTimeout: t.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), header)
	return conn, err
}

// readPump 讀取伺服器推播並派發給註冊的 handler
func (t *Transport) readPump(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("websocket closed", zap.Error(err))
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			t.handleReadError(err)
			return
		}

		var ev domain.WSEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			logger.Log.Errorf("event unmarshal error:", err)
			continue
		}
		t.dispatch(ev)
	}
}

func (t *Transport) dispatch(ev domain.WSEvent) {
	t.mu.Lock()
	hs := make([]EventHandler, 0, len(t.handlers[ev.Event]))
	for _, h := range t.handlers[ev.Event] {
		hs = append(hs, h)
	}
	t.mu.Unlock()

	for _, h := range hs {
		h(ev.Payload)
	}
}

func (t *Transport) handleReadError(err error) {
	t.mu.Lock()
	wasClosing := t.closing
	t.conn = nil
	t.mu.Unlock()

	if wasClosing {
		t.mu.Lock()
		ch, changed := t.setStateLocked(domain.StateDisconnected, nil)
		t.mu.Unlock()
		t.publishState(ch, changed)
		return
	}
	t.reconnect(err)
}

// reconnect 固定間隔、有限次數
func (t *Transport) reconnect(cause error) {
	t.mu.Lock()
	ch, changed := t.setStateLocked(domain.StateReconnecting, cause)
	t.mu.Unlock()
	t.publishState(ch, changed)

	for attempt := 1; attempt <= t.cfg.ReconnectionAttempts; attempt++ {
		time.Sleep(t.cfg.ReconnectionDelay)

		t.mu.Lock()
		if t.closing {
			ch, changed := t.setStateLocked(domain.StateDisconnected, nil)
			t.mu.Unlock()
			t.publishState(ch, changed)
			return
		}
		t.mu.Unlock()

		conn, err := t.dial(context.Background())
		if err != nil {
			logger.Log.Warn("reconnect attempt failed",
				zap.Int("attempt", attempt), zap.Error(err))
			eventbus.Publish(t.bus, domain.TopicConnectError, domain.SocketErrorPayload{Message: err.Error()})
			continue
		}

		t.mu.Lock()
		t.conn = conn
		hook := t.reconnectHook
		ch, changed := t.setStateLocked(domain.StateConnected, nil)
		t.mu.Unlock()
		t.publishState(ch, changed)

		go t.readPump(conn)
		// 重連後補 join 與 last_seen 水位
		if hook != nil {
			hook()
		}
		return
	}

	t.mu.Lock()
	ch, changed = t.setStateLocked(domain.StateDisconnected, cause)
	t.mu.Unlock()
	t.publishState(ch, changed)
}

// SetReconnectHook 設定重連成功後的回呼
func (t *Transport) SetReconnectHook(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reconnectHook = fn
}

// On register handler for named server event, return id for Off
func (t *Transport) On(event domain.ServerEvent, h EventHandler) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	name := string(event)
	if _, ok := t.handlers[name]; !ok {
		t.handlers[name] = make(map[int]EventHandler)
	}
	t.nextID++
	t.handlers[name][t.nextID] = h
	return t.nextID
}

// Off unregister handler by id
func (t *Transport) Off(event domain.ServerEvent, id int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	name := string(event)
	if m, ok := t.handlers[name]; ok {
		delete(m, id)
		if len(m) == 0 {
			delete(t.handlers, name)
		}
	}
}

// RemoveAllListeners 清空 handler 註冊表，重連前後不殘留
func (t *Transport) RemoveAllListeners() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = make(map[string]map[int]EventHandler)
}

// Emit fire-and-forget，未連線時丟棄並記 warning，不排隊不重試
func (t *Transport) Emit(event domain.ClientEvent, payload interface{}) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		logger.Log.Warn("emit dropped, socket not connected",
			zap.String("event", string(event)))
		return nil
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := conn.WriteJSON(domain.WSCommand{Event: string(event), Payload: payload}); err != nil {
		logger.Log.Errorf("write message error:", err)
		return err
	}
	return nil
}

// IsConnected check transport state
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil && t.state == domain.StateConnected
}

// State current connection state
func (t *Transport) State() domain.ConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Disconnect 移除所有 listener、關閉連線、歸零 handle
// 之後的 Connect 會從乾淨狀態開始
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.closing = true
	t.handlers = make(map[string]map[int]EventHandler)
	conn := t.conn
	t.conn = nil
	ch, changed := t.setStateLocked(domain.StateDisconnected, nil)
	t.mu.Unlock()
	t.publishState(ch, changed)

	if conn != nil {
		if err := conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		); err != nil {
			logger.Log.Errorf("write close message error:", err)
		}
		conn.Close()
	}
}

// setStateLocked 呼叫端必須持有 t.mu，發布留給 publishState 在解鎖後執行
func (t *Transport) setStateLocked(next domain.ConnectionState, err error) (domain.ConnectionChange, bool) {
	if t.state == next {
		return domain.ConnectionChange{}, false
	}
	old := t.state
	t.state = next
	return domain.ConnectionChange{Old: old, New: next, Err: err}, true
}

func (t *Transport) publishState(ch domain.ConnectionChange, changed bool) {
	if changed {
		eventbus.Publish(t.bus, domain.TopicConnectionState, ch)
	}
}
