package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	realtimedomain "portfolio_social_service/internal/realtime/domain"
	"portfolio_social_service/pkg/logger"
	"portfolio_social_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// ChatWebsocketHandler websocket 連線的事件迴圈
type ChatWebsocketHandler struct {
	chatSvc *ChatService
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(chatSvc *ChatService) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{chatSvc: chatSvc}
}

// wsSession 單一連線的狀態
// room 會被 read loop 與 pubsub goroutine 同時存取
type wsSession struct {
	conn     *websocket.Conn
	userID   string
	username string

	mu      sync.Mutex
	room    string
	writeMu sync.Mutex
}

func (s *wsSession) currentRoom() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

func (s *wsSession) setRoom(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.room = room
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	userID, _ := conn.Locals(middlewares.TokenUserID).(string)
	username, _ := conn.Locals(middlewares.TokenUsername).(string)
	logger.Log.Info("websocket handle", zap.String("userID", userID), zap.String("username", username))

	sess := &wsSession{conn: conn, userID: userID, username: username}

	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())

	h.chatSvc.SetOnline(userID, true)
	defer func() {
		ticker.Stop()
		logger.Log.Info("websocket close", zap.String("userID", userID))
		h.chatSvc.SetOnline(userID, false)
		conn.Close()
		cancel()
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(appData string) error {
		logger.Log.Infof("Received PONG:", appData)
		return nil
	})

	//啟用sub訂閱自己的訊息
	h.chatSvc.pubsub.Subscribe(ctxClose, UserChannel(userID), func(payload []byte) {
		h.forward(sess, payload)
	})

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				sess.writeMu.Lock()
				err := conn.WriteMessage(websocket.PingMessage, []byte("ping message"))
				sess.writeMu.Unlock()
				if err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Infof("Connection closed:", err)
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			h.sendError(sess, "unknown message type")
			continue
		}
		h.execWebsocketAction(ctx, sess, message)
	}
}

// forward 派送訂閱到的事件，new_message 僅轉送目前所在聊天室
func (h *ChatWebsocketHandler) forward(sess *wsSession, payload []byte) {
	var env realtimedomain.WSEvent
	if err := json.Unmarshal(payload, &env); err != nil {
		logger.Log.Errorf("unmarshal pubsub payload:", err)
		return
	}
	if env.Event == string(realtimedomain.EventNewMessage) {
		var msg realtimedomain.NewMessagePayload
		if err := json.Unmarshal(env.Payload, &msg); err != nil || msg.ChatID != sess.currentRoom() {
			return
		}
	}
	h.send(sess, env)
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx context.Context, sess *wsSession, msg []byte) {
	var cmd realtimedomain.WSCommand
	if err := json.Unmarshal(msg, &cmd); err != nil {
		h.sendError(sess, "malformed command")
		return
	}
	raw, err := json.Marshal(cmd.Payload)
	if err != nil {
		h.sendError(sess, "malformed payload")
		return
	}

	switch realtimedomain.ClientEvent(cmd.Event) {
	//加入聊天室，重複加入同室為 no-op
	case realtimedomain.EventJoinChat:
		var p realtimedomain.JoinChatPayload
		if err := json.Unmarshal(raw, &p); err != nil || p.ChatID == "" {
			h.sendError(sess, "join_chat requires chat_id")
			return
		}
		if sess.currentRoom() == p.ChatID {
			return
		}
		sess.setRoom(p.ChatID)
		since := h.chatSvc.store.LastSeen(ctx, sess.userID, p.ChatID)
		h.sendEvent(sess, realtimedomain.EventQueuedMessages, h.chatSvc.QueuedSince(ctx, p.ChatID, since))

	//離開聊天室，chat_id 不符則忽略
	case realtimedomain.EventLeaveChat:
		var p realtimedomain.JoinChatPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			h.sendError(sess, "malformed leave_chat payload")
			return
		}
		if sess.currentRoom() == p.ChatID {
			sess.setRoom("")
		}

	//typing 轉送給其他成員
	case realtimedomain.EventTyping:
		var p realtimedomain.TypingCommandPayload
		if err := json.Unmarshal(raw, &p); err != nil || p.ChatID == "" {
			h.sendError(sess, "malformed typing payload")
			return
		}
		event := realtimedomain.EventUserStopTyping
		if p.Typing {
			event = realtimedomain.EventUserTyping
		}
		h.chatSvc.RelayToParticipants(ctx, p.ChatID, sess.userID, event, realtimedomain.TypingEventPayload{
			ChatID:   p.ChatID,
			UserID:   sess.userID,
			Username: sess.username,
		})

	//已讀回報，廣播 messages_read
	case realtimedomain.EventReadReceipt:
		var p realtimedomain.ReadReceiptPayload
		if err := json.Unmarshal(raw, &p); err != nil || p.ChatID == "" {
			h.sendError(sess, "malformed read_receipt payload")
			return
		}
		h.chatSvc.store.SetReadAt(ctx, sess.userID, p.ChatID, time.Now().UnixMilli())
		h.chatSvc.RelayToParticipants(ctx, p.ChatID, sess.userID, realtimedomain.EventMessagesRead, realtimedomain.MessagesReadPayload{
			ChatID:     p.ChatID,
			MessageIDs: p.MessageIDs,
			UserID:     sess.userID,
		})

	//重連水位回報，補發遺漏訊息
	case realtimedomain.EventLastSeen:
		var p realtimedomain.LastSeenPayload
		if err := json.Unmarshal(raw, &p); err != nil || p.ChatID == "" {
			h.sendError(sess, "malformed last_seen payload")
			return
		}
		h.chatSvc.store.SetLastSeen(ctx, sess.userID, p.ChatID, p.Timestamp)
		h.sendEvent(sess, realtimedomain.EventQueuedMessages, h.chatSvc.QueuedSince(ctx, p.ChatID, p.Timestamp))

	//刪除訊息，僅發送者可刪
	case realtimedomain.EventDeleteMessage:
		var p realtimedomain.DeleteMessagePayload
		if err := json.Unmarshal(raw, &p); err != nil || p.MessageID == "" {
			h.sendError(sess, "malformed delete_message payload")
			return
		}
		if err := h.chatSvc.DeleteMessage(ctx, p.ChatID, p.MessageID, sess.userID); err != nil {
			h.sendError(sess, err.Error())
		}

	default:
		h.sendError(sess, fmt.Sprintf("unknown event %q", cmd.Event))
	}
}

func (h *ChatWebsocketHandler) sendEvent(sess *wsSession, event realtimedomain.ServerEvent, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("marshal event payload:", err)
		return
	}
	h.send(sess, realtimedomain.WSEvent{Event: string(event), Payload: raw})
}

func (h *ChatWebsocketHandler) send(sess *wsSession, env realtimedomain.WSEvent) {
	b, _ := json.Marshal(env)
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	if err := sess.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}

func (h *ChatWebsocketHandler) sendError(sess *wsSession, errorMsg string) {
	logger.Log.Error("websocket err", zap.String("UserID", sess.userID), zap.String("err", errorMsg))
	h.sendEvent(sess, realtimedomain.EventSocketError, realtimedomain.SocketErrorPayload{Message: errorMsg})
}
