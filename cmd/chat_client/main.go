package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"portfolio_social_service/internal/localcache"
	messageapp "portfolio_social_service/internal/message/app"
	messagedomain "portfolio_social_service/internal/message/domain"
	messagerepo "portfolio_social_service/internal/message/repository"
	notifapp "portfolio_social_service/internal/notification/app"
	notifdomain "portfolio_social_service/internal/notification/domain"
	notifrepo "portfolio_social_service/internal/notification/repository"
	realtimeapp "portfolio_social_service/internal/realtime/app"
	realtimedomain "portfolio_social_service/internal/realtime/domain"
	"portfolio_social_service/pkg/config"
	"portfolio_social_service/pkg/eventbus"
	"portfolio_social_service/pkg/logger"
	"portfolio_social_service/pkg/middlewares"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatClient, config.EnvConfig.ChatClientLogPath)
	cfg := config.LoadConfig[config.ChatClient](config.EnvConfig.ChatClient, config.EnvConfig.ChatClientYAMLPath)

	username := flag.String("username", "", "login username")
	password := flag.String("password", "", "login password")
	flag.Parse()
	if *username == "" || *password == "" {
		log.Fatal("both -username and -password are required")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Fatalf("cookie jar: %v", err)
	}
	httpClient := &http.Client{Jar: jar, Timeout: cfg.API.Timeout}

	userID, token, err := login(httpClient, cfg.API.BaseURL, *username, *password)
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	fmt.Printf("logged in as %s (%s)\n", *username, userID)

	// 本地快取，使用者各自一個檔案
	cache, err := localcache.NewStore(filepath.Join(cfg.CacheDir, fmt.Sprintf("cache_%s.db", *username)))
	if err != nil {
		log.Fatalf("open local cache: %v", err)
	}
	defer cache.Close()
	if err := cache.Migrate(); err != nil {
		log.Fatalf("migrate local cache: %v", err)
	}

	bus := eventbus.New()
	transport := realtimeapp.NewTransport(cfg.Socket, bus, func() string { return token })
	realtimeapp.NewFanout(transport, bus)
	session := realtimeapp.NewSession(transport)
	session.Bind(bus, transport)

	localTyping := realtimeapp.NewLocalTyping(transport, cfg.Typing.DebounceInterval)
	remoteTypers := realtimeapp.NewRemoteTypers(cfg.Typing.RemoteExpiry)
	remoteTypers.Bind(bus)
	remoteTypers.OnChange(func(names []string) {
		if line := realtimeapp.FormatTypers(names); line != "" {
			fmt.Println(line)
		}
	})

	chatRepo := messagerepo.NewChatAPIRepository(cfg.API, httpClient)
	sendUC := messageapp.NewSendUseCase(chatRepo, bus, session, localTyping)

	notifRepo := notifrepo.NewNotificationAPIRepository(cfg.API, httpClient)
	notifUC := notifapp.NewNotificationUseCase(notifRepo, bus)

	printIncoming(bus)

	ctx := context.Background()
	if err := transport.Connect(ctx); err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer transport.Disconnect()

	notifUC.SetUser(ctx, userID)

	repl(ctx, session, sendUC, localTyping, notifUC, cache, userID)
}

// login 寫入 auth cookie 供後續 HTTP 與 websocket 握手共用
func login(client *http.Client, baseURL, username, password string) (string, string, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := client.Post(baseURL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("login status %d", resp.StatusCode)
	}
	var out struct {
		ID    string `json:"id"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", err
	}
	if u, err := url.Parse(baseURL); err == nil {
		client.Jar.SetCookies(u, []*http.Cookie{{Name: middlewares.CookieToken, Value: out.Token}})
	}
	return out.ID, out.Token, nil
}

// printIncoming 把伺服器事件印到畫面
func printIncoming(bus *eventbus.Bus) {
	eventbus.Subscribe(bus, realtimedomain.TopicNewMessage, func(m realtimedomain.NewMessagePayload) {
		fmt.Printf("[%s] %s: %s\n", m.ChatID, m.SenderName, m.Text)
	})
	eventbus.Subscribe(bus, realtimedomain.TopicQueuedMessages, func(q realtimedomain.QueuedMessagesPayload) {
		for _, m := range q.Messages {
			fmt.Printf("[%s][queued] %s: %s\n", m.ChatID, m.SenderName, m.Text)
		}
	})
	eventbus.Subscribe(bus, realtimedomain.TopicMessagesDelivered, func(p realtimedomain.MessagesDeliveredPayload) {
		fmt.Printf("[%s] delivered to %s\n", p.ChatID, p.UserID)
	})
	eventbus.Subscribe(bus, realtimedomain.TopicMessagesRead, func(p realtimedomain.MessagesReadPayload) {
		fmt.Printf("[%s] read by %s\n", p.ChatID, p.UserID)
	})
	eventbus.Subscribe(bus, realtimedomain.TopicSocketError, func(p realtimedomain.SocketErrorPayload) {
		fmt.Printf("socket error: %s\n", p.Message)
	})
	eventbus.Subscribe(bus, messagedomain.TopicMessageFailed, func(m messagedomain.MessageFailed) {
		fmt.Printf("send failed (%s): %s\n", m.TempID, m.Reason)
	})
	eventbus.Subscribe(bus, notifdomain.TopicUnreadChanged, func(c notifdomain.UnreadChanged) {
		fmt.Printf("unread notifications: %d\n", c.Count)
	})
}

func repl(
	ctx context.Context,
	session *realtimeapp.Session,
	sendUC *messageapp.SendUseCase,
	localTyping *realtimeapp.LocalTyping,
	notifUC *notifapp.NotificationUseCase,
	cache *localcache.Store,
	userID string,
) {
	fmt.Println("commands: /join <chat>  /leave  /delete <msg>  /like <post>  /emoji <e>  /refresh  /quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "/join "):
			session.JoinChat(strings.TrimSpace(strings.TrimPrefix(line, "/join ")))
		case line == "/leave":
			session.LeaveChat(session.Current())
		case strings.HasPrefix(line, "/delete "):
			session.DeleteMessage(strings.TrimSpace(strings.TrimPrefix(line, "/delete ")))
		case strings.HasPrefix(line, "/like "):
			postID := strings.TrimSpace(strings.TrimPrefix(line, "/like "))
			if err := cache.MarkPost(ctx, userID, postID, localcache.KindLiked, nowMilli()); err != nil {
				fmt.Printf("like: %v\n", err)
			}
		case strings.HasPrefix(line, "/emoji "):
			emoji := strings.TrimSpace(strings.TrimPrefix(line, "/emoji "))
			if err := cache.TouchEmoji(ctx, userID, emoji, nowMilli()); err != nil {
				fmt.Printf("emoji: %v\n", err)
			}
		case line == "/refresh":
			notifUC.RefreshUnreadCount(ctx)
		case line == "/quit":
			return
		default:
			// 任何輸入都算打字，送出前經過 debounce
			localTyping.Keystroke(session.Current())
			sendUC.Execute(ctx, line, nil)
		}
	}
}

func nowMilli() int64 {
	return time.Now().UnixMilli()
}
