package router

import (
	"fmt"
	"io"
	"strings"
	"time"

	"portfolio_social_service/internal/backend/app"
	"portfolio_social_service/internal/backend/repository"
	messagedomain "portfolio_social_service/internal/message/domain"
	notifdomain "portfolio_social_service/internal/notification/domain"
	"portfolio_social_service/pkg"
	"portfolio_social_service/pkg/logger"
	"portfolio_social_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler 處理後端 HTTP 請求
type Handler struct {
	authUC  *app.AuthUseCase
	chatSvc *app.ChatService
	store   *repository.MemoryStore
}

// NewHandler 建立新的 Handler
func NewHandler(authUC *app.AuthUseCase, chatSvc *app.ChatService, store *repository.MemoryStore) *Handler {
	return &Handler{authUC: authUC, chatSvc: chatSvc, store: store}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register 註冊新使用者
func (h *Handler) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	user, err := h.authUC.Register(c.Context(), req.Username, req.Password)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"id": user.ID, "username": user.Username})
}

// Login 使用者登入，成功後寫入 auth cookie
func (h *Handler) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	jwt, user, err := h.authUC.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}
	c.Cookie(&fiber.Cookie{
		Name:     middlewares.CookieToken,
		Value:    jwt,
		Expires:  time.Now().Add(24 * time.Hour),
		HTTPOnly: true,
	})
	return c.JSON(fiber.Map{"token": jwt, "id": user.ID, "username": user.Username})
}

type createChatRequest struct {
	Participants []string `json:"participants"`
}

// CreateChat 建立聊天室，呼叫者自動加入成員
func (h *Handler) CreateChat(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	var req createChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	participants := req.Participants
	if !pkg.Contains(participants, userID) {
		participants = append(participants, userID)
	}
	chat := repository.ChatRecord{
		ID:           uuid.NewString(),
		Participants: participants,
		UpdatedAt:    time.Now().UnixMilli(),
	}
	h.store.UpsertChat(c.Context(), chat)
	return c.JSON(fiber.Map{"id": chat.ID})
}

// GetChat 查詢聊天室
func (h *Handler) GetChat(c *fiber.Ctx) error {
	chat, err := h.store.Chat(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	participants := make([]messagedomain.Participant, 0, len(chat.Participants))
	for _, p := range chat.Participants {
		u, err := h.store.UserByID(c.Context(), p)
		if err != nil {
			continue
		}
		participants = append(participants, messagedomain.Participant{ID: u.ID, Username: u.Username})
	}
	return c.JSON(messagedomain.Chat{
		ID:           chat.ID,
		Participants: participants,
		Archived:     chat.Archived,
		Blocked:      chat.Blocked,
		UpdatedAt:    chat.UpdatedAt,
	})
}

// DeleteChat 刪除聊天室
func (h *Handler) DeleteChat(c *fiber.Ctx) error {
	if err := h.store.DeleteChat(c.Context(), c.Params("id")); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "chat deleted"})
}

type flagRequest struct {
	Archived *bool `json:"archived"`
	Blocked  *bool `json:"blocked"`
}

// ArchiveChat archive 旗標
func (h *Handler) ArchiveChat(c *fiber.Ctx) error {
	var req flagRequest
	if err := c.BodyParser(&req); err != nil || req.Archived == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	if err := h.store.SetChatArchived(c.Context(), c.Params("id"), *req.Archived); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "ok"})
}

// BlockChat block 旗標
func (h *Handler) BlockChat(c *fiber.Ctx) error {
	var req flagRequest
	if err := c.BodyParser(&req); err != nil || req.Blocked == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	if err := h.store.SetChatBlocked(c.Context(), c.Params("id"), *req.Blocked); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "ok"})
}

// SendMessage multipart 上傳文字與圖片
// 圖片與 client 端相同限制：張數、大小、MIME
func (h *Handler) SendMessage(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	chatID := c.Params("id")
	text := strings.TrimSpace(c.FormValue("text"))

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "multipart form required"})
	}
	files := form.File["images"]
	if len(files) > messagedomain.MaxImagesPerSend {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "too many images"})
	}
	images := make([]string, 0, len(files))
	for _, f := range files {
		if !strings.HasPrefix(f.Header.Get("Content-Type"), "image/") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("%s is not an image", f.Filename)})
		}
		if f.Size > messagedomain.MaxImageBytes {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("%s exceeds size limit", f.Filename)})
		}
		// harness 不落地圖片內容，只記錄檔名
		src, err := f.Open()
		if err == nil {
			io.Copy(io.Discard, src)
			src.Close()
		}
		images = append(images, f.Filename)
	}
	if text == "" && len(images) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "empty message"})
	}

	msg, err := h.chatSvc.CreateMessage(c.Context(), chatID, userID, text, images)
	if err != nil {
		logger.Log.Warn("send message rejected", zap.String("chatID", chatID), zap.String("err", err.Error()))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message_id": msg.ID})
}

// UnreadCount 未讀通知數
func (h *Handler) UnreadCount(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	return c.JSON(fiber.Map{"count": h.store.UnreadCount(c.Context(), userID)})
}

// ListNotifications 依分頁查詢
func (h *Handler) ListNotifications(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	category := notifdomain.Category(c.Query("category"))
	items := h.store.NotificationsByCategory(c.Context(), userID, category)
	if items == nil {
		items = []notifdomain.Notification{}
	}
	return c.JSON(items)
}

// MarkNotificationRead 單筆已讀
func (h *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	if err := h.store.MarkNotificationRead(c.Context(), userID, c.Params("id")); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "ok"})
}

// MarkCategoryRead 整個分頁已讀
func (h *Handler) MarkCategoryRead(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	h.store.MarkCategoryRead(c.Context(), userID, notifdomain.Category(c.Query("category")))
	return c.JSON(fiber.Map{"message": "ok"})
}

// DeleteNotification 刪除單筆
func (h *Handler) DeleteNotification(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	if err := h.store.DeleteNotification(c.Context(), userID, c.Params("id")); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "ok"})
}

// GetPreferences 通知偏好
func (h *Handler) GetPreferences(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	return c.JSON(h.store.Preferences(c.Context(), userID))
}

// UpdatePreferences 通知偏好更新
func (h *Handler) UpdatePreferences(c *fiber.Ctx) error {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	var prefs notifdomain.Preferences
	if err := c.BodyParser(&prefs); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	h.store.SetPreferences(c.Context(), userID, prefs)
	return c.JSON(fiber.Map{"message": "ok"})
}
