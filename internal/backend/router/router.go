package router

import (
	"context"

	"portfolio_social_service/internal/backend/app"
	"portfolio_social_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 註冊後端路由
func RegisterRoutes(r *fiber.App, h *Handler, chatWebsocket *app.ChatWebsocketHandler) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)

	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	r.Post("/chats", h.CreateChat)
	r.Get("/chats/:id", h.GetChat)
	r.Delete("/chats/:id", h.DeleteChat)
	r.Patch("/chats/:id/archive", h.ArchiveChat)
	r.Patch("/chats/:id/block", h.BlockChat)
	r.Post("/chats/:id/messages", h.SendMessage)

	r.Get("/notifications/unread_count", h.UnreadCount)
	r.Get("/notifications/preferences", h.GetPreferences)
	r.Put("/notifications/preferences", h.UpdatePreferences)
	r.Get("/notifications", h.ListNotifications)
	r.Patch("/notifications/read_all", h.MarkCategoryRead)
	r.Patch("/notifications/:id/read", h.MarkNotificationRead)
	r.Delete("/notifications/:id", h.DeleteNotification)
}
