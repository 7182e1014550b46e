package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/middleware"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	nrpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/newrelic"
	"github.com/piresc/nebengjek-dispatch/services/chat"
	httpHandler "github.com/piresc/nebengjek-dispatch/services/chat/handler/http"
)

// Handler combines all handlers for ride chat
type Handler struct {
	chatHTTP *httpHandler.ChatHandler
	cfg      *models.Config
}

// NewHandler creates a new combined handler
func NewHandler(chatUC chat.ChatUC, cfg *models.Config) *Handler {
	return &Handler{
		chatHTTP: httpHandler.NewChatHandler(chatUC),
		cfg:      cfg,
	}
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/v1/rides/:rideID/messages", middleware.JWTAuthMiddleware(h.cfg.JWT))
	api.GET("", nrpkg.TraceHandler("Chat.ListMessages", h.chatHTTP.ListMessages))
	api.POST("", nrpkg.TraceHandler("Chat.SendMessage", h.chatHTTP.SendMessage))
	api.POST("/read", nrpkg.TraceHandler("Chat.MarkRead", h.chatHTTP.MarkRead))

	// Internal routes for service-to-service communication (API key required)
	internal := e.Group("/internal/rides/:rideID/messages", middleware.ValidateAPIKey(h.cfg.APIKey.GatewayService))
	internal.GET("", nrpkg.TraceHandler("Chat.ListMessagesInternal", h.chatHTTP.ListMessagesInternal))
	internal.POST("/read", nrpkg.TraceHandler("Chat.MarkReadInternal", h.chatHTTP.MarkReadInternal))
}
