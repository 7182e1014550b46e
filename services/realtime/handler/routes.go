package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	wspkg "github.com/piresc/nebengjek-dispatch/internal/pkg/websocket"
	"github.com/piresc/nebengjek-dispatch/services/realtime"
	wsHandler "github.com/piresc/nebengjek-dispatch/services/realtime/handler/websocket"
)

// Handler combines all handlers for the realtime gateway
type Handler struct {
	sessionWS *wsHandler.SessionHandler
}

// NewHandler creates a new combined handler
func NewHandler(manager *wspkg.Manager, sessionUC realtime.SessionUC, log *logger.ZapLogger) *Handler {
	return &Handler{
		sessionWS: wsHandler.NewSessionHandler(manager, sessionUC, log),
	}
}

// RegisterRoutes registers all HTTP routes. The websocket authenticates its
// own upgrade request.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.sessionWS.HandleWebSocket)
}
