package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/middleware"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/piresc/nebengjek-dispatch/internal/utils"
	"github.com/piresc/nebengjek-dispatch/services/chat"
)

// ChatHandler handles HTTP requests for ride chat
type ChatHandler struct {
	chatUC chat.ChatUC
}

// NewChatHandler creates a new chat HTTP handler
func NewChatHandler(chatUC chat.ChatUC) *ChatHandler {
	return &ChatHandler{
		chatUC: chatUC,
	}
}

type readResponse struct {
	Updated int `json:"updated"`
}

// SendMessage posts a message on the ride's chat
func (h *ChatHandler) SendMessage(c echo.Context) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return utils.UnauthorizedResponse(c, "")
	}
	rideID, err := uuid.Parse(c.Param("rideID"))
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid ride ID")
	}

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
	}

	msg, err := h.chatUC.SendMessage(c.Request().Context(), rideID, id.UserID, req.Body)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusCreated, "Message sent", msg)
}

// ListMessages returns the ride's conversation to the caller
func (h *ChatHandler) ListMessages(c echo.Context) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return utils.UnauthorizedResponse(c, "")
	}
	return h.listMessages(c, id.UserID)
}

// MarkRead marks the caller's inbound messages read
func (h *ChatHandler) MarkRead(c echo.Context) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return utils.UnauthorizedResponse(c, "")
	}
	return h.markRead(c, id.UserID)
}

// ListMessagesInternal serves the realtime gateway's reconciling fetch
func (h *ChatHandler) ListMessagesInternal(c echo.Context) error {
	userID, err := uuid.Parse(c.QueryParam("user_id"))
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid user_id")
	}
	return h.listMessages(c, userID)
}

// MarkReadInternal records a chat view reported by the realtime gateway
func (h *ChatHandler) MarkReadInternal(c echo.Context) error {
	userID, err := uuid.Parse(c.QueryParam("user_id"))
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid user_id")
	}
	return h.markRead(c, userID)
}

func (h *ChatHandler) listMessages(c echo.Context, userID uuid.UUID) error {
	rideID, err := uuid.Parse(c.Param("rideID"))
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid ride ID")
	}

	messages, err := h.chatUC.ListMessages(c.Request().Context(), rideID, userID)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "", messages)
}

func (h *ChatHandler) markRead(c echo.Context, userID uuid.UUID) error {
	rideID, err := uuid.Parse(c.Param("rideID"))
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid ride ID")
	}

	updated, err := h.chatUC.MarkRead(c.Request().Context(), rideID, userID)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "Messages marked read", readResponse{Updated: updated})
}
