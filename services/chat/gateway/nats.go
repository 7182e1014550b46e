package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/constants"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	natspkg "github.com/piresc/nebengjek-dispatch/internal/pkg/nats"
	"github.com/piresc/nebengjek-dispatch/services/chat"
)

// ChatGW handles NATS publishing for chat events
type ChatGW struct {
	publisher natspkg.JSONPublisher
}

// NewChatGW creates a new chat gateway
func NewChatGW(publisher natspkg.JSONPublisher) chat.ChatGW {
	return &ChatGW{
		publisher: publisher,
	}
}

// PublishMessage sends the message row to every recipient's chat subject
func (g *ChatGW) PublishMessage(ctx context.Context, op models.FeedOp, msg *models.ChatMessage, recipients []uuid.UUID) error {
	event := models.ChatEvent{Op: op, Message: *msg}

	var errs []error
	for _, userID := range recipients {
		errs = append(errs, g.publisher.PublishJSON(ctx, fmt.Sprintf(constants.SubjectChatMessage, userID), event))
	}
	return errors.Join(errs...)
}
