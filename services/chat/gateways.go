package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// ChatGW publishes chat changes to the parties' feeds
// go:generate mockgen -destination=mocks/mock_gateway.go -package=mocks github.com/piresc/nebengjek-dispatch/services/chat ChatGW
type ChatGW interface {
	PublishMessage(ctx context.Context, op models.FeedOp, msg *models.ChatMessage, recipients []uuid.UUID) error
}
