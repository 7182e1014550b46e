package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// ChatUC defines the interface for ride chat
// go:generate mockgen -destination=mocks/mock_usecase.go -package=mocks github.com/piresc/nebengjek-dispatch/services/chat ChatUC
type ChatUC interface {
	SendMessage(ctx context.Context, rideID, senderID uuid.UUID, body string) (*models.ChatMessage, error)
	ListMessages(ctx context.Context, rideID, userID uuid.UUID) ([]models.ChatMessage, error)
	MarkRead(ctx context.Context, rideID, readerID uuid.UUID) (int, error)
}
