package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// ChatRepo stores ride chat messages
// go:generate mockgen -destination=mocks/mock_repository.go -package=mocks github.com/piresc/nebengjek-dispatch/services/chat ChatRepo
type ChatRepo interface {
	GetRideParties(ctx context.Context, rideID uuid.UUID) (*models.RideParties, error)
	CreateMessage(ctx context.Context, msg *models.ChatMessage) error
	ListMessages(ctx context.Context, rideID uuid.UUID) ([]models.ChatMessage, error)
	// MarkRead stamps read_at on unread messages sent to readerID and returns them
	MarkRead(ctx context.Context, rideID, readerID uuid.UUID) ([]models.ChatMessage, error)
}
