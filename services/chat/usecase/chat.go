package usecase

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/piresc/nebengjek-dispatch/services/chat"
)

type chatUC struct {
	repo   chat.ChatRepo
	gw     chat.ChatGW
	logger *logger.ZapLogger
}

// NewChatUC creates the ride chat use case
func NewChatUC(repo chat.ChatRepo, gw chat.ChatGW, log *logger.ZapLogger) chat.ChatUC {
	return &chatUC{
		repo:   repo,
		gw:     gw,
		logger: log.Named("chat-usecase"),
	}
}

// SendMessage stores a message from one party of an accepted or in-progress
// ride and pushes it to both parties
func (uc *chatUC) SendMessage(ctx context.Context, rideID, senderID uuid.UUID, body string) (*models.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, models.NewValidationError("body", "must not be empty")
	}
	if utf8.RuneCountInString(body) > models.MaxChatBodyLength {
		return nil, models.NewValidationError("body", "must be at most 1000 characters")
	}

	parties, err := uc.repo.GetRideParties(ctx, rideID)
	if err != nil {
		return nil, err
	}
	role, ok := parties.RoleOf(senderID)
	if !ok {
		return nil, models.ErrNotParticipant
	}
	if !parties.ChatOpen() {
		return nil, models.ErrInvalidTransition
	}

	msg := &models.ChatMessage{
		ID:         uuid.New(),
		RideID:     rideID,
		SenderID:   senderID,
		SenderType: role,
		Body:       body,
	}
	if err := uc.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	uc.publish(ctx, models.FeedOpInsert, msg, parties)
	return msg, nil
}

// ListMessages returns the ride's conversation to one of its parties
func (uc *chatUC) ListMessages(ctx context.Context, rideID, userID uuid.UUID) ([]models.ChatMessage, error) {
	parties, err := uc.repo.GetRideParties(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if _, ok := parties.RoleOf(userID); !ok {
		return nil, models.ErrNotParticipant
	}
	return uc.repo.ListMessages(ctx, rideID)
}

// MarkRead marks the reader's inbound messages read and returns how many changed
func (uc *chatUC) MarkRead(ctx context.Context, rideID, readerID uuid.UUID) (int, error) {
	parties, err := uc.repo.GetRideParties(ctx, rideID)
	if err != nil {
		return 0, err
	}
	if _, ok := parties.RoleOf(readerID); !ok {
		return 0, models.ErrNotParticipant
	}

	updated, err := uc.repo.MarkRead(ctx, rideID, readerID)
	if err != nil {
		return 0, err
	}
	for i := range updated {
		uc.publish(ctx, models.FeedOpUpdate, &updated[i], parties)
	}
	return len(updated), nil
}

func (uc *chatUC) publish(ctx context.Context, op models.FeedOp, msg *models.ChatMessage, parties *models.RideParties) {
	if err := uc.gw.PublishMessage(ctx, op, msg, parties.Recipients()); err != nil {
		// clients catch up on their next reconcile
		uc.logger.Warn("Failed to publish chat change",
			logger.UUID("ride_id", msg.RideID),
			logger.UUID("message_id", msg.ID),
			logger.Err(err))
	}
}
