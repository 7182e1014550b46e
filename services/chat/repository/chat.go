package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	nrpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/newrelic"
)

const messageColumns = `id, ride_id, sender_id, sender_type, body, created_at, read_at`

// ChatRepo implements chat.ChatRepo on PostgreSQL
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// GetRideParties reads who is on the ride and its status
func (r *ChatRepo) GetRideParties(ctx context.Context, rideID uuid.UUID) (*models.RideParties, error) {
	defer nrpkg.StartPostgresSegment(ctx, "rides", "SELECT").End()

	var parties models.RideParties
	err := r.db.GetContext(ctx, &parties,
		`SELECT id, passenger_id, driver_id, status FROM rides WHERE id = $1`, rideID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrRideNotFound
	}
	if err != nil {
		return nil, models.Unavailable("get ride parties", err)
	}
	return &parties, nil
}

// CreateMessage inserts msg and fills in the server creation time
func (r *ChatRepo) CreateMessage(ctx context.Context, msg *models.ChatMessage) error {
	defer nrpkg.StartPostgresSegment(ctx, "chat_messages", "INSERT").End()

	query := `
		INSERT INTO chat_messages (id, ride_id, sender_id, sender_type, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	err := r.db.QueryRowxContext(ctx, query, msg.ID, msg.RideID, msg.SenderID, msg.SenderType, msg.Body).
		Scan(&msg.CreatedAt)
	if err != nil {
		return models.Unavailable("create chat message", err)
	}
	return nil
}

// ListMessages returns a ride's messages ordered by (created_at, id)
func (r *ChatRepo) ListMessages(ctx context.Context, rideID uuid.UUID) ([]models.ChatMessage, error) {
	defer nrpkg.StartPostgresSegment(ctx, "chat_messages", "SELECT").End()

	messages := []models.ChatMessage{}
	query := `SELECT ` + messageColumns + ` FROM chat_messages WHERE ride_id = $1 ORDER BY created_at, id`
	if err := r.db.SelectContext(ctx, &messages, query, rideID); err != nil {
		return nil, models.Unavailable("list chat messages", err)
	}
	return messages, nil
}

// MarkRead stamps every unread inbound message of the reader in one statement
func (r *ChatRepo) MarkRead(ctx context.Context, rideID, readerID uuid.UUID) ([]models.ChatMessage, error) {
	defer nrpkg.StartPostgresSegment(ctx, "chat_messages", "UPDATE").End()

	var messages []models.ChatMessage
	query := `
		UPDATE chat_messages SET read_at = NOW()
		WHERE ride_id = $1 AND sender_id <> $2 AND read_at IS NULL
		RETURNING ` + messageColumns
	if err := r.db.SelectContext(ctx, &messages, query, rideID, readerID); err != nil {
		return nil, models.Unavailable("mark chat messages read", err)
	}
	return messages, nil
}
