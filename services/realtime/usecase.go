package realtime

import (
	"context"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// SessionUC opens one synchronizer session per connected client
// go:generate mockgen -destination=mocks/mock_usecase.go -package=mocks github.com/piresc/nebengjek-dispatch/services/realtime SessionUC,Session
type SessionUC interface {
	Open(ctx context.Context, userID uuid.UUID, role models.Role, notifier Notifier) (Session, error)
}

// Session is a client's local cache of rides and chat kept in sync with the
// store
type Session interface {
	// Select points the current display at an active ride; nil clears it
	Select(rideID *uuid.UUID) error
	// MarkViewed resets the ride's unread counter
	MarkViewed(ctx context.Context, rideID uuid.UUID)
	// Reconcile replaces the cache with a full fetch
	Reconcile(ctx context.Context)
	Snapshot() models.SessionSnapshot
	Close()
}
