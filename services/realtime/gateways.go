package realtime

import (
	"context"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// Fetcher performs the reconciling reads against the rides service
// go:generate mockgen -destination=mocks/mock_gateway.go -package=mocks github.com/piresc/nebengjek-dispatch/services/realtime Fetcher,Feed,Subscription,Notifier
type Fetcher interface {
	FetchActiveRides(ctx context.Context, userID uuid.UUID, role models.Role) (*models.ActiveRides, error)
	FetchMessages(ctx context.Context, rideID, userID uuid.UUID) ([]models.ChatMessage, error)
	MarkChatRead(ctx context.Context, rideID, userID uuid.UUID) error
}

// FeedHandler receives a user's change events. Calls arrive asynchronously
// and possibly out of order or more than once.
type FeedHandler interface {
	HandleRideEvent(event models.RideEvent)
	HandleChatEvent(event models.ChatEvent)
	// HandleReconnect runs after the feed connection was restored
	HandleReconnect()
}

// Feed subscribes to the change events scoped to one participant
type Feed interface {
	Subscribe(userID uuid.UUID, role models.Role, handler FeedHandler) (Subscription, error)
}

// Subscription is a live feed registration
type Subscription interface {
	Unsubscribe() error
}

// Notifier pushes state snapshots to the connected client
type Notifier interface {
	Notify(snapshot models.SessionSnapshot) error
}
