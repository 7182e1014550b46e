package match

import (
	"context"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// DriverRepo is the PostgreSQL driver directory, the source of truth for presence
// go:generate mockgen -destination=mocks/mock_repository.go -package=mocks github.com/piresc/nebengjek-dispatch/services/match DriverRepo,PresenceIndex
type DriverRepo interface {
	GetDriver(ctx context.Context, driverID uuid.UUID) (*models.DriverPresence, error)
	ListOnlineDrivers(ctx context.Context) ([]models.DriverPresence, error)
	UpdateLocation(ctx context.Context, driverID uuid.UUID, location models.Coordinates) (*models.DriverPresence, error)
	SetOnline(ctx context.Context, driverID uuid.UUID, online bool) (*models.DriverPresence, error)
}

// PresenceIndex is the Redis radius index over online drivers
type PresenceIndex interface {
	Upsert(ctx context.Context, presence models.DriverPresence) error
	Remove(ctx context.Context, driverID uuid.UUID) error
	// Nearby returns cached presence of indexed drivers around pickup. Drivers
	// whose presence entry expired are left out.
	Nearby(ctx context.Context, pickup models.Coordinates, radiusKm float64) ([]models.DriverPresence, error)
}
