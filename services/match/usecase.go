package match

import (
	"context"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// MatchUC defines the interface for matching and driver presence
// go:generate mockgen -destination=mocks/mock_usecase.go -package=mocks github.com/piresc/nebengjek-dispatch/services/match MatchUC
type MatchUC interface {
	FindEligibleDrivers(ctx context.Context, query models.MatchQuery) (*models.MatchResult, error)
	GetPresence(ctx context.Context, driverID uuid.UUID) (*models.DriverPresence, error)
	UpdatePresence(ctx context.Context, driverID uuid.UUID, update models.PresenceUpdate) (*models.DriverPresence, error)
}
