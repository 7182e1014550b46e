package ratings

import (
	"context"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// RatingUC defines the rating aggregation logic
// go:generate mockgen -destination=mocks/mock_usecase.go -package=mocks github.com/piresc/nebengjek-dispatch/services/ratings RatingUC
type RatingUC interface {
	HandleRideRated(ctx context.Context, event models.RideRatedEvent) error
	Recompute(ctx context.Context, party models.Role, partyID uuid.UUID) (*float64, error)
}
