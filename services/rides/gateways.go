package rides

import (
	"context"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// RideGW publishes ride changes to the participants' feeds
// go:generate mockgen -destination=mocks/mock_gateway.go -package=mocks github.com/piresc/nebengjek-dispatch/services/rides RideGW,MatchGW
type RideGW interface {
	// PublishRideChanged notifies the passenger, the bound driver and every
	// driver in offeredTo
	PublishRideChanged(ctx context.Context, op models.FeedOp, ride *models.Ride, offeredTo []uuid.UUID) error
	// PublishOffers pushes a pending ride to newly offered drivers only
	PublishOffers(ctx context.Context, ride *models.Ride, driverIDs []uuid.UUID) error
	PublishOfferWithdrawn(ctx context.Context, ride *models.Ride, driverID uuid.UUID) error
	PublishRideRated(ctx context.Context, event models.RideRatedEvent) error
}

// MatchGW queries the match service for eligible drivers
type MatchGW interface {
	FindEligibleDrivers(ctx context.Context, query models.MatchQuery) (*models.MatchResult, error)
}
