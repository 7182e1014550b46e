package rides

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// RideUC defines the interface for ride business logic
// go:generate mockgen -destination=mocks/mock_usecase.go -package=mocks github.com/piresc/nebengjek-dispatch/services/rides RideUC
type RideUC interface {
	RequestRide(ctx context.Context, req models.RideRequest) (*models.Ride, error)
	AcceptRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error)
	RejectRide(ctx context.Context, rideID, driverID uuid.UUID) error
	StartRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error)
	CompleteRide(ctx context.Context, rideID, driverID uuid.UUID, req models.RideCompleteRequest) (*models.Ride, error)
	CancelRide(ctx context.Context, rideID, userID uuid.UUID, role models.Role, req models.RideCancelRequest) (*models.Ride, error)
	RateRide(ctx context.Context, req models.RateRideRequest) (*models.Ride, error)

	GetRide(ctx context.Context, rideID, userID uuid.UUID) (*models.Ride, error)
	GetActiveRides(ctx context.Context, userID uuid.UUID, role models.Role) (*models.ActiveRides, error)
	EstimateFare(ctx context.Context, pickup, destination models.Coordinates) (*models.FareEstimate, error)

	ExpirePendingRides(ctx context.Context, olderThan time.Duration) (int, error)
}
