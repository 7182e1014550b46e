package rides

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// ErrConditionFailed is returned by conditional writes whose guard matched no row
var ErrConditionFailed = errors.New("conditional update matched no rows")

// RideRepo defines the interface for ride data access operations
// go:generate mockgen -destination=mocks/mock_repository.go -package=mocks github.com/piresc/nebengjek-dispatch/services/rides RideRepo
type RideRepo interface {
	CreateRide(ctx context.Context, ride *models.Ride) error
	GetRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	GetActiveRideByPassenger(ctx context.Context, passengerID uuid.UUID) (*models.Ride, error)

	// Conditional transitions. Each returns ErrConditionFailed when the
	// ride is not in the expected state (or not bound to driverID).
	AcceptRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error)
	StartRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error)
	CompleteRide(ctx context.Context, rideID, driverID uuid.UUID, actualFare *float64) (*models.Ride, error)
	CancelRide(ctx context.Context, rideID uuid.UUID, from models.RideStatus, reason string) (*models.Ride, error)
	RateRide(ctx context.Context, rideID uuid.UUID, by models.Role, rating *int, comment *string) (*models.Ride, error)
	ExpirePendingRides(ctx context.Context, olderThan time.Duration, reason string) ([]models.Ride, error)
	// ReleaseTarget clears driver_id on a pending ride requested for driverID
	ReleaseTarget(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error)

	// ActiveSnapshot lists active rides (and a driver's offers) consistently,
	// stamping ServerTime with the store's clock
	ActiveSnapshot(ctx context.Context, userID uuid.UUID, role models.Role) (*models.ActiveRides, error)

	RecordOffers(ctx context.Context, rideID uuid.UUID, driverIDs []uuid.UUID) error
	RejectOffer(ctx context.Context, rideID, driverID uuid.UUID) error
	ListOfferedDrivers(ctx context.Context, rideID uuid.UUID) ([]uuid.UUID, error)
	ListRejectedDrivers(ctx context.Context, rideID uuid.UUID) ([]uuid.UUID, error)
}
