package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/constants"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	natspkg "github.com/piresc/nebengjek-dispatch/internal/pkg/nats"
	"github.com/piresc/nebengjek-dispatch/services/rides"
)

// RideGW handles NATS publishing for ride events
type RideGW struct {
	publisher natspkg.JSONPublisher
}

// NewRideGW creates a new ride gateway
func NewRideGW(publisher natspkg.JSONPublisher) rides.RideGW {
	return &RideGW{
		publisher: publisher,
	}
}

// PublishRideChanged fans a ride row out to the passenger, the bound driver
// and the drivers it is (or was) offered to. Every subject is attempted.
func (g *RideGW) PublishRideChanged(ctx context.Context, op models.FeedOp, ride *models.Ride, offeredTo []uuid.UUID) error {
	event := models.RideEvent{Op: op, Ride: *ride}

	errs := []error{
		g.publisher.PublishJSON(ctx, fmt.Sprintf(constants.SubjectRideChangedPassenger, ride.PassengerID), event),
	}

	notified := make(map[uuid.UUID]struct{}, len(offeredTo)+1)
	if ride.DriverID != nil && ride.Status != models.RideStatusPending {
		notified[*ride.DriverID] = struct{}{}
		errs = append(errs, g.publisher.PublishJSON(ctx, fmt.Sprintf(constants.SubjectRideChangedDriver, *ride.DriverID), event))
	}
	for _, driverID := range offeredTo {
		if _, ok := notified[driverID]; ok {
			continue
		}
		notified[driverID] = struct{}{}
		errs = append(errs, g.publisher.PublishJSON(ctx, fmt.Sprintf(constants.SubjectRideOffered, driverID), event))
	}
	return errors.Join(errs...)
}

// PublishOffers pushes a pending ride to newly offered drivers
func (g *RideGW) PublishOffers(ctx context.Context, ride *models.Ride, driverIDs []uuid.UUID) error {
	event := models.RideEvent{Op: models.FeedOpInsert, Ride: *ride}

	var errs []error
	for _, driverID := range driverIDs {
		errs = append(errs, g.publisher.PublishJSON(ctx, fmt.Sprintf(constants.SubjectRideOffered, driverID), event))
	}
	return errors.Join(errs...)
}

// PublishOfferWithdrawn tells one driver the ride is no longer offered to them
func (g *RideGW) PublishOfferWithdrawn(ctx context.Context, ride *models.Ride, driverID uuid.UUID) error {
	event := models.RideEvent{Op: models.FeedOpWithdraw, Ride: *ride}
	return g.publisher.PublishJSON(ctx, fmt.Sprintf(constants.SubjectRideOffered, driverID), event)
}

// PublishRideRated queues the rating for aggregation
func (g *RideGW) PublishRideRated(ctx context.Context, event models.RideRatedEvent) error {
	return g.publisher.PublishJSON(ctx, constants.SubjectRideRated, event)
}
