package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/geo"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	nrpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/newrelic"
	"github.com/piresc/nebengjek-dispatch/services/rides"
	"github.com/piresc/nebengjek-dispatch/services/rides/metrics"
)

const (
	maxCommentLength = 1000
	expiredReason    = "expired: no driver accepted"
)

// rideUC implements rides.RideUC
type rideUC struct {
	cfg       *models.Config
	ridesRepo rides.RideRepo
	ridesGW   rides.RideGW
	matchGW   rides.MatchGW
	estimator *FareEstimator
	metrics   *metrics.Metrics
	logger    *logger.ZapLogger
	now       func() time.Time
}

// NewRideUC creates a new ride use case
func NewRideUC(
	cfg *models.Config,
	rideRepo rides.RideRepo,
	rideGW rides.RideGW,
	matchGW rides.MatchGW,
	m *metrics.Metrics,
	log *logger.ZapLogger,
) rides.RideUC {
	return &rideUC{
		cfg:       cfg,
		ridesRepo: rideRepo,
		ridesGW:   rideGW,
		matchGW:   matchGW,
		estimator: NewFareEstimator(cfg.Pricing),
		metrics:   m,
		logger:    log.Named("rides-usecase"),
		now:       time.Now,
	}
}

// EstimateFare prices a trip without creating anything
func (uc *rideUC) EstimateFare(ctx context.Context, pickup, destination models.Coordinates) (*models.FareEstimate, error) {
	distance, err := geo.DistanceKm(pickup, destination)
	if err != nil {
		return nil, err
	}
	fare, minutes := uc.estimator.Estimate(distance)
	return &models.FareEstimate{
		DistanceKm:      distance,
		Fare:            fare,
		DurationMinutes: minutes,
		Currency:        uc.cfg.Pricing.Currency,
	}, nil
}

// RequestRide creates a pending ride with a frozen estimate and offers it to
// the eligible drivers
func (uc *rideUC) RequestRide(ctx context.Context, req models.RideRequest) (*models.Ride, error) {
	ride, err := nrpkg.WithSegmentAndReturn(ctx, "Rides.RequestRide", func() (*models.Ride, error) {
		return uc.requestRide(ctx, req)
	})
	uc.metrics.ObserveTransition("request", err)
	return ride, err
}

func (uc *rideUC) requestRide(ctx context.Context, req models.RideRequest) (*models.Ride, error) {
	if req.PassengerID == uuid.Nil {
		return nil, models.NewValidationError("passenger_id", "is required")
	}
	if err := geo.Validate(req.Pickup.Coordinates); err != nil {
		return nil, err
	}
	if err := geo.Validate(req.Destination.Coordinates); err != nil {
		return nil, err
	}

	active, err := uc.ridesRepo.GetActiveRideByPassenger(ctx, req.PassengerID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, models.ErrActiveRideExists
	}

	estimate, err := uc.EstimateFare(ctx, req.Pickup.Coordinates, req.Destination.Coordinates)
	if err != nil {
		return nil, err
	}

	result, err := uc.matchGW.FindEligibleDrivers(ctx, models.MatchQuery{
		Pickup:            req.Pickup.Coordinates,
		PreferredDriverID: req.PreferredDriverID,
	})
	if err != nil {
		return nil, fmt.Errorf("find eligible drivers: %w", err)
	}

	ride := &models.Ride{
		ID:                       uuid.New(),
		PassengerID:              req.PassengerID,
		Pickup:                   req.Pickup,
		Destination:              req.Destination,
		VehicleType:              req.VehicleType,
		DistanceKm:               estimate.DistanceKm,
		EstimatedFare:            estimate.Fare,
		EstimatedDurationMinutes: estimate.DurationMinutes,
		Status:                   models.RideStatusPending,
	}

	offerTo := uc.selectOffers(result)
	if target := preferredDriver(result); target != nil {
		ride.DriverID = target
		offerTo = []uuid.UUID{*target}
	}

	if err := uc.ridesRepo.CreateRide(ctx, ride); err != nil {
		return nil, err
	}

	if err := uc.ridesRepo.RecordOffers(ctx, ride.ID, offerTo); err != nil {
		// the ride exists; drivers still find it through a later re-offer
		uc.logger.Warn("Failed to record ride offers",
			logger.UUID("ride_id", ride.ID),
			logger.Err(err))
	}

	uc.logger.Info("Ride requested",
		logger.UUID("ride_id", ride.ID),
		logger.UUID("passenger_id", ride.PassengerID),
		logger.Float64("distance_km", ride.DistanceKm),
		logger.Float64("estimated_fare", ride.EstimatedFare),
		logger.Int("offered_drivers", len(offerTo)),
		logger.Bool("targeted", ride.DriverID != nil))

	uc.publish(ctx, models.FeedOpInsert, ride, offerTo)
	return ride, nil
}

// selectOffers returns up to MaxOffers eligible driver ids, nearest first
func (uc *rideUC) selectOffers(result *models.MatchResult) []uuid.UUID {
	if result == nil {
		return nil
	}
	limit := uc.cfg.Rides.MaxOffers
	ids := make([]uuid.UUID, 0, len(result.Drivers))
	for _, d := range result.Drivers {
		if limit > 0 && len(ids) >= limit {
			break
		}
		ids = append(ids, d.ID)
	}
	return ids
}

func preferredDriver(result *models.MatchResult) *uuid.UUID {
	if result == nil {
		return nil
	}
	for _, d := range result.Drivers {
		if d.Preferred {
			id := d.ID
			return &id
		}
	}
	return nil
}

// AcceptRide lets exactly one driver win a pending ride
func (uc *rideUC) AcceptRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	start := uc.now()
	ride, err := uc.ridesRepo.AcceptRide(ctx, rideID, driverID)
	if errors.Is(err, rides.ErrConditionFailed) {
		err = uc.classifyFailedAccept(ctx, rideID, driverID)
	}

	uc.metrics.ObserveAccept(acceptOutcome(err), start)
	uc.metrics.ObserveTransition(string(models.TransitionAccept), err)
	if err != nil {
		uc.logger.Info("Ride accept refused",
			logger.UUID("ride_id", rideID),
			logger.UUID("driver_id", driverID),
			logger.Err(err))
		return nil, err
	}

	uc.logger.Info("Ride accepted",
		logger.UUID("ride_id", rideID),
		logger.UUID("driver_id", driverID))

	uc.publish(ctx, models.FeedOpUpdate, ride, uc.offeredDrivers(ctx, ride.ID))
	return ride, nil
}

// classifyFailedAccept re-reads a ride whose accept guard did not match
func (uc *rideUC) classifyFailedAccept(ctx context.Context, rideID, driverID uuid.UUID) error {
	current, err := uc.ridesRepo.GetRide(ctx, rideID)
	if err != nil {
		return err
	}
	switch current.Status {
	case models.RideStatusPending, models.RideStatusAccepted, models.RideStatusInProgress:
		if current.Status != models.RideStatusPending && current.HasDriver(driverID) {
			return fmt.Errorf("ride already accepted by this driver: %w", models.ErrInvalidTransition)
		}
		return models.ErrAlreadyTaken
	default:
		return fmt.Errorf("ride is %s: %w", current.Status, models.ErrInvalidTransition)
	}
}

func acceptOutcome(err error) string {
	switch {
	case err == nil:
		return "won"
	case errors.Is(err, models.ErrAlreadyTaken):
		return "taken"
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrRideNotFound):
		return "invalid"
	default:
		return "error"
	}
}

// RejectRide records that the driver declined a pending ride and offers it
// to drivers who have not declined yet
func (uc *rideUC) RejectRide(ctx context.Context, rideID, driverID uuid.UUID) error {
	err := uc.rejectRide(ctx, rideID, driverID)
	uc.metrics.ObserveTransition(string(models.TransitionReject), err)
	return err
}

func (uc *rideUC) rejectRide(ctx context.Context, rideID, driverID uuid.UUID) error {
	ride, err := uc.ridesRepo.GetRide(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.DriverID != nil && !ride.HasDriver(driverID) {
		return models.ErrNotParticipant
	}
	if _, ok := models.CanTransition(ride.Status, models.TransitionReject); !ok {
		return fmt.Errorf("cannot reject a %s ride: %w", ride.Status, models.ErrInvalidTransition)
	}

	if err := uc.ridesRepo.RejectOffer(ctx, rideID, driverID); err != nil {
		return err
	}
	if err := uc.ridesGW.PublishOfferWithdrawn(ctx, ride, driverID); err != nil {
		uc.logger.Warn("Failed to publish offer withdrawal", logger.UUID("ride_id", rideID), logger.Err(err))
	}

	if ride.DriverID != nil {
		// the requested driver declined: open the ride to everyone else
		released, err := uc.ridesRepo.ReleaseTarget(ctx, rideID, driverID)
		if errors.Is(err, rides.ErrConditionFailed) {
			return uc.classifyFailedRelease(ctx, rideID)
		}
		if err != nil {
			return err
		}
		uc.logger.Info("Requested driver declined, ride opened to other drivers",
			logger.UUID("ride_id", rideID), logger.UUID("driver_id", driverID))
		uc.publish(ctx, models.FeedOpUpdate, released, nil)
		ride = released
	}

	uc.reoffer(ctx, ride)
	return nil
}

// classifyFailedRelease explains why a pending ride targeted at the caller
// could not be released: it moved on between the read and the write
func (uc *rideUC) classifyFailedRelease(ctx context.Context, rideID uuid.UUID) error {
	current, err := uc.ridesRepo.GetRide(ctx, rideID)
	if err != nil {
		return err
	}
	if current.Status == models.RideStatusPending {
		// already released by a concurrent reject
		return nil
	}
	return fmt.Errorf("ride is %s: %w", current.Status, models.ErrInvalidTransition)
}

// reoffer pushes an open ride to eligible drivers that neither hold nor
// rejected an offer for it
func (uc *rideUC) reoffer(ctx context.Context, ride *models.Ride) {
	rejected, err := uc.ridesRepo.ListRejectedDrivers(ctx, ride.ID)
	if err != nil {
		uc.logger.Warn("Failed to list rejected drivers", logger.UUID("ride_id", ride.ID), logger.Err(err))
		return
	}
	result, err := uc.matchGW.FindEligibleDrivers(ctx, models.MatchQuery{
		Pickup:           ride.Pickup.Coordinates,
		ExcludeDriverIDs: rejected,
	})
	if err != nil {
		uc.logger.Warn("Re-offer matching failed", logger.UUID("ride_id", ride.ID), logger.Err(err))
		return
	}

	offered := make(map[uuid.UUID]struct{})
	for _, id := range uc.offeredDrivers(ctx, ride.ID) {
		offered[id] = struct{}{}
	}
	var fresh []uuid.UUID
	for _, id := range uc.selectOffers(result) {
		if _, ok := offered[id]; !ok {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		return
	}

	if err := uc.ridesRepo.RecordOffers(ctx, ride.ID, fresh); err != nil {
		uc.logger.Warn("Failed to record re-offers", logger.UUID("ride_id", ride.ID), logger.Err(err))
		return
	}
	if err := uc.ridesGW.PublishOffers(ctx, ride, fresh); err != nil {
		uc.logger.Warn("Failed to publish re-offers", logger.UUID("ride_id", ride.ID), logger.Err(err))
	}
}

// StartRide moves the driver's accepted ride to in-progress
func (uc *rideUC) StartRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	ride, err := uc.ridesRepo.StartRide(ctx, rideID, driverID)
	if errors.Is(err, rides.ErrConditionFailed) {
		err = uc.classifyFailedDriverWrite(ctx, rideID, driverID, models.TransitionStart)
	}
	uc.metrics.ObserveTransition(string(models.TransitionStart), err)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Ride started", logger.UUID("ride_id", rideID), logger.UUID("driver_id", driverID))
	uc.publish(ctx, models.FeedOpUpdate, ride, nil)
	return ride, nil
}

// CompleteRide finishes the driver's in-progress ride, charging the supplied
// fare or the frozen estimate
func (uc *rideUC) CompleteRide(ctx context.Context, rideID, driverID uuid.UUID, req models.RideCompleteRequest) (*models.Ride, error) {
	if req.ActualFare != nil && *req.ActualFare < 0 {
		return nil, models.NewValidationError("actual_fare", "must not be negative")
	}

	ride, err := uc.ridesRepo.CompleteRide(ctx, rideID, driverID, req.ActualFare)
	if errors.Is(err, rides.ErrConditionFailed) {
		err = uc.classifyFailedDriverWrite(ctx, rideID, driverID, models.TransitionComplete)
	}
	uc.metrics.ObserveTransition(string(models.TransitionComplete), err)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Ride completed",
		logger.UUID("ride_id", rideID),
		logger.UUID("driver_id", driverID),
		logger.Any("actual_fare", ride.ActualFare))
	uc.publish(ctx, models.FeedOpUpdate, ride, nil)
	return ride, nil
}

// classifyFailedDriverWrite explains why a start or complete guard did not match
func (uc *rideUC) classifyFailedDriverWrite(ctx context.Context, rideID, driverID uuid.UUID, op models.RideTransition) error {
	current, err := uc.ridesRepo.GetRide(ctx, rideID)
	if err != nil {
		return err
	}
	if !current.HasDriver(driverID) {
		return models.ErrNotParticipant
	}
	return fmt.Errorf("cannot %s a %s ride: %w", op, current.Status, models.ErrInvalidTransition)
}

// CancelRide cancels a non-terminal ride on behalf of one of its parties
func (uc *rideUC) CancelRide(ctx context.Context, rideID, userID uuid.UUID, role models.Role, req models.RideCancelRequest) (*models.Ride, error) {
	ride, err := uc.cancelRide(ctx, rideID, userID, role, req)
	uc.metrics.ObserveTransition(string(models.TransitionCancel), err)
	return ride, err
}

func (uc *rideUC) cancelRide(ctx context.Context, rideID, userID uuid.UUID, role models.Role, req models.RideCancelRequest) (*models.Ride, error) {
	current, err := uc.ridesRepo.GetRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !canCancel(current, userID, role) {
		return nil, models.ErrNotParticipant
	}
	if _, ok := models.CanTransition(current.Status, models.TransitionCancel); !ok {
		return nil, fmt.Errorf("cannot cancel a %s ride: %w", current.Status, models.ErrInvalidTransition)
	}

	var offered []uuid.UUID
	if current.Status == models.RideStatusPending {
		offered = uc.offeredDrivers(ctx, rideID)
	}

	reason := CancellationReason(current.Status, role, req.Note)
	ride, err := uc.ridesRepo.CancelRide(ctx, rideID, current.Status, reason)
	if errors.Is(err, rides.ErrConditionFailed) {
		return nil, fmt.Errorf("ride changed while cancelling: %w", models.ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Ride cancelled",
		logger.UUID("ride_id", rideID),
		logger.String("cancelled_by", string(role)),
		logger.String("from_status", string(current.Status)))
	uc.publish(ctx, models.FeedOpUpdate, ride, offered)
	return ride, nil
}

func canCancel(ride *models.Ride, userID uuid.UUID, role models.Role) bool {
	switch role {
	case models.RolePassenger:
		return ride.PassengerID == userID
	case models.RoleDriver:
		return ride.HasDriver(userID)
	default:
		return false
	}
}

// CancellationReason tags a cancellation with who cancelled and at which stage
func CancellationReason(from models.RideStatus, by models.Role, note string) string {
	var stage string
	switch from {
	case models.RideStatusPending:
		stage = "before a driver accepted"
	case models.RideStatusAccepted:
		stage = "before pickup"
	case models.RideStatusInProgress:
		stage = "during the trip"
	default:
		stage = "while " + string(from)
	}
	reason := fmt.Sprintf("cancelled by %s %s", by, stage)
	if note = strings.TrimSpace(note); note != "" {
		reason += ": " + note
	}
	return reason
}

// RateRide stores one side's rating, comment or skip on a completed ride
func (uc *rideUC) RateRide(ctx context.Context, req models.RateRideRequest) (*models.Ride, error) {
	if err := validateRating(req); err != nil {
		return nil, err
	}

	current, err := uc.ridesRepo.GetRide(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	if !canCancel(current, req.UserID, req.Role) {
		return nil, models.ErrNotParticipant
	}
	if current.Status != models.RideStatusCompleted {
		return nil, fmt.Errorf("cannot rate a %s ride: %w", current.Status, models.ErrInvalidTransition)
	}
	if current.RatingResolved(req.Role) {
		return nil, models.ErrAlreadyRated
	}

	rating, comment := req.Rating, req.Comment
	if req.Skip {
		marker := models.RatingSkipMarker
		rating, comment = nil, &marker
	}

	ride, err := uc.ridesRepo.RateRide(ctx, req.RideID, req.Role, rating, comment)
	if errors.Is(err, rides.ErrConditionFailed) {
		return nil, models.ErrAlreadyRated
	}
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, models.FeedOpUpdate, ride, nil)
	if rating != nil && ride.DriverID != nil {
		event := models.RideRatedEvent{
			RideID:      ride.ID,
			PassengerID: ride.PassengerID,
			DriverID:    *ride.DriverID,
			RatedBy:     req.Role,
			RatedAt:     ride.UpdatedAt,
		}
		if err := uc.ridesGW.PublishRideRated(ctx, event); err != nil {
			uc.logger.Warn("Failed to publish ride rated event", logger.UUID("ride_id", ride.ID), logger.Err(err))
		}
	}
	return ride, nil
}

func validateRating(req models.RateRideRequest) error {
	if !req.Role.IsValid() {
		return models.NewValidationError("role", "must be passenger or driver")
	}
	if req.Skip {
		if req.Rating != nil || req.Comment != nil {
			return models.NewValidationError("skip", "cannot be combined with a rating or comment")
		}
		return nil
	}
	if req.Rating == nil && (req.Comment == nil || strings.TrimSpace(*req.Comment) == "") {
		return models.NewValidationError("rating", "a rating, a comment or skip is required")
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		return models.NewValidationError("rating", "must be between 1 and 5")
	}
	if req.Comment != nil {
		if *req.Comment == models.RatingSkipMarker {
			return models.NewValidationError("comment", "is reserved")
		}
		if len([]rune(*req.Comment)) > maxCommentLength {
			return models.NewValidationError("comment", fmt.Sprintf("must be at most %d characters", maxCommentLength))
		}
	}
	return nil
}

// GetRide returns a ride visible to userID: a party to it or a driver holding an offer
func (uc *rideUC) GetRide(ctx context.Context, rideID, userID uuid.UUID) (*models.Ride, error) {
	ride, err := uc.ridesRepo.GetRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.IsParticipant(userID) {
		return ride, nil
	}
	offered, err := uc.ridesRepo.ListOfferedDrivers(ctx, rideID)
	if err != nil {
		return nil, err
	}
	for _, id := range offered {
		if id == userID {
			return ride, nil
		}
	}
	return nil, models.ErrNotParticipant
}

// GetActiveRides is the reconciling fetch. The store reads everything from
// one snapshot and stamps ServerTime with its own clock, so anything absent
// from the result and older than it is gone.
func (uc *rideUC) GetActiveRides(ctx context.Context, userID uuid.UUID, role models.Role) (*models.ActiveRides, error) {
	if !role.IsValid() {
		return nil, models.NewValidationError("role", "must be passenger or driver")
	}
	result, err := uc.ridesRepo.ActiveSnapshot(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	if result.Rides == nil {
		result.Rides = []models.Ride{}
	}
	return result, nil
}

// ExpirePendingRides cancels pending rides older than olderThan; zero disables it
func (uc *rideUC) ExpirePendingRides(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, nil
	}

	expired, err := uc.ridesRepo.ExpirePendingRides(ctx, olderThan, expiredReason)
	if err != nil {
		return 0, err
	}
	for i := range expired {
		ride := &expired[i]
		uc.publish(ctx, models.FeedOpUpdate, ride, uc.offeredDrivers(ctx, ride.ID))
	}

	uc.metrics.AddExpired(len(expired))
	if len(expired) > 0 {
		uc.logger.Info("Expired pending rides", logger.Int("count", len(expired)))
	}
	return len(expired), nil
}

func (uc *rideUC) offeredDrivers(ctx context.Context, rideID uuid.UUID) []uuid.UUID {
	ids, err := uc.ridesRepo.ListOfferedDrivers(ctx, rideID)
	if err != nil {
		uc.logger.Warn("Failed to list offered drivers", logger.UUID("ride_id", rideID), logger.Err(err))
		return nil
	}
	return ids
}

// publish is best effort: subscribers reconcile on reconnect
func (uc *rideUC) publish(ctx context.Context, op models.FeedOp, ride *models.Ride, offeredTo []uuid.UUID) {
	if err := uc.ridesGW.PublishRideChanged(ctx, op, ride, offeredTo); err != nil {
		uc.logger.Warn("Failed to publish ride change",
			logger.UUID("ride_id", ride.ID),
			logger.String("status", string(ride.Status)),
			logger.Err(err))
	}
}
