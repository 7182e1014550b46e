package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/piresc/nebengjek-dispatch/services/rides"
)

// memoryRideRepo is a RideRepo with the same guarded-write semantics as the
// postgres repository, serialized by a mutex.
type memoryRideRepo struct {
	mu       sync.Mutex
	rides    map[uuid.UUID]*models.Ride
	offers   map[uuid.UUID]map[uuid.UUID]bool // ride -> driver -> rejected
	now      func() time.Time
	creates  int
	failNext error
}

func newMemoryRideRepo() *memoryRideRepo {
	return &memoryRideRepo{
		rides:  make(map[uuid.UUID]*models.Ride),
		offers: make(map[uuid.UUID]map[uuid.UUID]bool),
		now:    time.Now,
	}
}

func (r *memoryRideRepo) touch(ride *models.Ride) *models.Ride {
	ride.UpdatedAt = r.now().UTC()
	ride.Version++
	cp := *ride
	return &cp
}

func (r *memoryRideRepo) put(ride models.Ride) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := ride
	r.rides[ride.ID] = &cp
}

func (r *memoryRideRepo) CreateRide(ctx context.Context, ride *models.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rides {
		if existing.PassengerID == ride.PassengerID && existing.Status.IsActive() {
			return models.ErrActiveRideExists
		}
	}
	r.creates++
	ride.RequestedAt = r.now().UTC()
	ride.UpdatedAt = ride.RequestedAt
	ride.Version = 1
	cp := *ride
	r.rides[ride.ID] = &cp
	return nil
}

func (r *memoryRideRepo) GetRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[rideID]
	if !ok {
		return nil, models.ErrRideNotFound
	}
	cp := *ride
	return &cp, nil
}

func (r *memoryRideRepo) GetActiveRideByPassenger(ctx context.Context, passengerID uuid.UUID) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ride := range r.rides {
		if ride.PassengerID == passengerID && ride.Status.IsActive() {
			cp := *ride
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memoryRideRepo) AcceptRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[rideID]
	if !ok || ride.Status != models.RideStatusPending || (ride.DriverID != nil && *ride.DriverID != driverID) {
		return nil, rides.ErrConditionFailed
	}
	now := r.now().UTC()
	id := driverID
	ride.DriverID = &id
	ride.Status = models.RideStatusAccepted
	ride.AcceptedAt = &now
	return r.touch(ride), nil
}

func (r *memoryRideRepo) StartRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[rideID]
	if !ok || ride.Status != models.RideStatusAccepted || !ride.HasDriver(driverID) {
		return nil, rides.ErrConditionFailed
	}
	now := r.now().UTC()
	ride.Status = models.RideStatusInProgress
	ride.StartedAt = &now
	return r.touch(ride), nil
}

func (r *memoryRideRepo) CompleteRide(ctx context.Context, rideID, driverID uuid.UUID, actualFare *float64) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[rideID]
	if !ok || ride.Status != models.RideStatusInProgress || !ride.HasDriver(driverID) {
		return nil, rides.ErrConditionFailed
	}
	now := r.now().UTC()
	fare := ride.EstimatedFare
	if actualFare != nil {
		fare = *actualFare
	}
	ride.ActualFare = &fare
	ride.Status = models.RideStatusCompleted
	ride.CompletedAt = &now
	return r.touch(ride), nil
}

func (r *memoryRideRepo) CancelRide(ctx context.Context, rideID uuid.UUID, from models.RideStatus, reason string) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[rideID]
	if !ok || ride.Status != from {
		return nil, rides.ErrConditionFailed
	}
	now := r.now().UTC()
	ride.Status = models.RideStatusCancelled
	ride.CancelledAt = &now
	ride.CancellationReason = &reason
	return r.touch(ride), nil
}

func (r *memoryRideRepo) RateRide(ctx context.Context, rideID uuid.UUID, by models.Role, rating *int, comment *string) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[rideID]
	if !ok || ride.Status != models.RideStatusCompleted || ride.RatingResolved(by) {
		return nil, rides.ErrConditionFailed
	}
	if by == models.RoleDriver {
		ride.DriverRating, ride.DriverComment = rating, comment
	} else {
		ride.PassengerRating, ride.PassengerComment = rating, comment
	}
	return r.touch(ride), nil
}

func (r *memoryRideRepo) ExpirePendingRides(ctx context.Context, olderThan time.Duration, reason string) ([]models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	requestedBefore := r.now().Add(-olderThan)
	var expired []models.Ride
	for _, ride := range r.rides {
		if ride.Status == models.RideStatusPending && ride.RequestedAt.Before(requestedBefore) {
			now := r.now().UTC()
			why := reason
			ride.Status = models.RideStatusCancelled
			ride.CancelledAt = &now
			ride.CancellationReason = &why
			expired = append(expired, *r.touch(ride))
		}
	}
	return expired, nil
}

func (r *memoryRideRepo) ReleaseTarget(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[rideID]
	if !ok || ride.Status != models.RideStatusPending || !ride.HasDriver(driverID) {
		return nil, rides.ErrConditionFailed
	}
	ride.DriverID = nil
	return r.touch(ride), nil
}

func (r *memoryRideRepo) ActiveSnapshot(ctx context.Context, userID uuid.UUID, role models.Role) (*models.ActiveRides, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := &models.ActiveRides{ServerTime: r.now().UTC(), Rides: r.activeLocked(userID, role)}
	if role == models.RoleDriver {
		result.Offers = r.offersLocked(userID)
	}
	return result, nil
}

func (r *memoryRideRepo) activeLocked(userID uuid.UUID, role models.Role) []models.Ride {
	var out []models.Ride
	for _, ride := range r.rides {
		switch role {
		case models.RolePassenger:
			if ride.PassengerID == userID && ride.Status.IsActive() {
				out = append(out, *ride)
			}
		case models.RoleDriver:
			if ride.HasDriver(userID) && (ride.Status == models.RideStatusAccepted || ride.Status == models.RideStatusInProgress) {
				out = append(out, *ride)
			}
		}
	}
	sortRides(out)
	return out
}

func (r *memoryRideRepo) offersLocked(driverID uuid.UUID) []models.Ride {
	var out []models.Ride
	for rideID, drivers := range r.offers {
		rejected, offered := drivers[driverID]
		ride := r.rides[rideID]
		if !offered || rejected || ride == nil || ride.Status != models.RideStatusPending {
			continue
		}
		if ride.DriverID != nil && *ride.DriverID != driverID {
			continue
		}
		out = append(out, *ride)
	}
	sortRides(out)
	return out
}

func (r *memoryRideRepo) RecordOffers(ctx context.Context, rideID uuid.UUID, driverIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	if r.offers[rideID] == nil {
		r.offers[rideID] = make(map[uuid.UUID]bool)
	}
	for _, id := range driverIDs {
		if _, ok := r.offers[rideID][id]; !ok {
			r.offers[rideID][id] = false
		}
	}
	return nil
}

func (r *memoryRideRepo) RejectOffer(ctx context.Context, rideID, driverID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.offers[rideID] == nil {
		r.offers[rideID] = make(map[uuid.UUID]bool)
	}
	r.offers[rideID][driverID] = true
	return nil
}

func (r *memoryRideRepo) ListOfferedDrivers(ctx context.Context, rideID uuid.UUID) ([]uuid.UUID, error) {
	return r.listDrivers(rideID, false), nil
}

func (r *memoryRideRepo) ListRejectedDrivers(ctx context.Context, rideID uuid.UUID) ([]uuid.UUID, error) {
	return r.listDrivers(rideID, true), nil
}

func (r *memoryRideRepo) listDrivers(rideID uuid.UUID, rejected bool) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uuid.UUID
	for id, rej := range r.offers[rideID] {
		if rej == rejected {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func sortRides(rs []models.Ride) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].RequestedAt.Before(rs[j].RequestedAt) })
}
