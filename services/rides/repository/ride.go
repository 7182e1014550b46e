package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/database"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	nrpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/newrelic"
	"github.com/piresc/nebengjek-dispatch/services/rides"
)

const activePassengerConstraint = "rides_one_active_per_passenger"

var rideColumnNames = []string{
	"id", "passenger_id", "driver_id",
	"pickup_latitude", "pickup_longitude", "pickup_address",
	"destination_latitude", "destination_longitude", "destination_address",
	"vehicle_type", "distance_km", "estimated_fare", "estimated_duration_minutes", "actual_fare",
	"status", "cancellation_reason",
	"passenger_rating", "passenger_comment", "driver_rating", "driver_comment",
	"requested_at", "accepted_at", "started_at", "completed_at", "cancelled_at",
	"updated_at", "version",
}

// rideColumns lists the ride columns, qualified with alias when given
func rideColumns(alias string) string {
	if alias == "" {
		return strings.Join(rideColumnNames, ", ")
	}
	qualified := make([]string, len(rideColumnNames))
	for i, c := range rideColumnNames {
		qualified[i] = alias + "." + c
	}
	return strings.Join(qualified, ", ")
}

// rideRow is the storage shape of a ride
type rideRow struct {
	ID                       uuid.UUID  `db:"id"`
	PassengerID              uuid.UUID  `db:"passenger_id"`
	DriverID                 *uuid.UUID `db:"driver_id"`
	PickupLatitude           float64    `db:"pickup_latitude"`
	PickupLongitude          float64    `db:"pickup_longitude"`
	PickupAddress            string     `db:"pickup_address"`
	DestinationLatitude      float64    `db:"destination_latitude"`
	DestinationLongitude     float64    `db:"destination_longitude"`
	DestinationAddress       string     `db:"destination_address"`
	VehicleType              string     `db:"vehicle_type"`
	DistanceKm               float64    `db:"distance_km"`
	EstimatedFare            float64    `db:"estimated_fare"`
	EstimatedDurationMinutes int        `db:"estimated_duration_minutes"`
	ActualFare               *float64   `db:"actual_fare"`
	Status                   string     `db:"status"`
	CancellationReason       *string    `db:"cancellation_reason"`
	PassengerRating          *int       `db:"passenger_rating"`
	PassengerComment         *string    `db:"passenger_comment"`
	DriverRating             *int       `db:"driver_rating"`
	DriverComment            *string    `db:"driver_comment"`
	RequestedAt              time.Time  `db:"requested_at"`
	AcceptedAt               *time.Time `db:"accepted_at"`
	StartedAt                *time.Time `db:"started_at"`
	CompletedAt              *time.Time `db:"completed_at"`
	CancelledAt              *time.Time `db:"cancelled_at"`
	UpdatedAt                time.Time  `db:"updated_at"`
	Version                  int64      `db:"version"`
}

// toModel validates the stored status so malformed rows never reach callers
func (r rideRow) toModel() (models.Ride, error) {
	status := models.RideStatus(r.Status)
	if !status.IsValid() {
		return models.Ride{}, fmt.Errorf("ride %s has unknown status %q", r.ID, r.Status)
	}
	return models.Ride{
		ID:          r.ID,
		PassengerID: r.PassengerID,
		DriverID:    r.DriverID,
		Pickup: models.Location{
			Coordinates: models.Coordinates{Latitude: r.PickupLatitude, Longitude: r.PickupLongitude},
			Address:     r.PickupAddress,
		},
		Destination: models.Location{
			Coordinates: models.Coordinates{Latitude: r.DestinationLatitude, Longitude: r.DestinationLongitude},
			Address:     r.DestinationAddress,
		},
		VehicleType:              r.VehicleType,
		DistanceKm:               r.DistanceKm,
		EstimatedFare:            r.EstimatedFare,
		EstimatedDurationMinutes: r.EstimatedDurationMinutes,
		ActualFare:               r.ActualFare,
		Status:                   status,
		CancellationReason:       r.CancellationReason,
		PassengerRating:          r.PassengerRating,
		PassengerComment:         r.PassengerComment,
		DriverRating:             r.DriverRating,
		DriverComment:            r.DriverComment,
		RequestedAt:              r.RequestedAt,
		AcceptedAt:               r.AcceptedAt,
		StartedAt:                r.StartedAt,
		CompletedAt:              r.CompletedAt,
		CancelledAt:              r.CancelledAt,
		UpdatedAt:                r.UpdatedAt,
		Version:                  r.Version,
	}, nil
}

// RideRepo implements rides.RideRepo on PostgreSQL
type RideRepo struct {
	cfg *models.Config
	db  *sqlx.DB
}

// NewRideRepository creates a new ride repository
func NewRideRepository(cfg *models.Config, db *sqlx.DB) *RideRepo {
	return &RideRepo{
		cfg: cfg,
		db:  db,
	}
}

// CreateRide inserts a pending ride; store timestamps and version are written back
func (r *RideRepo) CreateRide(ctx context.Context, ride *models.Ride) error {
	defer nrpkg.StartPostgresSegment(ctx, "rides", "INSERT").End()

	query := `
		INSERT INTO rides (
			id, passenger_id, driver_id,
			pickup_latitude, pickup_longitude, pickup_address,
			destination_latitude, destination_longitude, destination_address,
			vehicle_type, distance_km, estimated_fare, estimated_duration_minutes, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING requested_at, updated_at, version`

	err := r.db.QueryRowxContext(ctx, query,
		ride.ID,
		ride.PassengerID,
		ride.DriverID,
		ride.Pickup.Latitude,
		ride.Pickup.Longitude,
		ride.Pickup.Address,
		ride.Destination.Latitude,
		ride.Destination.Longitude,
		ride.Destination.Address,
		ride.VehicleType,
		ride.DistanceKm,
		ride.EstimatedFare,
		ride.EstimatedDurationMinutes,
		ride.Status,
	).Scan(&ride.RequestedAt, &ride.UpdatedAt, &ride.Version)
	if err != nil {
		if database.IsUniqueViolation(err, activePassengerConstraint) {
			return models.ErrActiveRideExists
		}
		return models.Unavailable("create ride", err)
	}
	return nil
}

// GetRide retrieves a ride by ID
func (r *RideRepo) GetRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	defer nrpkg.StartPostgresSegment(ctx, "rides", "SELECT").End()

	query := fmt.Sprintf(`SELECT %s FROM rides WHERE id = $1`, rideColumns(""))
	ride, err := r.getOne(ctx, "get ride", query, rideID)
	if errors.Is(err, rides.ErrConditionFailed) {
		return nil, models.ErrRideNotFound
	}
	return ride, err
}

// GetActiveRideByPassenger returns the passenger's non-terminal ride, or nil
func (r *RideRepo) GetActiveRideByPassenger(ctx context.Context, passengerID uuid.UUID) (*models.Ride, error) {
	defer nrpkg.StartPostgresSegment(ctx, "rides", "SELECT").End()

	query := fmt.Sprintf(`SELECT %s FROM rides WHERE passenger_id = $1 AND status = ANY($2::text[]) LIMIT 1`, rideColumns(""))
	ride, err := r.getOne(ctx, "get active ride", query, passengerID, pq.Array(statusStrings(models.ActiveRideStatuses)))
	if errors.Is(err, rides.ErrConditionFailed) {
		return nil, nil
	}
	return ride, err
}

// AcceptRide binds driverID to a pending ride that is unassigned or targeted at them
func (r *RideRepo) AcceptRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	defer nrpkg.StartPostgresSegment(ctx, "rides", "UPDATE").End()

	query := fmt.Sprintf(`
		UPDATE rides
		SET status = 'accepted', driver_id = $2, accepted_at = NOW(), updated_at = NOW(), version = version + 1
		WHERE id = $1 AND status = 'pending' AND (driver_id IS NULL OR driver_id = $2)
		RETURNING %s`, rideColumns(""))
	return r.getOne(ctx, "accept ride", query, rideID, driverID)
}

// StartRide moves an accepted ride bound to driverID to in-progress
func (r *RideRepo) StartRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	defer nrpkg.StartPostgresSegment(ctx, "rides", "UPDATE").End()

	query := fmt.Sprintf(`
		UPDATE rides
		SET status = 'in-progress', started_at = NOW(), updated_at = NOW(), version = version + 1
		WHERE id = $1 AND status = 'accepted' AND driver_id = $2
		RETURNING %s`, rideColumns(""))
	return r.getOne(ctx, "start ride", query, rideID, driverID)
}

// CompleteRide finishes an in-progress ride; a nil actualFare charges the estimate
func (r *RideRepo) CompleteRide(ctx context.Context, rideID, driverID uuid.UUID, actualFare *float64) (*models.Ride, error) {
	defer nrpkg.StartPostgresSegment(ctx, "rides", "UPDATE").End()

	query := fmt.Sprintf(`
		UPDATE rides
		SET status = 'completed', actual_fare = COALESCE($3::double precision, estimated_fare),
			completed_at = NOW(), updated_at = NOW(), version = version + 1
		WHERE id = $1 AND status = 'in-progress' AND driver_id = $2
		RETURNING %s`, rideColumns(""))
	return r.getOne(ctx, "complete ride", query, rideID, driverID, actualFare)
}

// CancelRide cancels a ride that is still in status from
func (r *RideRepo) CancelRide(ctx context.Context, rideID uuid.UUID, from models.RideStatus, reason string) (*models.Ride, error) {
	defer nrpkg.StartPostgresSegment(ctx, "rides", "UPDATE").End()

	query := fmt.Sprintf(`
		UPDATE rides
		SET status = 'cancelled', cancellation_reason = $3, cancelled_at = NOW(), updated_at = NOW(), version = version + 1
		WHERE id = $1 AND status = $2
		RETURNING %s`, rideColumns(""))
	return r.getOne(ctx, "cancel ride", query, rideID, string(from), reason)
}

// RateRide stores one side's feedback on a completed ride, once
func (r *RideRepo) RateRide(ctx context.Context, rideID uuid.UUID, by models.Role, rating *int, comment *string) (*models.Ride, error) {
	defer nrpkg.StartPostgresSegment(ctx, "rides", "UPDATE").End()

	ratingCol, commentCol := "passenger_rating", "passenger_comment"
	if by == models.RoleDriver {
		ratingCol, commentCol = "driver_rating", "driver_comment"
	}

	query := fmt.Sprintf(`
		UPDATE rides
		SET %[1]s = $2, %[2]s = $3, updated_at = NOW(), version = version + 1
		WHERE id = $1 AND status = 'completed' AND %[1]s IS NULL AND %[2]s IS NULL
		RETURNING %[3]s`, ratingCol, commentCol, rideColumns(""))
	return r.getOne(ctx, "rate ride", query, rideID, rating, comment)
}

// ExpirePendingRides cancels every pending ride requested more than olderThan
// ago by the database clock
func (r *RideRepo) ExpirePendingRides(ctx context.Context, olderThan time.Duration, reason string) ([]models.Ride, error) {
	defer nrpkg.StartPostgresSegment(ctx, "rides", "UPDATE").End()

	query := fmt.Sprintf(`
		UPDATE rides
		SET status = 'cancelled', cancellation_reason = $2, cancelled_at = NOW(), updated_at = NOW(), version = version + 1
		WHERE status = 'pending' AND requested_at < NOW() - make_interval(secs => $1::double precision)
		RETURNING %s`, rideColumns(""))
	return r.getMany(ctx, r.db, "expire pending rides", query, olderThan.Seconds(), reason)
}

// ReleaseTarget clears the driver a pending ride was requested for, opening
// it to every eligible driver
func (r *RideRepo) ReleaseTarget(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	defer nrpkg.StartPostgresSegment(ctx, "rides", "UPDATE").End()

	query := fmt.Sprintf(`
		UPDATE rides
		SET driver_id = NULL, updated_at = NOW(), version = version + 1
		WHERE id = $1 AND status = 'pending' AND driver_id = $2
		RETURNING %s`, rideColumns(""))
	return r.getOne(ctx, "release ride target", query, rideID, driverID)
}

// ActiveSnapshot reads the user's active rides, and a driver's offers, from
// one read-only snapshot. ServerTime is the database clock at the start of
// that snapshot, the same clock that stamps updated_at.
func (r *RideRepo) ActiveSnapshot(ctx context.Context, userID uuid.UUID, role models.Role) (*models.ActiveRides, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, models.Unavailable("begin active snapshot", err)
	}
	defer func() { _ = tx.Rollback() }()

	result := &models.ActiveRides{}
	if err := tx.QueryRowxContext(ctx, `SELECT NOW()`).Scan(&result.ServerTime); err != nil {
		return nil, models.Unavailable("read server time", err)
	}
	result.ServerTime = result.ServerTime.UTC()

	if result.Rides, err = r.listActiveRides(ctx, tx, userID, role); err != nil {
		return nil, err
	}
	if role == models.RoleDriver {
		if result.Offers, err = r.listOffers(ctx, tx, userID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, models.Unavailable("commit active snapshot", err)
	}
	return result, nil
}

// ListActiveRides returns the user's non-terminal rides. A driver only sees
// rides bound to them; pending offers are listed by ListOffers.
func (r *RideRepo) ListActiveRides(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.Ride, error) {
	return r.listActiveRides(ctx, r.db, userID, role)
}

func (r *RideRepo) listActiveRides(ctx context.Context, q sqlx.QueryerContext, userID uuid.UUID, role models.Role) ([]models.Ride, error) {
	defer nrpkg.StartPostgresSegment(ctx, "rides", "SELECT").End()

	column := "passenger_id"
	statuses := models.ActiveRideStatuses
	if role == models.RoleDriver {
		column = "driver_id"
		statuses = []models.RideStatus{models.RideStatusAccepted, models.RideStatusInProgress}
	}

	query := fmt.Sprintf(`SELECT %s FROM rides WHERE %s = $1 AND status = ANY($2::text[]) ORDER BY requested_at`,
		rideColumns(""), column)
	return r.getMany(ctx, q, "list active rides", query, userID, pq.Array(statusStrings(statuses)))
}

// ListOffers returns pending rides offered to driverID that they have not rejected
func (r *RideRepo) ListOffers(ctx context.Context, driverID uuid.UUID) ([]models.Ride, error) {
	return r.listOffers(ctx, r.db, driverID)
}

func (r *RideRepo) listOffers(ctx context.Context, q sqlx.QueryerContext, driverID uuid.UUID) ([]models.Ride, error) {
	defer nrpkg.StartPostgresSegment(ctx, "ride_offers", "SELECT").End()

	query := fmt.Sprintf(`
		SELECT %s
		FROM rides r
		JOIN ride_offers o ON o.ride_id = r.id
		WHERE o.driver_id = $1 AND o.rejected_at IS NULL
			AND r.status = 'pending' AND (r.driver_id IS NULL OR r.driver_id = $1)
		ORDER BY r.requested_at`, rideColumns("r"))
	return r.getMany(ctx, q, "list offers", query, driverID)
}

// RecordOffers remembers which drivers a ride was pushed to
func (r *RideRepo) RecordOffers(ctx context.Context, rideID uuid.UUID, driverIDs []uuid.UUID) error {
	if len(driverIDs) == 0 {
		return nil
	}
	defer nrpkg.StartPostgresSegment(ctx, "ride_offers", "INSERT").End()

	query := `
		INSERT INTO ride_offers (ride_id, driver_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT (ride_id, driver_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, rideID, pq.Array(uuidStrings(driverIDs))); err != nil {
		return models.Unavailable("record offers", err)
	}
	return nil
}

// RejectOffer marks the driver's offer as rejected, creating it if needed
func (r *RideRepo) RejectOffer(ctx context.Context, rideID, driverID uuid.UUID) error {
	defer nrpkg.StartPostgresSegment(ctx, "ride_offers", "INSERT").End()

	query := `
		INSERT INTO ride_offers (ride_id, driver_id, rejected_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (ride_id, driver_id)
		DO UPDATE SET rejected_at = COALESCE(ride_offers.rejected_at, EXCLUDED.rejected_at)`
	if _, err := r.db.ExecContext(ctx, query, rideID, driverID); err != nil {
		return models.Unavailable("reject offer", err)
	}
	return nil
}

// ListOfferedDrivers returns drivers holding a live offer for the ride
func (r *RideRepo) ListOfferedDrivers(ctx context.Context, rideID uuid.UUID) ([]uuid.UUID, error) {
	return r.listOfferDrivers(ctx, rideID, "rejected_at IS NULL")
}

// ListRejectedDrivers returns drivers who rejected the ride
func (r *RideRepo) ListRejectedDrivers(ctx context.Context, rideID uuid.UUID) ([]uuid.UUID, error) {
	return r.listOfferDrivers(ctx, rideID, "rejected_at IS NOT NULL")
}

func (r *RideRepo) listOfferDrivers(ctx context.Context, rideID uuid.UUID, condition string) ([]uuid.UUID, error) {
	defer nrpkg.StartPostgresSegment(ctx, "ride_offers", "SELECT").End()

	var ids []uuid.UUID
	query := `SELECT driver_id FROM ride_offers WHERE ride_id = $1 AND ` + condition + ` ORDER BY offered_at`
	if err := r.db.SelectContext(ctx, &ids, query, rideID); err != nil {
		return nil, models.Unavailable("list offer drivers", err)
	}
	return ids, nil
}

// getOne runs a single-row query; no row yields rides.ErrConditionFailed
func (r *RideRepo) getOne(ctx context.Context, op, query string, args ...interface{}) (*models.Ride, error) {
	var row rideRow
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rides.ErrConditionFailed
		}
		return nil, models.Unavailable(op, err)
	}
	ride, err := row.toModel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &ride, nil
}

func (r *RideRepo) getMany(ctx context.Context, q sqlx.QueryerContext, op, query string, args ...interface{}) ([]models.Ride, error) {
	var rows []rideRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, models.Unavailable(op, err)
	}
	result := make([]models.Ride, 0, len(rows))
	for _, row := range rows {
		ride, err := row.toModel()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, ride)
	}
	return result, nil
}

func statusStrings(statuses []models.RideStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
