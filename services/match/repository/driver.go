package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	nrpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/newrelic"
)

const driverColumns = `id, latitude, longitude, is_online, is_verified, rating,
	vehicle_type, vehicle_plate, vehicle_model, updated_at`

// driverRow is the storage shape of a driver; location is NULL until the
// first ping
type driverRow struct {
	ID           uuid.UUID `db:"id"`
	Latitude     *float64  `db:"latitude"`
	Longitude    *float64  `db:"longitude"`
	IsOnline     bool      `db:"is_online"`
	IsVerified   bool      `db:"is_verified"`
	Rating       *float64  `db:"rating"`
	VehicleType  string    `db:"vehicle_type"`
	VehiclePlate string    `db:"vehicle_plate"`
	VehicleModel string    `db:"vehicle_model"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r driverRow) toModel() models.DriverPresence {
	p := models.DriverPresence{
		ID:         r.ID,
		IsOnline:   r.IsOnline,
		IsVerified: r.IsVerified,
		Rating:     r.Rating,
		Vehicle: models.Vehicle{
			Type:  r.VehicleType,
			Plate: r.VehiclePlate,
			Model: r.VehicleModel,
		},
		UpdatedAt: r.UpdatedAt,
	}
	if r.Latitude != nil && r.Longitude != nil {
		p.Location = models.Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}
		p.HasLocation = true
	}
	return p
}

// DriverRepo implements match.DriverRepo on PostgreSQL
type DriverRepo struct {
	db *sqlx.DB
}

// NewDriverRepository creates a new driver repository
func NewDriverRepository(db *sqlx.DB) *DriverRepo {
	return &DriverRepo{db: db}
}

// GetDriver returns one driver's presence
func (r *DriverRepo) GetDriver(ctx context.Context, driverID uuid.UUID) (*models.DriverPresence, error) {
	defer nrpkg.StartPostgresSegment(ctx, "drivers", "SELECT").End()

	var row driverRow
	err := r.db.GetContext(ctx, &row, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, driverID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrDriverNotFound
	}
	if err != nil {
		return nil, models.Unavailable("get driver", err)
	}

	p := row.toModel()
	return &p, nil
}

// ListOnlineDrivers returns every online driver with a known location
func (r *DriverRepo) ListOnlineDrivers(ctx context.Context) ([]models.DriverPresence, error) {
	defer nrpkg.StartPostgresSegment(ctx, "drivers", "SELECT").End()

	var rows []driverRow
	query := `SELECT ` + driverColumns + ` FROM drivers
		WHERE is_online AND latitude IS NOT NULL AND longitude IS NOT NULL`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, models.Unavailable("list online drivers", err)
	}
	return toModels(rows), nil
}

// UpdateLocation stores the driver's latest position
func (r *DriverRepo) UpdateLocation(ctx context.Context, driverID uuid.UUID, location models.Coordinates) (*models.DriverPresence, error) {
	defer nrpkg.StartPostgresSegment(ctx, "drivers", "UPDATE").End()

	query := `UPDATE drivers SET latitude = $2, longitude = $3, updated_at = NOW()
		WHERE id = $1 RETURNING ` + driverColumns
	return r.updateReturning(ctx, "update driver location", query, driverID, location.Latitude, location.Longitude)
}

// SetOnline toggles the driver's availability
func (r *DriverRepo) SetOnline(ctx context.Context, driverID uuid.UUID, online bool) (*models.DriverPresence, error) {
	defer nrpkg.StartPostgresSegment(ctx, "drivers", "UPDATE").End()

	query := `UPDATE drivers SET is_online = $2, updated_at = NOW()
		WHERE id = $1 RETURNING ` + driverColumns
	return r.updateReturning(ctx, "set driver online", query, driverID, online)
}

func (r *DriverRepo) updateReturning(ctx context.Context, op, query string, args ...interface{}) (*models.DriverPresence, error) {
	var row driverRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrDriverNotFound
	}
	if err != nil {
		return nil, models.Unavailable(op, err)
	}

	p := row.toModel()
	return &p, nil
}

func toModels(rows []driverRow) []models.DriverPresence {
	out := make([]models.DriverPresence, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out
}
