package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	nrpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/newrelic"
)

// RatingRepo implements ratings.RatingRepo on PostgreSQL
type RatingRepo struct {
	db *sqlx.DB
}

// NewRatingRepository creates a new rating repository
func NewRatingRepository(db *sqlx.DB) *RatingRepo {
	return &RatingRepo{db: db}
}

// ListReceivedRatings reads the scores given by the other side. A driver is
// rated through passenger_rating, a passenger through driver_rating.
func (r *RatingRepo) ListReceivedRatings(ctx context.Context, party models.Role, partyID uuid.UUID) ([]models.ReceivedRating, error) {
	defer nrpkg.StartPostgresSegment(ctx, "rides", "SELECT").End()

	query := `
		SELECT id AS ride_id, passenger_rating AS rating, passenger_comment AS comment
		FROM rides
		WHERE driver_id = $1 AND status = 'completed'
		ORDER BY completed_at`
	if party == models.RolePassenger {
		query = `
		SELECT id AS ride_id, driver_rating AS rating, driver_comment AS comment
		FROM rides
		WHERE passenger_id = $1 AND status = 'completed'
		ORDER BY completed_at`
	}

	var ratings []models.ReceivedRating
	if err := r.db.SelectContext(ctx, &ratings, query, partyID); err != nil {
		return nil, models.Unavailable("list received ratings", err)
	}
	return ratings, nil
}

// SaveAverage writes the party's profile rating; a nil average clears it
func (r *RatingRepo) SaveAverage(ctx context.Context, party models.Role, partyID uuid.UUID, average *float64) error {
	if party == models.RolePassenger {
		defer nrpkg.StartPostgresSegment(ctx, "passenger_profiles", "UPSERT").End()

		query := `
			INSERT INTO passenger_profiles (id, rating, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (id) DO UPDATE SET rating = EXCLUDED.rating, updated_at = NOW()`
		if _, err := r.db.ExecContext(ctx, query, partyID, average); err != nil {
			return models.Unavailable("save passenger rating", err)
		}
		return nil
	}

	defer nrpkg.StartPostgresSegment(ctx, "drivers", "UPDATE").End()

	result, err := r.db.ExecContext(ctx, `UPDATE drivers SET rating = $2, updated_at = NOW() WHERE id = $1`, partyID, average)
	if err != nil {
		return models.Unavailable("save driver rating", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return models.Unavailable("save driver rating", err)
	}
	if rows == 0 {
		return models.ErrDriverNotFound
	}
	return nil
}
