package ratings

import (
	"context"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// RatingRepo reads received ratings and persists party averages
// go:generate mockgen -destination=mocks/mock_repository.go -package=mocks github.com/piresc/nebengjek-dispatch/services/ratings RatingRepo
type RatingRepo interface {
	// ListReceivedRatings returns the feedback attached to the party's
	// completed rides by the other side
	ListReceivedRatings(ctx context.Context, party models.Role, partyID uuid.UUID) ([]models.ReceivedRating, error)
	SaveAverage(ctx context.Context, party models.Role, partyID uuid.UUID, average *float64) error
}
