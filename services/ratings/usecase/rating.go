package usecase

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/piresc/nebengjek-dispatch/services/ratings"
	"github.com/piresc/nebengjek-dispatch/services/rides/metrics"
)

type ratingUC struct {
	repo    ratings.RatingRepo
	metrics *metrics.Metrics
	logger  *logger.ZapLogger
}

// NewRatingUC creates the rating aggregator
func NewRatingUC(repo ratings.RatingRepo, m *metrics.Metrics, log *logger.ZapLogger) ratings.RatingUC {
	return &ratingUC{
		repo:    repo,
		metrics: m,
		logger:  log.Named("ratings-usecase"),
	}
}

// HandleRideRated recomputes the average of the party that received the rating
func (uc *ratingUC) HandleRideRated(ctx context.Context, event models.RideRatedEvent) error {
	party, partyID := models.RoleDriver, event.DriverID
	if event.RatedBy == models.RoleDriver {
		party, partyID = models.RolePassenger, event.PassengerID
	}
	if partyID == uuid.Nil {
		// redelivering an event without a rated party can never succeed
		uc.logger.Error("Dropping ride rated event without rated party",
			logger.UUID("ride_id", event.RideID),
			logger.String("rated_by", string(event.RatedBy)))
		return nil
	}

	_, err := uc.Recompute(ctx, party, partyID)
	if errors.Is(err, models.ErrDriverNotFound) {
		// nothing to project onto; redelivery would not help
		uc.logger.Warn("Rated driver has no profile", logger.UUID("driver_id", partyID))
		return nil
	}
	return err
}

// Recompute reads every received rating and stores their mean
func (uc *ratingUC) Recompute(ctx context.Context, party models.Role, partyID uuid.UUID) (*float64, error) {
	received, err := uc.repo.ListReceivedRatings(ctx, party, partyID)
	if err != nil {
		return nil, err
	}

	average := Average(received)
	if err := uc.repo.SaveAverage(ctx, party, partyID, average); err != nil {
		return nil, err
	}

	uc.metrics.IncRatingRecomputed(string(party))
	uc.logger.Info("Rating recomputed",
		logger.String("party", string(party)),
		logger.UUID("party_id", partyID),
		logger.Any("average", average),
		logger.Int("rides", len(received)))
	return average, nil
}

// Average is the mean of the numeric ratings, rounded to two decimals.
// Skips and comment-only feedback do not count; nil when nothing counts.
func Average(received []models.ReceivedRating) *float64 {
	sum, n := 0, 0
	for _, r := range received {
		if r.Rating == nil {
			continue
		}
		sum += *r.Rating
		n++
	}
	if n == 0 {
		return nil
	}
	avg := math.Round(float64(sum)/float64(n)*100) / 100
	return &avg
}
