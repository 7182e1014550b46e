package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	natspkg "github.com/piresc/nebengjek-dispatch/internal/pkg/nats"
	nrpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/newrelic"
	"github.com/piresc/nebengjek-dispatch/services/ratings"
)

// RatingsHandler consumes ride.rated events
type RatingsHandler struct {
	ratingUC ratings.RatingUC
	nrApp    *newrelic.Application
	consumer *natspkg.Consumer
}

// NewRatingsHandler creates a new ratings NATS handler
func NewRatingsHandler(ratingUC ratings.RatingUC, nrApp *newrelic.Application) *RatingsHandler {
	return &RatingsHandler{
		ratingUC: ratingUC,
		nrApp:    nrApp,
	}
}

// Start attaches the durable rating consumer
func (h *RatingsHandler) Start(ctx context.Context, client *natspkg.Client) error {
	consumer, err := natspkg.NewJetStreamConsumer(ctx, client, natspkg.RatingConsumerConfig(), h.HandleRideRated)
	if err != nil {
		return fmt.Errorf("failed to start rating consumer: %w", err)
	}
	h.consumer = consumer
	return nil
}

// Stop detaches the consumer
func (h *RatingsHandler) Stop() {
	if h.consumer != nil {
		h.consumer.Stop()
	}
}

// HandleRideRated decodes one event and recomputes the rated party's average.
// Malformed payloads are dropped rather than redelivered.
func (h *RatingsHandler) HandleRideRated(ctx context.Context, msg jetstream.Msg) error {
	ctx, txn := nrpkg.StartBackgroundTransaction(ctx, h.nrApp, "Ratings.HandleRideRated")
	if txn != nil {
		defer txn.End()
	}

	var event models.RideRatedEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Error("Dropping malformed ride rated event",
			logger.String("subject", msg.Subject()),
			logger.Err(err))
		return nil
	}

	if err := h.ratingUC.HandleRideRated(ctx, event); err != nil {
		if txn != nil {
			txn.NoticeError(err)
		}
		return err
	}
	return nil
}
