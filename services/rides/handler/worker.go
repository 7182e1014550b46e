package handler

import (
	"context"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	nrpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/newrelic"
	"github.com/piresc/nebengjek-dispatch/services/rides"
)

const defaultExpiryInterval = 30 * time.Second

// ExpiryWorker periodically cancels pending rides nobody accepted
type ExpiryWorker struct {
	rideUC   rides.RideUC
	ttl      time.Duration
	interval time.Duration
	nrApp    *newrelic.Application
	logger   *logger.ZapLogger
}

// NewExpiryWorker creates the worker; a zero PendingTTL makes Run return at once
func NewExpiryWorker(rideUC rides.RideUC, cfg models.RidesConfig, nrApp *newrelic.Application, log *logger.ZapLogger) *ExpiryWorker {
	interval := cfg.ExpiryInterval
	if interval <= 0 {
		interval = defaultExpiryInterval
	}
	return &ExpiryWorker{
		rideUC:   rideUC,
		ttl:      cfg.PendingTTL,
		interval: interval,
		nrApp:    nrApp,
		logger:   log.Named("ride-expiry"),
	}
}

// Run sweeps until ctx is cancelled
func (w *ExpiryWorker) Run(ctx context.Context) error {
	if w.ttl <= 0 {
		w.logger.Info("Pending ride expiry disabled")
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	txnCtx, txn := nrpkg.StartBackgroundTransaction(ctx, w.nrApp, "Rides.ExpirePendingRides")
	if txn != nil {
		defer txn.End()
	}

	if _, err := w.rideUC.ExpirePendingRides(txnCtx, w.ttl); err != nil {
		w.logger.Error("Failed to expire pending rides", logger.Err(err))
		if txn != nil {
			txn.NoticeError(err)
		}
	}
}
