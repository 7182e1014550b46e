package usecase

import (
	"math"

	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// FareEstimator prices a ride from its straight-line distance
type FareEstimator struct {
	cfg models.PricingConfig
}

// NewFareEstimator creates an estimator with the configured pricing
func NewFareEstimator(cfg models.PricingConfig) *FareEstimator {
	return &FareEstimator{cfg: cfg}
}

// Estimate returns base + distance * per-km rounded to cents, and the
// duration in whole minutes at the configured average speed
func (e *FareEstimator) Estimate(distanceKm float64) (fare float64, durationMinutes int) {
	if distanceKm < 0 {
		distanceKm = 0
	}
	fare = math.Round((e.cfg.BaseFare+distanceKm*e.cfg.PerKmRate)*100) / 100
	if e.cfg.AvgSpeedKmh > 0 {
		durationMinutes = int(math.Round(distanceKm / e.cfg.AvgSpeedKmh * 60))
	}
	return fare, durationMinutes
}
