package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/geo"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	nrpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/newrelic"
	"github.com/piresc/nebengjek-dispatch/services/match"
	"github.com/piresc/nebengjek-dispatch/services/match/metrics"
)

type matchUC struct {
	driverRepo    match.DriverRepo
	index         match.PresenceIndex
	zones         *geo.ZoneTable
	defaultRadius float64
	metrics       *metrics.Metrics
	logger        *logger.ZapLogger
}

// NewMatchUC creates the matching use case. index may be nil, in which case
// every query reads the driver directory.
func NewMatchUC(
	cfg models.MatchConfig,
	zones []models.ServiceZone,
	driverRepo match.DriverRepo,
	index match.PresenceIndex,
	m *metrics.Metrics,
	log *logger.ZapLogger,
) match.MatchUC {
	return &matchUC{
		driverRepo:    driverRepo,
		index:         index,
		zones:         geo.NewZoneTable(zones),
		defaultRadius: cfg.SearchRadiusKm,
		metrics:       m,
		logger:        log.Named("match-usecase"),
	}
}

// FindEligibleDrivers returns the online drivers within the search radius of
// the pickup, verified drivers only when any are in range, nearest first
func (uc *matchUC) FindEligibleDrivers(ctx context.Context, query models.MatchQuery) (*models.MatchResult, error) {
	start := time.Now()
	result, err := nrpkg.WithSegmentAndReturn(ctx, "Match.FindEligibleDrivers", func() (*models.MatchResult, error) {
		return uc.findEligibleDrivers(ctx, query)
	})

	switch {
	case err == nil:
		uc.metrics.ObserveQuery(string(result.Status), len(result.Drivers), start)
	case errors.Is(err, models.ErrConfigurationMissing):
		uc.metrics.ObserveQuery("configuration_missing", 0, start)
	default:
		uc.metrics.ObserveQuery("error", 0, start)
	}
	return result, err
}

func (uc *matchUC) findEligibleDrivers(ctx context.Context, query models.MatchQuery) (*models.MatchResult, error) {
	if err := geo.Validate(query.Pickup); err != nil {
		return nil, err
	}
	if query.RadiusKm < 0 {
		return nil, models.NewValidationError("radius_km", "must not be negative")
	}

	zone, radius, err := uc.searchArea(query)
	if err != nil {
		return nil, err
	}

	candidates, err := uc.onlineDrivers(ctx, query.Pickup, radius)
	if err != nil {
		return nil, err
	}

	excluded := make(map[uuid.UUID]struct{}, len(query.ExcludeDriverIDs))
	for _, id := range query.ExcludeDriverIDs {
		excluded[id] = struct{}{}
	}

	var inRange []models.EligibleDriver
	for _, d := range candidates {
		if !d.IsOnline || !d.HasLocation {
			continue
		}
		if _, skip := excluded[d.ID]; skip {
			continue
		}
		dist, err := geo.DistanceKm(query.Pickup, d.Location)
		if err != nil || dist > radius {
			continue
		}
		inRange = append(inRange, models.EligibleDriver{DriverPresence: d, DistanceKm: dist})
	}

	eligible := preferVerified(inRange)
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].DistanceKm < eligible[j].DistanceKm
	})
	if query.PreferredDriverID != nil {
		for i := range eligible {
			if eligible[i].ID == *query.PreferredDriverID {
				eligible[i].Preferred = true
			}
		}
	}

	result := &models.MatchResult{
		Status:   models.MatchStatusOK,
		Zone:     zone,
		RadiusKm: radius,
		Drivers:  eligible,
	}
	if len(eligible) == 0 {
		result.Status = models.MatchStatusNoDrivers
		result.Drivers = []models.EligibleDriver{}
	}

	uc.logger.Debug("Matched drivers",
		logger.String("zone", zone),
		logger.Float64("radius_km", radius),
		logger.Int("candidates", len(candidates)),
		logger.Int("eligible", len(eligible)))
	return result, nil
}

// searchArea resolves the zone name and radius used for the query
func (uc *matchUC) searchArea(query models.MatchQuery) (string, float64, error) {
	if uc.zones.Len() > 0 {
		zone, ok := uc.zones.Resolve(query.Pickup)
		if !ok {
			return "", 0, fmt.Errorf("no service zone covers %.5f,%.5f: %w",
				query.Pickup.Latitude, query.Pickup.Longitude, models.ErrConfigurationMissing)
		}
		if query.RadiusKm > 0 {
			return zone.Name, query.RadiusKm, nil
		}
		return zone.Name, zone.SearchRadiusKm, nil
	}

	if query.RadiusKm > 0 {
		return "", query.RadiusKm, nil
	}
	if uc.defaultRadius <= 0 {
		return "", 0, fmt.Errorf("no search radius configured: %w", models.ErrConfigurationMissing)
	}
	return "", uc.defaultRadius, nil
}

// onlineDrivers reads the radius index, falling back to the directory when
// the index is unavailable
func (uc *matchUC) onlineDrivers(ctx context.Context, pickup models.Coordinates, radius float64) ([]models.DriverPresence, error) {
	if uc.index != nil {
		drivers, err := uc.index.Nearby(ctx, pickup, radius)
		if err == nil {
			return drivers, nil
		}
		uc.logger.Warn("Driver index unavailable, reading directory", logger.Err(err))
	}

	drivers, err := uc.driverRepo.ListOnlineDrivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list online drivers: %w", err)
	}
	return drivers, nil
}

// preferVerified keeps only verified drivers when at least one is present
func preferVerified(drivers []models.EligibleDriver) []models.EligibleDriver {
	verified := make([]models.EligibleDriver, 0, len(drivers))
	for _, d := range drivers {
		if d.IsVerified {
			verified = append(verified, d)
		}
	}
	if len(verified) > 0 {
		return verified
	}
	return drivers
}

// GetPresence returns the driver's directory entry
func (uc *matchUC) GetPresence(ctx context.Context, driverID uuid.UUID) (*models.DriverPresence, error) {
	return uc.driverRepo.GetDriver(ctx, driverID)
}

// UpdatePresence applies a driver's own location ping and availability
// toggle, then refreshes the radius index
func (uc *matchUC) UpdatePresence(ctx context.Context, driverID uuid.UUID, update models.PresenceUpdate) (*models.DriverPresence, error) {
	if update.Location == nil && update.IsOnline == nil {
		return nil, models.NewValidationError("presence", "location or is_online is required")
	}
	if update.Location != nil {
		if err := geo.Validate(*update.Location); err != nil {
			return nil, err
		}
	}

	var (
		presence *models.DriverPresence
		err      error
	)
	if update.Location != nil {
		if presence, err = uc.driverRepo.UpdateLocation(ctx, driverID, *update.Location); err != nil {
			return nil, err
		}
	}
	if update.IsOnline != nil {
		if *update.IsOnline && update.Location == nil {
			current, err := uc.driverRepo.GetDriver(ctx, driverID)
			if err != nil {
				return nil, err
			}
			if !current.HasLocation {
				return nil, models.NewValidationError("location", "is required before going online")
			}
		}
		if presence, err = uc.driverRepo.SetOnline(ctx, driverID, *update.IsOnline); err != nil {
			return nil, err
		}
	}

	if uc.index != nil {
		if err := uc.index.Upsert(ctx, *presence); err != nil {
			// the directory stays authoritative; matching falls back to it
			uc.logger.Warn("Failed to refresh driver index",
				logger.UUID("driver_id", driverID),
				logger.Err(err))
		}
	}

	uc.logger.Debug("Driver presence updated",
		logger.UUID("driver_id", driverID),
		logger.Bool("is_online", presence.IsOnline))
	return presence, nil
}
