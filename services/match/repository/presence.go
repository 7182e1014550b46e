package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/constants"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/database"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// GEORADIUS measures on a slightly larger sphere than the haversine filter,
// so the coarse query is widened to keep boundary drivers.
const radiusPadding = 1.01

// PresenceIndex implements match.PresenceIndex on a Redis geo set plus one
// expiring JSON entry per driver
type PresenceIndex struct {
	redis *database.RedisClient
	ttl   time.Duration
}

// NewPresenceIndex creates a presence index whose entries expire after ttl
// without a new ping
func NewPresenceIndex(redis *database.RedisClient, ttl time.Duration) *PresenceIndex {
	return &PresenceIndex{redis: redis, ttl: ttl}
}

func presenceKey(driverID string) string {
	return fmt.Sprintf(constants.KeyDriverPresence, driverID)
}

// Upsert indexes an online driver, or removes one that is offline or has no
// known location
func (p *PresenceIndex) Upsert(ctx context.Context, presence models.DriverPresence) error {
	if !presence.IsOnline || !presence.HasLocation {
		return p.Remove(ctx, presence.ID)
	}

	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("failed to encode presence: %w", err)
	}

	id := presence.ID.String()
	if err := p.redis.GeoAdd(ctx, constants.KeyDriverGeo, presence.Location.Longitude, presence.Location.Latitude, id); err != nil {
		return models.Unavailable("index driver location", err)
	}
	if err := p.redis.Set(ctx, presenceKey(id), data, p.ttl); err != nil {
		return models.Unavailable("store driver presence", err)
	}
	return nil
}

// Remove drops a driver from the index
func (p *PresenceIndex) Remove(ctx context.Context, driverID uuid.UUID) error {
	id := driverID.String()
	if err := p.redis.GeoRemove(ctx, constants.KeyDriverGeo, id); err != nil {
		return models.Unavailable("unindex driver", err)
	}
	if err := p.redis.Delete(ctx, presenceKey(id)); err != nil {
		return models.Unavailable("delete driver presence", err)
	}
	return nil
}

// Nearby returns indexed drivers around pickup, nearest first. Geo members
// whose presence entry expired are pruned.
func (p *PresenceIndex) Nearby(ctx context.Context, pickup models.Coordinates, radiusKm float64) ([]models.DriverPresence, error) {
	locations, err := p.redis.GeoRadius(ctx, constants.KeyDriverGeo, pickup.Longitude, pickup.Latitude, radiusKm*radiusPadding)
	if err != nil {
		return nil, models.Unavailable("query driver index", err)
	}
	if len(locations) == 0 {
		return nil, nil
	}

	keys := make([]string, len(locations))
	for i, loc := range locations {
		keys[i] = presenceKey(loc.Name)
	}
	values, err := p.redis.MGet(ctx, keys...)
	if err != nil {
		return nil, models.Unavailable("read driver presence", err)
	}

	drivers := make([]models.DriverPresence, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			p.prune(ctx, locations[i].Name)
			continue
		}

		var presence models.DriverPresence
		if err := json.Unmarshal([]byte(raw), &presence); err != nil {
			logger.WarnCtx(ctx, "Dropping unreadable driver presence",
				logger.String("driver_id", locations[i].Name),
				logger.Err(err))
			p.prune(ctx, locations[i].Name)
			continue
		}
		drivers = append(drivers, presence)
	}
	return drivers, nil
}

// prune removes a stale geo member; failure only delays cleanup
func (p *PresenceIndex) prune(ctx context.Context, member string) {
	if err := p.redis.GeoRemove(ctx, constants.KeyDriverGeo, member); err != nil {
		logger.WarnCtx(ctx, "Failed to prune stale driver",
			logger.String("driver_id", member),
			logger.Err(err))
	}
}
