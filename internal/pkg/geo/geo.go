package geo

import (
	"math"
	"strings"

	"github.com/mmcloughlin/geohash"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// EarthRadiusKm is the mean Earth radius used by DistanceKm
const EarthRadiusKm = 6371.0

// ZonePrecision is the geohash length used for zone lookups
const ZonePrecision uint = 9

// Validate rejects NaN, infinite and out-of-range coordinates
func Validate(c models.Coordinates) error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) || c.Latitude < -90 || c.Latitude > 90 {
		return models.NewValidationError("latitude", "must be a number between -90 and 90")
	}
	if math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) || c.Longitude < -180 || c.Longitude > 180 {
		return models.NewValidationError("longitude", "must be a number between -180 and 180")
	}
	return nil
}

// DistanceKm returns the great-circle distance between a and b using the
// haversine formula.
func DistanceKm(a, b models.Coordinates) (float64, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	if err := Validate(b); err != nil {
		return 0, err
	}

	lat1 := a.Latitude * math.Pi / 180.0
	lat2 := b.Latitude * math.Pi / 180.0
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180.0

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h marginally outside [0, 1] for antipodal points
	h = math.Min(1, math.Max(0, h))

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h)), nil
}

// Encode returns the geohash of c at the given precision
func Encode(c models.Coordinates, precision uint) string {
	return geohash.EncodeWithPrecision(c.Latitude, c.Longitude, precision)
}

// ZoneTable resolves the service zone covering a point. The longest
// matching geohash prefix wins.
type ZoneTable struct {
	zones []models.ServiceZone
}

// NewZoneTable builds a lookup table from configured zones
func NewZoneTable(zones []models.ServiceZone) *ZoneTable {
	return &ZoneTable{zones: zones}
}

// Len returns the number of configured zones
func (t *ZoneTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.zones)
}

// Resolve returns the zone covering c
func (t *ZoneTable) Resolve(c models.Coordinates) (models.ServiceZone, bool) {
	if t.Len() == 0 {
		return models.ServiceZone{}, false
	}

	hash := Encode(c, ZonePrecision)
	var best models.ServiceZone
	found := false
	for _, z := range t.zones {
		if strings.HasPrefix(hash, z.GeohashPrefix) && len(z.GeohashPrefix) > len(best.GeohashPrefix) {
			best = z
			found = true
		}
	}
	return best, found
}
