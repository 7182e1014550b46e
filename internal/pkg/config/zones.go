package config

import (
	"fmt"
	"strings"

	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/spf13/viper"
)

// LoadZones reads the service zone table from a YAML or JSON file with a
// top-level "zones" list.
func LoadZones(path string) ([]models.ServiceZone, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read zones file: %w", err)
	}

	var zones []models.ServiceZone
	if err := v.UnmarshalKey("zones", &zones); err != nil {
		return nil, fmt.Errorf("failed to decode zones: %w", err)
	}

	for i := range zones {
		zones[i].GeohashPrefix = strings.ToLower(strings.TrimSpace(zones[i].GeohashPrefix))
		if zones[i].GeohashPrefix == "" {
			return nil, fmt.Errorf("zone %q: geohash_prefix is required", zones[i].Name)
		}
		if zones[i].SearchRadiusKm <= 0 {
			return nil, fmt.Errorf("zone %q: search_radius_km must be positive", zones[i].Name)
		}
	}

	return zones, nil
}
