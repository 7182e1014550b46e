package models

import "time"

// Coordinates is a WGS84 latitude/longitude pair in degrees
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location is a point with the human readable address shown to users
type Location struct {
	Coordinates
	Address string `json:"address,omitempty"`
}

// LocationUpdate is a driver location ping
type LocationUpdate struct {
	DriverID  string      `json:"driver_id"`
	Location  Coordinates `json:"location"`
	CreatedAt time.Time   `json:"created_at"`
}

// ServiceZone is an area where dispatch is configured. A pickup belongs to
// the zone whose geohash prefix it starts with.
type ServiceZone struct {
	Name           string  `json:"name" mapstructure:"name"`
	GeohashPrefix  string  `json:"geohash_prefix" mapstructure:"geohash_prefix"`
	SearchRadiusKm float64 `json:"search_radius_km" mapstructure:"search_radius_km"`
}
