package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the identity role carried in the access token
type Role string

const (
	RolePassenger Role = "passenger"
	RoleDriver    Role = "driver"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RolePassenger || r == RoleDriver
}

// Vehicle describes the car a driver is dispatched with
type Vehicle struct {
	Type  string `json:"type" db:"vehicle_type"`
	Plate string `json:"plate" db:"vehicle_plate"`
	Model string `json:"model" db:"vehicle_model"`
}

// DriverPresence is the dispatch-relevant projection of a driver
type DriverPresence struct {
	ID          uuid.UUID   `json:"id"`
	Location    Coordinates `json:"location"`
	HasLocation bool        `json:"has_location"`
	IsOnline    bool        `json:"is_online"`
	IsVerified  bool        `json:"is_verified"`
	Rating      *float64    `json:"rating,omitempty"`
	Vehicle     Vehicle     `json:"vehicle"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// PassengerProfile is the passenger projection updated by rating aggregation
type PassengerProfile struct {
	ID     uuid.UUID `json:"id" db:"id"`
	Rating *float64  `json:"rating,omitempty" db:"rating"`
}

// PresenceUpdate is a driver's own location ping or availability toggle
type PresenceUpdate struct {
	Location *Coordinates `json:"location,omitempty"`
	IsOnline *bool        `json:"is_online,omitempty"`
}

// MatchQuery asks for drivers eligible to serve a pickup
type MatchQuery struct {
	Pickup            Coordinates `json:"pickup"`
	RadiusKm          float64     `json:"radius_km,omitempty"`
	PreferredDriverID *uuid.UUID  `json:"preferred_driver_id,omitempty"`
	ExcludeDriverIDs  []uuid.UUID `json:"exclude_driver_ids,omitempty"`
}

// MatchStatus distinguishes an empty result from a usable one
type MatchStatus string

const (
	MatchStatusOK        MatchStatus = "ok"
	MatchStatusNoDrivers MatchStatus = "no_drivers"
)

// EligibleDriver is a candidate with its straight-line distance to the pickup
type EligibleDriver struct {
	DriverPresence
	DistanceKm float64 `json:"distance_km"`
	Preferred  bool    `json:"preferred"`
}

// MatchResult is the outcome of a matching query
type MatchResult struct {
	Status   MatchStatus      `json:"status"`
	Zone     string           `json:"zone,omitempty"`
	RadiusKm float64          `json:"radius_km"`
	Drivers  []EligibleDriver `json:"drivers"`
}
