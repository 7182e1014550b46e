package models

import (
	"time"

	"github.com/google/uuid"
)

// RideStatus represents the lifecycle status of a ride
type RideStatus string

const (
	RideStatusPending    RideStatus = "pending"
	RideStatusAccepted   RideStatus = "accepted"
	RideStatusInProgress RideStatus = "in-progress"
	RideStatusCompleted  RideStatus = "completed"
	RideStatusCancelled  RideStatus = "cancelled"
)

// ActiveRideStatuses are the non-terminal statuses
var ActiveRideStatuses = []RideStatus{
	RideStatusPending,
	RideStatusAccepted,
	RideStatusInProgress,
}

// IsActive reports whether the status is non-terminal
func (s RideStatus) IsActive() bool {
	return s == RideStatusPending || s == RideStatusAccepted || s == RideStatusInProgress
}

// IsValid reports whether s is a known status
func (s RideStatus) IsValid() bool {
	return s.IsActive() || s == RideStatusCompleted || s == RideStatusCancelled
}

// RideTransition names an operation on the ride state machine
type RideTransition string

const (
	TransitionAccept   RideTransition = "accept"
	TransitionReject   RideTransition = "reject"
	TransitionStart    RideTransition = "start"
	TransitionComplete RideTransition = "complete"
	TransitionCancel   RideTransition = "cancel"
)

// rideTransitions maps an operation to the statuses it may be applied from
// and the status it leads to.
var rideTransitions = map[RideTransition]struct {
	from []RideStatus
	to   RideStatus
}{
	TransitionAccept:   {from: []RideStatus{RideStatusPending}, to: RideStatusAccepted},
	TransitionReject:   {from: []RideStatus{RideStatusPending}, to: RideStatusPending},
	TransitionStart:    {from: []RideStatus{RideStatusAccepted}, to: RideStatusInProgress},
	TransitionComplete: {from: []RideStatus{RideStatusInProgress}, to: RideStatusCompleted},
	TransitionCancel:   {from: ActiveRideStatuses, to: RideStatusCancelled},
}

// CanTransition reports whether op is legal from status and the resulting status
func CanTransition(from RideStatus, op RideTransition) (RideStatus, bool) {
	t, ok := rideTransitions[op]
	if !ok {
		return from, false
	}
	for _, s := range t.from {
		if s == from {
			return t.to, true
		}
	}
	return from, false
}

// Ride is the central dispatch record shared by passenger and driver
type Ride struct {
	ID                       uuid.UUID  `json:"id"`
	PassengerID              uuid.UUID  `json:"passenger_id"`
	DriverID                 *uuid.UUID `json:"driver_id,omitempty"`
	Pickup                   Location   `json:"pickup"`
	Destination              Location   `json:"destination"`
	VehicleType              string     `json:"vehicle_type,omitempty"`
	DistanceKm               float64    `json:"distance_km"`
	EstimatedFare            float64    `json:"estimated_fare"`
	EstimatedDurationMinutes int        `json:"estimated_duration_minutes"`
	ActualFare               *float64   `json:"actual_fare,omitempty"`
	Status                   RideStatus `json:"status"`
	CancellationReason       *string    `json:"cancellation_reason,omitempty"`
	PassengerRating          *int       `json:"passenger_rating,omitempty"`
	PassengerComment         *string    `json:"passenger_comment,omitempty"`
	DriverRating             *int       `json:"driver_rating,omitempty"`
	DriverComment            *string    `json:"driver_comment,omitempty"`
	RequestedAt              time.Time  `json:"requested_at"`
	AcceptedAt               *time.Time `json:"accepted_at,omitempty"`
	StartedAt                *time.Time `json:"started_at,omitempty"`
	CompletedAt              *time.Time `json:"completed_at,omitempty"`
	CancelledAt              *time.Time `json:"cancelled_at,omitempty"`
	UpdatedAt                time.Time  `json:"updated_at"`
	Version                  int64      `json:"version"`
}

// HasDriver reports whether driverID is the ride's bound or targeted driver
func (r *Ride) HasDriver(driverID uuid.UUID) bool {
	return r.DriverID != nil && *r.DriverID == driverID
}

// IsParticipant reports whether userID is the passenger or the driver of the ride
func (r *Ride) IsParticipant(userID uuid.UUID) bool {
	return r.PassengerID == userID || r.HasDriver(userID)
}

// NewerThan orders two snapshots of the same ride by server write time,
// using the row version as tie-breaker.
func (r *Ride) NewerThan(other *Ride) bool {
	if other == nil {
		return true
	}
	if !r.UpdatedAt.Equal(other.UpdatedAt) {
		return r.UpdatedAt.After(other.UpdatedAt)
	}
	return r.Version > other.Version
}

// RatingResolved reports whether the given side has already handled the
// rating prompt: a numeric rating, a skip marker or any comment counts.
func (r *Ride) RatingResolved(by Role) bool {
	if by == RoleDriver {
		return r.DriverRating != nil || r.DriverComment != nil
	}
	return r.PassengerRating != nil || r.PassengerComment != nil
}

// RideRequest is the passenger's input when requesting a ride
type RideRequest struct {
	PassengerID       uuid.UUID  `json:"-"`
	Pickup            Location   `json:"pickup"`
	Destination       Location   `json:"destination"`
	VehicleType       string     `json:"vehicle_type"`
	PreferredDriverID *uuid.UUID `json:"preferred_driver_id,omitempty"`
}

// RideCompleteRequest carries the optional fare charged at completion
type RideCompleteRequest struct {
	ActualFare *float64 `json:"actual_fare,omitempty"`
}

// RideCancelRequest carries the optional free text given when cancelling
type RideCancelRequest struct {
	Note string `json:"note"`
}

// RatingSkipMarker is stored as comment when a party dismisses the rating prompt
const RatingSkipMarker = "__skipped__"

// RateRideRequest attaches feedback from one side of a completed ride
type RateRideRequest struct {
	RideID  uuid.UUID `json:"-"`
	UserID  uuid.UUID `json:"-"`
	Role    Role      `json:"-"`
	Rating  *int      `json:"rating,omitempty"`
	Comment *string   `json:"comment,omitempty"`
	Skip    bool      `json:"skip"`
}

// ActiveRides is the reconciling-fetch payload for one participant
type ActiveRides struct {
	Rides      []Ride    `json:"rides"`
	Offers     []Ride    `json:"offers"`
	ServerTime time.Time `json:"server_time"`
}

// RideOffer records that a pending ride was pushed to a driver
type RideOffer struct {
	RideID     uuid.UUID  `json:"ride_id" db:"ride_id"`
	DriverID   uuid.UUID  `json:"driver_id" db:"driver_id"`
	OfferedAt  time.Time  `json:"offered_at" db:"offered_at"`
	RejectedAt *time.Time `json:"rejected_at,omitempty" db:"rejected_at"`
}

// FareEstimate is the price and duration shown before a ride is requested
type FareEstimate struct {
	DistanceKm      float64 `json:"distance_km"`
	Fare            float64 `json:"fare"`
	DurationMinutes int     `json:"duration_minutes"`
	Currency        string  `json:"currency"`
}

// ReceivedRating is the feedback one party received on a completed ride
type ReceivedRating struct {
	RideID  uuid.UUID `db:"ride_id"`
	Rating  *int      `db:"rating"`
	Comment *string   `db:"comment"`
}

// IsSkip reports whether the prompt was dismissed without a score
func (r ReceivedRating) IsSkip() bool {
	return r.Rating == nil && r.Comment != nil && *r.Comment == RatingSkipMarker
}
