package models

import (
	"time"

	"github.com/google/uuid"
)

// FeedOp is the kind of change carried by a feed event
type FeedOp string

const (
	FeedOpInsert FeedOp = "insert"
	FeedOpUpdate FeedOp = "update"
	// FeedOpWithdraw tells a single driver that an offer no longer applies to them
	FeedOpWithdraw FeedOp = "withdraw"
)

// RideEvent is a ride row change published to the participants
type RideEvent struct {
	Op   FeedOp `json:"op"`
	Ride Ride   `json:"ride"`
}

// ChatEvent is a chat row change published to both parties of a ride
type ChatEvent struct {
	Op      FeedOp      `json:"op"`
	Message ChatMessage `json:"message"`
}

// RideRatedEvent triggers rating aggregation for the rated party
type RideRatedEvent struct {
	RideID      uuid.UUID `json:"ride_id"`
	PassengerID uuid.UUID `json:"passenger_id"`
	DriverID    uuid.UUID `json:"driver_id"`
	RatedBy     Role      `json:"rated_by"`
	RatedAt     time.Time `json:"rated_at"`
}
