package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// WSMessage represents a WebSocket message structure
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WSErrorMessage represents an error message sent over WebSocket
type WSErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SelectRideCommand asks the session to point the current display at a ride
type SelectRideCommand struct {
	RideID *uuid.UUID `json:"ride_id"`
}

// ViewChatCommand marks a ride's chat thread as viewed
type ViewChatCommand struct {
	RideID uuid.UUID `json:"ride_id"`
}

// SessionSnapshot is the state pushed to a client after every change
type SessionSnapshot struct {
	UserID         uuid.UUID                   `json:"user_id"`
	Role           Role                        `json:"role"`
	ActiveRides    []Ride                      `json:"active_rides"`
	Offers         []Ride                      `json:"offers,omitempty"`
	SelectedRideID *uuid.UUID                  `json:"selected_ride_id,omitempty"`
	CurrentRide    *Ride                       `json:"current_ride,omitempty"`
	Messages       map[uuid.UUID][]ChatMessage `json:"messages"`
	Unread         map[uuid.UUID]int           `json:"unread"`
}
