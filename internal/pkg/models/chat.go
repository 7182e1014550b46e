package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxChatBodyLength bounds a single chat message body
const MaxChatBodyLength = 1000

// ChatMessage belongs to exactly one ride and is visible to its two parties
type ChatMessage struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	RideID     uuid.UUID  `json:"ride_id" db:"ride_id"`
	SenderID   uuid.UUID  `json:"sender_id" db:"sender_id"`
	SenderType Role       `json:"sender_type" db:"sender_type"`
	Body       string     `json:"body" db:"body"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ReadAt     *time.Time `json:"read_at,omitempty" db:"read_at"`
}

// Before orders messages by creation time, then id
func (m *ChatMessage) Before(other *ChatMessage) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID.String() < other.ID.String()
}

// SendMessageRequest is the body of a chat send call
type SendMessageRequest struct {
	Body string `json:"body"`
}

// RideParties is the slice of a ride that decides who may chat on it
type RideParties struct {
	RideID      uuid.UUID  `db:"id"`
	PassengerID uuid.UUID  `db:"passenger_id"`
	DriverID    *uuid.UUID `db:"driver_id"`
	Status      RideStatus `db:"status"`
}

// RoleOf returns the role userID plays on the ride
func (p RideParties) RoleOf(userID uuid.UUID) (Role, bool) {
	switch {
	case userID == p.PassengerID:
		return RolePassenger, true
	case p.DriverID != nil && *p.DriverID == userID:
		return RoleDriver, true
	}
	return "", false
}

// Recipients lists both parties, the driver only once bound
func (p RideParties) Recipients() []uuid.UUID {
	if p.DriverID == nil {
		return []uuid.UUID{p.PassengerID}
	}
	return []uuid.UUID{p.PassengerID, *p.DriverID}
}

// ChatOpen reports whether messages may be sent on the ride
func (p RideParties) ChatOpen() bool {
	return p.Status == RideStatusAccepted || p.Status == RideStatusInProgress
}
