package constants

// WebSocket event types
const (
	EventError = "error"
	EventPing  = "ping"
	EventPong  = "pong"

	// server to client
	EventSnapshot = "snapshot"

	// client to server
	EventSelectRide = "select_ride"
	EventViewChat   = "view_chat"
	EventResync     = "resync"
)

// WebSocket error codes
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeUnknownEvent   = "unknown_event"
)
