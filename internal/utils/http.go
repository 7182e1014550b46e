package utils

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// SuccessResponse sends a success response with data
func SuccessResponse(c echo.Context, statusCode int, message string, data interface{}) error {
	return c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponseHandler sends an error response
func ErrorResponseHandler(c echo.Context, statusCode int, errorMessage string) error {
	return c.JSON(statusCode, ErrorResponse{
		Success: false,
		Error:   errorMessage,
		Code:    statusCode,
	})
}

// BadRequestResponse sends a 400 Bad Request response
func BadRequestResponse(c echo.Context, errorMessage string) error {
	return ErrorResponseHandler(c, http.StatusBadRequest, errorMessage)
}

// UnauthorizedResponse sends a 401 Unauthorized response
func UnauthorizedResponse(c echo.Context, errorMessage string) error {
	if errorMessage == "" {
		errorMessage = "Unauthorized"
	}
	return ErrorResponseHandler(c, http.StatusUnauthorized, errorMessage)
}

// ForbiddenResponse sends a 403 Forbidden response
func ForbiddenResponse(c echo.Context, errorMessage string) error {
	if errorMessage == "" {
		errorMessage = "Forbidden"
	}
	return ErrorResponseHandler(c, http.StatusForbidden, errorMessage)
}

// domainErrors maps sentinel errors to a status, a machine-readable reason
// and the message shown to the user.
var domainErrors = []struct {
	err     error
	status  int
	reason  string
	message string
}{
	{models.ErrAlreadyTaken, http.StatusConflict, "already_taken", "This ride was just accepted by another driver. Refresh to see other requests."},
	{models.ErrInvalidTransition, http.StatusConflict, "invalid_transition", "This ride has changed in the meantime. Refresh to see its current status."},
	{models.ErrActiveRideExists, http.StatusConflict, "active_ride_exists", "You already have a ride in progress. Finish or cancel it first."},
	{models.ErrAlreadyRated, http.StatusConflict, "already_rated", "You have already rated this ride."},
	{models.ErrConfigurationMissing, http.StatusUnprocessableEntity, "configuration_missing", "Rides are not available in this area yet."},
	{models.ErrRideNotFound, http.StatusNotFound, "ride_not_found", "Ride not found."},
	{models.ErrDriverNotFound, http.StatusNotFound, "driver_not_found", "Driver not found."},
	{models.ErrNotParticipant, http.StatusForbidden, "not_participant", "You are not allowed to act on this ride."},
	{models.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable", "Service is temporarily unavailable. Please try again."},
}

// StatusForError returns the HTTP status and reason for a domain error
func StatusForError(err error) (int, string) {
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, "validation_error"
	}
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			return d.status, d.reason
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// DomainErrorResponse writes err as an actionable error response
func DomainErrorResponse(c echo.Context, err error) error {
	status, reason := StatusForError(err)

	message := "Something went wrong. Please try again."
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		message = vErr.Error()
	} else {
		for _, d := range domainErrors {
			if errors.Is(err, d.err) {
				message = d.message
				break
			}
		}
	}

	return c.JSON(status, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    status,
		Reason:  reason,
	})
}

// ErrorForReason maps a reason written by DomainErrorResponse back to its
// sentinel error, or nil when the reason is unknown
func ErrorForReason(reason string) error {
	if reason == "validation_error" {
		return models.ErrValidation
	}
	for _, d := range domainErrors {
		if d.reason == reason {
			return d.err
		}
	}
	return nil
}
