package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/middleware"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/piresc/nebengjek-dispatch/internal/utils"
	"github.com/piresc/nebengjek-dispatch/services/rides"
)

// RidesHandler handles HTTP requests for ride operations
type RidesHandler struct {
	rideUC rides.RideUC
}

// NewRidesHandler creates a new ride HTTP handler
func NewRidesHandler(rideUC rides.RideUC) *RidesHandler {
	return &RidesHandler{
		rideUC: rideUC,
	}
}

type estimateRequest struct {
	Pickup      models.Coordinates `json:"pickup"`
	Destination models.Coordinates `json:"destination"`
}

// EstimateFare prices a trip before it is requested
func (h *RidesHandler) EstimateFare(c echo.Context) error {
	var req estimateRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
	}

	estimate, err := h.rideUC.EstimateFare(c.Request().Context(), req.Pickup, req.Destination)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "Fare estimated", estimate)
}

// RequestRide creates a pending ride for the calling passenger
func (h *RidesHandler) RequestRide(c echo.Context) error {
	id, ok := requireRole(c, models.RolePassenger)
	if !ok {
		return utils.ForbiddenResponse(c, "Only passengers can request rides")
	}

	var req models.RideRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
	}
	req.PassengerID = id.UserID

	ride, err := h.rideUC.RequestRide(c.Request().Context(), req)
	if err != nil {
		logger.WarnCtx(c.Request().Context(), "Ride request refused",
			logger.UUID("passenger_id", id.UserID),
			logger.Err(err))
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusCreated, "Ride requested", ride)
}

// AcceptRide lets a driver claim a pending ride
func (h *RidesHandler) AcceptRide(c echo.Context) error {
	return h.driverAction(c, "Ride accepted", h.rideUC.AcceptRide)
}

// StartRide marks the passenger as picked up
func (h *RidesHandler) StartRide(c echo.Context) error {
	return h.driverAction(c, "Ride started", h.rideUC.StartRide)
}

// RejectRide declines an offered ride
func (h *RidesHandler) RejectRide(c echo.Context) error {
	id, ok := requireRole(c, models.RoleDriver)
	if !ok {
		return utils.ForbiddenResponse(c, "Only drivers can reject rides")
	}
	rideID, err := rideIDParam(c)
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid ride ID")
	}

	if err := h.rideUC.RejectRide(c.Request().Context(), rideID, id.UserID); err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "Ride rejected", nil)
}

// CompleteRide finishes the trip with an optional final fare
func (h *RidesHandler) CompleteRide(c echo.Context) error {
	id, ok := requireRole(c, models.RoleDriver)
	if !ok {
		return utils.ForbiddenResponse(c, "Only drivers can complete rides")
	}
	rideID, err := rideIDParam(c)
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid ride ID")
	}

	var req models.RideCompleteRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
	}

	ride, err := h.rideUC.CompleteRide(c.Request().Context(), rideID, id.UserID, req)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "Ride completed", ride)
}

// CancelRide cancels the ride on behalf of either party
func (h *RidesHandler) CancelRide(c echo.Context) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return utils.UnauthorizedResponse(c, "")
	}
	rideID, err := rideIDParam(c)
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid ride ID")
	}

	var req models.RideCancelRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
	}

	ride, err := h.rideUC.CancelRide(c.Request().Context(), rideID, id.UserID, id.Role, req)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "Ride cancelled", ride)
}

// RateRide stores the caller's rating, comment or skip
func (h *RidesHandler) RateRide(c echo.Context) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return utils.UnauthorizedResponse(c, "")
	}
	rideID, err := rideIDParam(c)
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid ride ID")
	}

	var req models.RateRideRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
	}
	req.RideID, req.UserID, req.Role = rideID, id.UserID, id.Role

	ride, err := h.rideUC.RateRide(c.Request().Context(), req)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "Feedback saved", ride)
}

// GetRide returns one ride visible to the caller
func (h *RidesHandler) GetRide(c echo.Context) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return utils.UnauthorizedResponse(c, "")
	}
	rideID, err := rideIDParam(c)
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid ride ID")
	}

	ride, err := h.rideUC.GetRide(c.Request().Context(), rideID, id.UserID)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "", ride)
}

// GetActiveRides returns the caller's active rides and open offers
func (h *RidesHandler) GetActiveRides(c echo.Context) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return utils.UnauthorizedResponse(c, "")
	}
	return h.activeRides(c, id.UserID, id.Role)
}

// GetActiveRidesInternal serves the reconciling fetch to the realtime gateway
func (h *RidesHandler) GetActiveRidesInternal(c echo.Context) error {
	userID, err := uuid.Parse(c.QueryParam("user_id"))
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid user_id")
	}
	return h.activeRides(c, userID, models.Role(c.QueryParam("role")))
}

func (h *RidesHandler) activeRides(c echo.Context, userID uuid.UUID, role models.Role) error {
	view, err := h.rideUC.GetActiveRides(c.Request().Context(), userID, role)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "", view)
}

func (h *RidesHandler) driverAction(c echo.Context, message string, action func(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error)) error {
	id, ok := requireRole(c, models.RoleDriver)
	if !ok {
		return utils.ForbiddenResponse(c, "Only drivers can do this")
	}
	rideID, err := rideIDParam(c)
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid ride ID")
	}

	ride, err := action(c.Request().Context(), rideID, id.UserID)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, message, ride)
}

func requireRole(c echo.Context, role models.Role) (middleware.Identity, bool) {
	id, ok := middleware.GetIdentity(c)
	return id, ok && id.Role == role
}

func rideIDParam(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("rideID"))
}
