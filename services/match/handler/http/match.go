package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/middleware"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/piresc/nebengjek-dispatch/internal/utils"
	"github.com/piresc/nebengjek-dispatch/services/match"
)

// MatchHandler handles HTTP requests for matching and driver presence
type MatchHandler struct {
	matchUC match.MatchUC
}

// NewMatchHandler creates a new match HTTP handler
func NewMatchHandler(matchUC match.MatchUC) *MatchHandler {
	return &MatchHandler{
		matchUC: matchUC,
	}
}

// FindEligibleDrivers answers the rides service's matching query
func (h *MatchHandler) FindEligibleDrivers(c echo.Context) error {
	var query models.MatchQuery
	if err := c.Bind(&query); err != nil {
		return utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
	}

	result, err := h.matchUC.FindEligibleDrivers(c.Request().Context(), query)
	if err != nil {
		logger.WarnCtx(c.Request().Context(), "Matching query failed", logger.Err(err))
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "Eligible drivers", result)
}

// GetPresence returns the calling driver's presence
func (h *MatchHandler) GetPresence(c echo.Context) error {
	driverID, ok := ownDriverID(c)
	if !ok {
		return utils.ForbiddenResponse(c, "Drivers can only read their own presence")
	}

	presence, err := h.matchUC.GetPresence(c.Request().Context(), driverID)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "Driver presence", presence)
}

// UpdatePresence records the calling driver's location or availability
func (h *MatchHandler) UpdatePresence(c echo.Context) error {
	driverID, ok := ownDriverID(c)
	if !ok {
		return utils.ForbiddenResponse(c, "Drivers can only update their own presence")
	}

	var update models.PresenceUpdate
	if err := c.Bind(&update); err != nil {
		return utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
	}

	presence, err := h.matchUC.UpdatePresence(c.Request().Context(), driverID, update)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "Driver presence updated", presence)
}

// ownDriverID returns the path driver id when it is the authenticated driver
func ownDriverID(c echo.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok || id.Role != models.RoleDriver {
		return uuid.Nil, false
	}
	driverID, err := uuid.Parse(c.Param("driverID"))
	if err != nil || driverID != id.UserID {
		return uuid.Nil, false
	}
	return driverID, true
}
