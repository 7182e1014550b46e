package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/middleware"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	nrpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/newrelic"
	"github.com/piresc/nebengjek-dispatch/services/match"
	httpHandler "github.com/piresc/nebengjek-dispatch/services/match/handler/http"
)

// Handler combines all handlers for the match service
type Handler struct {
	matchHTTP *httpHandler.MatchHandler
	cfg       *models.Config
}

// NewHandler creates a new combined handler
func NewHandler(matchUC match.MatchUC, cfg *models.Config) *Handler {
	return &Handler{
		matchHTTP: httpHandler.NewMatchHandler(matchUC),
		cfg:       cfg,
	}
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/v1", middleware.JWTAuthMiddleware(h.cfg.JWT))

	drivers := api.Group("/drivers")
	drivers.GET("/:driverID/presence", nrpkg.TraceHandler("Match.GetPresence", h.matchHTTP.GetPresence))
	drivers.PUT("/:driverID/presence", nrpkg.TraceHandler("Match.UpdatePresence", h.matchHTTP.UpdatePresence))

	// Internal routes for service-to-service communication (API key required)
	internal := e.Group("/internal", middleware.ValidateAPIKey(h.cfg.APIKey.RidesService))
	internal.POST("/match", nrpkg.TraceHandler("Match.FindEligibleDrivers", h.matchHTTP.FindEligibleDrivers))
}
