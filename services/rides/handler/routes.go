package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/middleware"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	nrpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/newrelic"
	"github.com/piresc/nebengjek-dispatch/services/rides"
	httpHandler "github.com/piresc/nebengjek-dispatch/services/rides/handler/http"
)

// Handler combines all handlers for the rides service
type Handler struct {
	ridesHTTP *httpHandler.RidesHandler
	cfg       *models.Config
}

// NewHandler creates a new combined handler
func NewHandler(ridesUC rides.RideUC, cfg *models.Config) *Handler {
	return &Handler{
		ridesHTTP: httpHandler.NewRidesHandler(ridesUC),
		cfg:       cfg,
	}
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/v1", middleware.JWTAuthMiddleware(h.cfg.JWT))

	ridesGroup := api.Group("/rides")
	ridesGroup.POST("/estimate", nrpkg.TraceHandler("Rides.EstimateFare", h.ridesHTTP.EstimateFare))
	ridesGroup.POST("", nrpkg.TraceHandler("Rides.RequestRide", h.ridesHTTP.RequestRide))
	ridesGroup.GET("/active", nrpkg.TraceHandler("Rides.GetActiveRides", h.ridesHTTP.GetActiveRides))
	ridesGroup.GET("/:rideID", nrpkg.TraceHandler("Rides.GetRide", h.ridesHTTP.GetRide))
	ridesGroup.POST("/:rideID/accept", nrpkg.TraceHandler("Rides.AcceptRide", h.ridesHTTP.AcceptRide))
	ridesGroup.POST("/:rideID/reject", nrpkg.TraceHandler("Rides.RejectRide", h.ridesHTTP.RejectRide))
	ridesGroup.POST("/:rideID/start", nrpkg.TraceHandler("Rides.StartRide", h.ridesHTTP.StartRide))
	ridesGroup.POST("/:rideID/complete", nrpkg.TraceHandler("Rides.CompleteRide", h.ridesHTTP.CompleteRide))
	ridesGroup.POST("/:rideID/cancel", nrpkg.TraceHandler("Rides.CancelRide", h.ridesHTTP.CancelRide))
	ridesGroup.POST("/:rideID/rating", nrpkg.TraceHandler("Rides.RateRide", h.ridesHTTP.RateRide))

	// Internal routes for service-to-service communication (API key required)
	internal := e.Group("/internal", middleware.ValidateAPIKey(h.cfg.APIKey.GatewayService))
	internal.GET("/rides/active", nrpkg.TraceHandler("Rides.GetActiveRidesInternal", h.ridesHTTP.GetActiveRidesInternal))
}
