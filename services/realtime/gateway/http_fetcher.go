package gateway

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	httpclient "github.com/piresc/nebengjek-dispatch/internal/pkg/http"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/piresc/nebengjek-dispatch/services/realtime"
)

// RidesClient performs the reconciling reads against the rides service
type RidesClient struct {
	apiClient *httpclient.APIKeyClient
}

// NewRidesClient creates a fetcher authenticated with the gateway API key
func NewRidesClient(ridesServiceURL string, config *models.APIKeyConfig, cfg models.GatewayConfig, log *logger.ZapLogger) realtime.Fetcher {
	return &RidesClient{
		apiClient: httpclient.NewAPIKeyClient(httpclient.Config{
			ServiceName: "rides-service",
			BaseURL:     ridesServiceURL,
			APIKey:      config.GatewayService,
			Timeout:     cfg.FetchTimeout,
		}, log),
	}
}

// FetchActiveRides returns the user's active rides and, for drivers, open
// offers, stamped with the server time of the read
func (c *RidesClient) FetchActiveRides(ctx context.Context, userID uuid.UUID, role models.Role) (*models.ActiveRides, error) {
	q := url.Values{}
	q.Set("user_id", userID.String())
	q.Set("role", string(role))

	var active models.ActiveRides
	if err := c.apiClient.GetJSON(ctx, "/internal/rides/active?"+q.Encode(), &active); err != nil {
		return nil, fmt.Errorf("fetch active rides: %w", err)
	}
	if active.Rides == nil {
		active.Rides = []models.Ride{}
	}
	return &active, nil
}

// FetchMessages returns a ride's chat thread in creation order
func (c *RidesClient) FetchMessages(ctx context.Context, rideID, userID uuid.UUID) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	if err := c.apiClient.GetJSON(ctx, messagesEndpoint(rideID, userID, ""), &messages); err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	return messages, nil
}

// MarkChatRead records that userID has read every message sent to them on
// the ride
func (c *RidesClient) MarkChatRead(ctx context.Context, rideID, userID uuid.UUID) error {
	if err := c.apiClient.PostJSON(ctx, messagesEndpoint(rideID, userID, "/read"), nil, nil); err != nil {
		return fmt.Errorf("mark chat read: %w", err)
	}
	return nil
}

func messagesEndpoint(rideID, userID uuid.UUID, suffix string) string {
	return fmt.Sprintf("/internal/rides/%s/messages%s?user_id=%s", rideID, suffix, url.QueryEscape(userID.String()))
}
