package gateway

import (
	"context"
	"fmt"

	httpclient "github.com/piresc/nebengjek-dispatch/internal/pkg/http"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/piresc/nebengjek-dispatch/services/rides"
)

const matchEndpoint = "/internal/match"

// MatchClient asks the match service for eligible drivers over HTTP
type MatchClient struct {
	apiClient *httpclient.APIKeyClient
}

// NewMatchClient creates a match client authenticated with the rides API key
func NewMatchClient(matchServiceURL string, config *models.APIKeyConfig, log *logger.ZapLogger) rides.MatchGW {
	return &MatchClient{
		apiClient: httpclient.NewAPIKeyClient(httpclient.Config{
			ServiceName: "match-service",
			BaseURL:     matchServiceURL,
			APIKey:      config.RidesService,
		}, log),
	}
}

// FindEligibleDrivers returns the drivers that may be offered a ride at the pickup
func (c *MatchClient) FindEligibleDrivers(ctx context.Context, query models.MatchQuery) (*models.MatchResult, error) {
	var result models.MatchResult
	if err := c.apiClient.PostJSON(ctx, matchEndpoint, query, &result); err != nil {
		return nil, fmt.Errorf("match service: %w", err)
	}
	return &result, nil
}
