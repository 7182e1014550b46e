package newrelic

import (
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// InitNewRelic starts the agent, or returns nil when it is disabled or fails
func InitNewRelic(cfg models.NewRelicConfig) *newrelic.Application {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		logger.Info("New Relic is disabled or license key not provided")
		return nil
	}

	nrApp, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(cfg.ForwardLogs),
		newrelic.ConfigAppLogDecoratingEnabled(true),
	)
	if err != nil {
		logger.Warn("Failed to initialize New Relic, continuing without New Relic", logger.Err(err))
		return nil
	}

	logger.Info("New Relic enabled", logger.String("app_name", cfg.AppName))
	return nrApp
}
