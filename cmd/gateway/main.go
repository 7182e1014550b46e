package main

import (
	"context"
	"errors"
	"log"

	"github.com/piresc/nebengjek-dispatch/internal/pkg/config"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/health"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	natspkg "github.com/piresc/nebengjek-dispatch/internal/pkg/nats"
	nrpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/newrelic"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/server"
	wspkg "github.com/piresc/nebengjek-dispatch/internal/pkg/websocket"
	"github.com/piresc/nebengjek-dispatch/services/realtime/gateway"
	"github.com/piresc/nebengjek-dispatch/services/realtime/handler"
	"github.com/piresc/nebengjek-dispatch/services/realtime/metrics"
	"github.com/piresc/nebengjek-dispatch/services/realtime/usecase"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	appName := "realtime-gateway"
	configs := config.InitConfig("config/gateway.env")

	nrApp := nrpkg.InitNewRelic(configs.NewRelic)

	zapLogger, err := logger.InitZapLoggerFromConfig(configs, nrApp)
	if err != nil {
		log.Fatalf("Failed to create Zap logger: %v", err)
	}
	defer zapLogger.Close()
	logger.SetGlobalLogger(zapLogger)

	logger.Info("Starting application",
		logger.String("app", appName),
		logger.String("version", configs.App.Version),
		logger.String("environment", configs.App.Environment),
	)

	ctx, stop := server.SignalContext()
	defer stop()

	natsClient, err := natspkg.NewClient(configs.NATS)
	if err != nil {
		zapLogger.Fatal("Failed to connect to NATS", logger.Err(err))
	}
	defer natsClient.Close()

	fetcher := gateway.NewRidesClient(configs.Services.RidesServiceURL, &configs.APIKey, configs.Gateway, zapLogger)
	feed := gateway.NewNATSFeed(natsClient, zapLogger)
	sessionUC := usecase.NewSessionUC(fetcher, feed, configs.Gateway,
		metrics.New(prometheus.DefaultRegisterer), zapLogger)

	e := server.NewEcho(nrApp, zapLogger)
	health.RegisterHealthEndpoints(e, appName, map[string]health.Checker{
		"nats": health.CheckerFunc(func(context.Context) error {
			if !natsClient.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}),
	})
	manager := wspkg.NewManager(configs.JWT, configs.Gateway)
	handler.NewHandler(manager, sessionUC, zapLogger).RegisterRoutes(e)

	if err := server.NewGracefulServer(e, zapLogger, configs.Server).Run(ctx); err != nil {
		zapLogger.Error("Service stopped with error", logger.String("app", appName), logger.Err(err))
		return
	}
	logger.Info("Service stopped", logger.String("app", appName))
}
