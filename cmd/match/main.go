package main

import (
	"log"

	"github.com/piresc/nebengjek-dispatch/internal/pkg/config"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/database"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/health"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	nrpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/newrelic"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/server"
	"github.com/piresc/nebengjek-dispatch/services/match/handler"
	"github.com/piresc/nebengjek-dispatch/services/match/metrics"
	"github.com/piresc/nebengjek-dispatch/services/match/repository"
	"github.com/piresc/nebengjek-dispatch/services/match/usecase"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	appName := "match-service"
	configs := config.InitConfig("config/match.env")

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

	// without a zones file every pickup uses the default radius
	var zones []models.ServiceZone
	if configs.Match.ZonesFile != "" {
		zones, err = config.LoadZones(configs.Match.ZonesFile)
		if err != nil {
			zapLogger.Fatal("Failed to load service zones", logger.Err(err))
		}
		logger.Info("Service zones loaded", logger.Int("zones", len(zones)))
	}

	postgresClient, err := database.NewPostgresClient(configs.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to PostgreSQL", logger.Err(err))
	}
	defer postgresClient.Close()

	redisClient, err := database.NewRedisClient(configs.Redis)
	if err != nil {
		zapLogger.Fatal("Failed to connect to Redis", logger.Err(err))
	}
	defer redisClient.Close()

	driverRepo := repository.NewDriverRepository(postgresClient.GetDB())
	presence := repository.NewPresenceIndex(redisClient, configs.Match.PresenceTTL)
	matchUC := usecase.NewMatchUC(configs.Match, zones, driverRepo, presence,
		metrics.New(prometheus.DefaultRegisterer), zapLogger)

	e := server.NewEcho(nrApp, zapLogger)
	health.RegisterHealthEndpoints(e, appName, map[string]health.Checker{
		"postgres": health.CheckerFunc(postgresClient.Ping),
		"redis":    health.CheckerFunc(redisClient.Ping),
	})
	handler.NewHandler(matchUC, configs).RegisterRoutes(e)

	if err := server.NewGracefulServer(e, zapLogger, configs.Server).Run(ctx); err != nil {
		zapLogger.Error("Service stopped with error", logger.String("app", appName), logger.Err(err))
		return
	}
	logger.Info("Service stopped", logger.String("app", appName))
}
