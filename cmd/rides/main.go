package main

import (
	"context"
	"errors"
	"log"

	"github.com/piresc/nebengjek-dispatch/internal/pkg/config"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/database"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/health"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	natspkg "github.com/piresc/nebengjek-dispatch/internal/pkg/nats"
	nrpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/newrelic"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/server"
	chatGateway "github.com/piresc/nebengjek-dispatch/services/chat/gateway"
	chatHandler "github.com/piresc/nebengjek-dispatch/services/chat/handler"
	chatRepository "github.com/piresc/nebengjek-dispatch/services/chat/repository"
	chatUsecase "github.com/piresc/nebengjek-dispatch/services/chat/usecase"
	ratingsHandler "github.com/piresc/nebengjek-dispatch/services/ratings/handler/nats"
	ratingsRepository "github.com/piresc/nebengjek-dispatch/services/ratings/repository"
	ratingsUsecase "github.com/piresc/nebengjek-dispatch/services/ratings/usecase"
	"github.com/piresc/nebengjek-dispatch/services/rides/gateway"
	"github.com/piresc/nebengjek-dispatch/services/rides/handler"
	"github.com/piresc/nebengjek-dispatch/services/rides/metrics"
	"github.com/piresc/nebengjek-dispatch/services/rides/repository"
	"github.com/piresc/nebengjek-dispatch/services/rides/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	appName := "rides-service"
	configs := config.InitConfig("config/rides.env")

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

	postgresClient, err := database.NewPostgresClient(configs.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to PostgreSQL", logger.Err(err))
	}
	defer postgresClient.Close()

	natsClient, err := natspkg.NewClient(configs.NATS)
	if err != nil {
		zapLogger.Fatal("Failed to connect to NATS", logger.Err(err))
	}
	defer natsClient.Close()

	if err := natsClient.EnsureStreams(ctx, natspkg.DefaultStreamConfigs()...); err != nil {
		zapLogger.Fatal("Failed to ensure JetStream streams", logger.Err(err))
	}

	rideMetrics := metrics.New(prometheus.DefaultRegisterer)

	// rides
	rideRepo := repository.NewRideRepository(configs, postgresClient.GetDB())
	rideGW := gateway.NewRideGW(natsClient)
	matchGW := gateway.NewMatchClient(configs.Services.MatchServiceURL, &configs.APIKey, zapLogger)
	rideUC := usecase.NewRideUC(configs, rideRepo, rideGW, matchGW, rideMetrics, zapLogger)

	// chat
	chatRepo := chatRepository.NewChatRepository(postgresClient.GetDB())
	chatUC := chatUsecase.NewChatUC(chatRepo, chatGateway.NewChatGW(natsClient), zapLogger)

	// ratings
	ratingRepo := ratingsRepository.NewRatingRepository(postgresClient.GetDB())
	ratingUC := ratingsUsecase.NewRatingUC(ratingRepo, rideMetrics, zapLogger)
	ratingConsumer := ratingsHandler.NewRatingsHandler(ratingUC, nrApp)
	if err := ratingConsumer.Start(ctx, natsClient); err != nil {
		zapLogger.Fatal("Failed to start rating consumer", logger.Err(err))
	}
	defer ratingConsumer.Stop()

	e := server.NewEcho(nrApp, zapLogger)
	health.RegisterHealthEndpoints(e, appName, map[string]health.Checker{
		"postgres": health.CheckerFunc(postgresClient.Ping),
		"nats":     natsChecker(natsClient),
	})
	handler.NewHandler(rideUC, configs).RegisterRoutes(e)
	chatHandler.NewHandler(chatUC, configs).RegisterRoutes(e)

	expiry := handler.NewExpiryWorker(rideUC, configs.Rides, nrApp, zapLogger)
	httpServer := server.NewGracefulServer(e, zapLogger, configs.Server)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpServer.Run(gctx) })
	g.Go(func() error { return expiry.Run(gctx) })

	if err := g.Wait(); err != nil {
		zapLogger.Error("Service stopped with error", logger.String("app", appName), logger.Err(err))
		return
	}
	logger.Info("Service stopped", logger.String("app", appName))
}

func natsChecker(client *natspkg.Client) health.Checker {
	return health.CheckerFunc(func(context.Context) error {
		if !client.IsConnected() {
			return errors.New("not connected")
		}
		return nil
	})
}
