package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/newrelic/go-agent/v3/integrations/nrecho-v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/middleware"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultShutdownTimeout = 30 * time.Second

// NewEcho builds the echo instance every service shares: panic recovery,
// request ids, New Relic transactions, request logging and /metrics
func NewEcho(nrApp *newrelic.Application, zapLogger *logger.ZapLogger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// panic recovery must run first
	e.Use(middleware.PanicRecoveryWithZapMiddleware(zapLogger))
	e.Use(echomw.RequestID())
	if nrApp != nil {
		e.Use(nrecho.Middleware(nrApp))
	}
	e.Use(logger.ZapEchoMiddleware(zapLogger))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return e
}

// GracefulServer runs echo until its context is cancelled, then drains
// in-flight requests
type GracefulServer struct {
	echo            *echo.Echo
	logger          *logger.ZapLogger
	addr            string
	shutdownTimeout time.Duration
}

// NewGracefulServer creates a server listening on cfg's host and port
func NewGracefulServer(e *echo.Echo, zapLogger *logger.ZapLogger, cfg models.ServerConfig) *GracefulServer {
	shutdownTimeout := time.Duration(cfg.ShutdownTimeout) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	if cfg.ReadTimeout > 0 {
		e.Server.ReadTimeout = time.Duration(cfg.ReadTimeout) * time.Second
	}
	if cfg.WriteTimeout > 0 {
		e.Server.WriteTimeout = time.Duration(cfg.WriteTimeout) * time.Second
	}
	return &GracefulServer{
		echo:            e,
		logger:          zapLogger,
		addr:            fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		shutdownTimeout: shutdownTimeout,
	}
}

// Run serves until ctx is done and returns nil after a clean shutdown
func (s *GracefulServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", logger.String("address", s.addr))
		errCh <- s.echo.Start(s.addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	return s.Shutdown()
}

// Shutdown gracefully shuts down the server
func (s *GracefulServer) Shutdown() error {
	s.logger.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.logger.Error("Server forced to shutdown", logger.Err(err))
		return err
	}

	s.logger.Info("Server shutdown completed")
	return nil
}

// SignalContext is cancelled on SIGINT or SIGTERM
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
