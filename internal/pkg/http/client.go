package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/circuitbreaker"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	nrpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/newrelic"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/retry"
	"github.com/piresc/nebengjek-dispatch/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// DefaultTimeout for HTTP requests
	DefaultTimeout = 10 * time.Second
	// APIKeyHeader is the header name for API key
	APIKeyHeader = "X-API-Key"
)

// Config describes a downstream service
type Config struct {
	ServiceName string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
}

// StatusError is a non-2xx answer from a downstream service
type StatusError struct {
	StatusCode int
	Reason     string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP error: %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, e.Message)
}

// Unwrap exposes the domain error named by Reason so errors.Is works
// across the service boundary
func (e *StatusError) Unwrap() error {
	return utils.ErrorForReason(e.Reason)
}

// breakerState is 0 closed, 1 open, 2 half-open, per downstream service
var breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "dispatch",
	Subsystem: "upstream",
	Name:      "circuit_state",
	Help:      "Circuit breaker state of calls to a downstream service.",
}, []string{"service"})

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Reason  string          `json:"reason"`
}

// APIKeyClient calls another service's internal API with its API key,
// retrying transient failures behind a circuit breaker
type APIKeyClient struct {
	client      *nethttp.Client
	apiKey      string
	baseURL     string
	serviceName string
	breaker     *circuitbreaker.CircuitBreaker
	retrier     *retry.Retrier
	logger      *logger.ZapLogger
}

// NewAPIKeyClient creates a new HTTP client with API key authentication
func NewAPIKeyClient(cfg Config, log *logger.ZapLogger) *APIKeyClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	breakerCfg := circuitbreaker.DefaultConfig(cfg.ServiceName)
	breakerCfg.IsFailure = isServerFailure
	breakerCfg.OnStateChange = func(name string, _, to circuitbreaker.State) {
		breakerState.WithLabelValues(name).Set(float64(to))
	}
	breakerState.WithLabelValues(cfg.ServiceName).Set(float64(circuitbreaker.StateClosed))

	return &APIKeyClient{
		client:      &nethttp.Client{Timeout: timeout},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		serviceName: cfg.ServiceName,
		breaker:     circuitbreaker.New(breakerCfg, log),
		retrier:     retry.NewWithDefaults(log),
		logger:      log,
	}
}

// GetJSON performs a GET and decodes the response data into result
func (c *APIKeyClient) GetJSON(ctx context.Context, endpoint string, result interface{}) error {
	return c.call(ctx, nethttp.MethodGet, endpoint, nil, result)
}

// PostJSON performs a POST with a JSON body and decodes the response data into result
func (c *APIKeyClient) PostJSON(ctx context.Context, endpoint string, body, result interface{}) error {
	return c.call(ctx, nethttp.MethodPost, endpoint, body, result)
}

func (c *APIKeyClient) call(ctx context.Context, method, endpoint string, body, result interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Execute(ctx, func(ctx context.Context) error {
			return c.do(ctx, method, endpoint, payload, result)
		})
	})
	if err == nil {
		return nil
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode < 500 {
		return statusErr
	}
	c.logger.Warn("Service call failed",
		logger.String("service", c.serviceName),
		logger.String("method", method),
		logger.String("endpoint", endpoint),
		logger.Err(err))
	return models.Unavailable(c.serviceName+" "+endpoint, err)
}

func (c *APIKeyClient) do(ctx context.Context, method, endpoint string, payload []byte, result interface{}) error {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := nrpkg.InstrumentHTTPRequest(ctx, req, func() (*nethttp.Response, error) {
		return c.client.Do(req)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode >= 400 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Reason: env.Reason, Message: env.Error}
		if resp.StatusCode >= 500 {
			return retry.Transient(statusErr)
		}
		return statusErr
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.serviceName, decodeErr)
	}
	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to decode %s response data: %w", c.serviceName, err)
		}
	}
	return nil
}

// isServerFailure keeps client errors from tripping the breaker
func isServerFailure(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}
	return true
}
