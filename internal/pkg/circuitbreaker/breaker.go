package circuitbreaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
)

// State represents the circuit breaker state
type State int

const (
	// StateClosed allows requests to pass through
	StateClosed State = iota
	// StateOpen blocks requests and returns immediately
	StateOpen
	// StateHalfOpen allows a limited number of requests to test the service
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Rejections wrap models.ErrStoreUnavailable so callers classify a tripped
// upstream like any other outage.
var (
	ErrOpen            = fmt.Errorf("circuit breaker is open: %w", models.ErrStoreUnavailable)
	ErrTooManyRequests = fmt.Errorf("too many requests in half-open state: %w", models.ErrStoreUnavailable)
)

// Config holds circuit breaker configuration
type Config struct {
	Name             string
	MaxRequests      uint32        // requests allowed while half-open
	Interval         time.Duration // closed-state counter reset period
	Timeout          time.Duration // open to half-open delay
	FailureThreshold uint32
	SuccessThreshold uint32
	OnStateChange    func(name string, from State, to State)
	IsFailure        func(err error) bool
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 1,
		IsFailure: func(err error) bool {
			return err != nil
		},
	}
}

// Counts holds the counters for circuit breaker
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// CircuitBreaker implements the circuit breaker pattern
type CircuitBreaker struct {
	config Config
	logger *logger.ZapLogger
	now    func() time.Time

	mutex  sync.RWMutex
	state  State
	counts Counts
	expiry time.Time
}

// New creates a new circuit breaker
func New(config Config, l *logger.ZapLogger) *CircuitBreaker {
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	return &CircuitBreaker{
		config: config,
		logger: l,
		now:    time.Now,
		state:  StateClosed,
		expiry: time.Now().Add(config.Interval),
	}
}

// Execute executes the given function with circuit breaker protection
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.afterRequest(err)
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	now := cb.now()
	switch cb.state {
	case StateClosed:
		if cb.expiry.Before(now) {
			cb.counts = Counts{}
			cb.expiry = now.Add(cb.config.Interval)
		}
	case StateOpen:
		if !cb.expiry.Before(now) {
			return ErrOpen
		}
		cb.setState(StateHalfOpen)
		cb.counts = Counts{}
	case StateHalfOpen:
		if cb.counts.Requests >= cb.config.MaxRequests {
			return ErrTooManyRequests
		}
	}

	cb.counts.Requests++
	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.config.IsFailure(err) {
		cb.counts.TotalFailures++
		cb.counts.ConsecutiveFailures++
		cb.counts.ConsecutiveSuccesses = 0

		if cb.state == StateHalfOpen ||
			(cb.state == StateClosed && cb.counts.ConsecutiveFailures >= cb.config.FailureThreshold) {
			cb.setState(StateOpen)
			cb.expiry = cb.now().Add(cb.config.Timeout)
		}
		return
	}

	cb.counts.TotalSuccesses++
	cb.counts.ConsecutiveSuccesses++
	cb.counts.ConsecutiveFailures = 0

	if cb.state == StateHalfOpen && cb.counts.ConsecutiveSuccesses >= cb.config.SuccessThreshold {
		cb.setState(StateClosed)
		cb.expiry = cb.now().Add(cb.config.Interval)
	}
}

func (cb *CircuitBreaker) setState(state State) {
	if cb.state == state {
		return
	}
	prev := cb.state
	cb.state = state

	cb.logger.Info("Circuit breaker state changed",
		logger.String("name", cb.config.Name),
		logger.String("from", prev.String()),
		logger.String("to", state.String()),
		logger.Int("consecutive_failures", int(cb.counts.ConsecutiveFailures)))

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, prev, state)
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() State {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()
	return cb.state
}

// Counts returns the current counts
func (cb *CircuitBreaker) Counts() Counts {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()
	return cb.counts
}
