package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/piresc/nebengjek-dispatch/services/realtime"
	"github.com/piresc/nebengjek-dispatch/services/realtime/metrics"
)

type sessionUC struct {
	fetcher realtime.Fetcher
	feed    realtime.Feed
	cfg     models.GatewayConfig
	metrics *metrics.Metrics
	logger  *logger.ZapLogger
}

// NewSessionUC creates the synchronizer that backs client sessions
func NewSessionUC(
	fetcher realtime.Fetcher,
	feed realtime.Feed,
	cfg models.GatewayConfig,
	m *metrics.Metrics,
	log *logger.ZapLogger,
) realtime.SessionUC {
	return &sessionUC{
		fetcher: fetcher,
		feed:    feed,
		cfg:     cfg,
		metrics: m,
		logger:  log.Named("sync"),
	}
}

// Open subscribes to the user's feed, then runs the first reconcile. Events
// that race the initial fetch are merged last-write-wins.
func (uc *sessionUC) Open(ctx context.Context, userID uuid.UUID, role models.Role, notifier realtime.Notifier) (realtime.Session, error) {
	if userID == uuid.Nil {
		return nil, models.NewValidationError("user_id", "is required")
	}
	if role != models.RolePassenger && role != models.RoleDriver {
		return nil, models.NewValidationError("role", "must be passenger or driver")
	}

	s := newSession(userID, role, uc.fetcher, notifier, uc.cfg.FetchTimeout, uc.metrics, uc.logger)
	sub, err := uc.feed.Subscribe(userID, role, s)
	if err != nil {
		return nil, models.Unavailable("subscribe feed", fmt.Errorf("user %s: %w", userID, err))
	}
	s.sub = sub
	uc.metrics.SessionOpened()

	s.Reconcile(ctx)
	return s, nil
}
