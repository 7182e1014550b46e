package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/constants"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/piresc/nebengjek-dispatch/services/realtime"
)

// Subscriber is the part of the NATS client the feed uses
type Subscriber interface {
	Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
	OnReconnect(fn func()) func()
}

// NATSFeed delivers a participant's ride and chat changes from core NATS
// subjects
type NATSFeed struct {
	client Subscriber
	logger *logger.ZapLogger
}

// NewNATSFeed creates a feed over client
func NewNATSFeed(client Subscriber, log *logger.ZapLogger) realtime.Feed {
	return &NATSFeed{client: client, logger: log.Named("feed")}
}

// Subjects lists the subjects scoped to a participant
func Subjects(userID uuid.UUID, role models.Role) (rides []string, chat string) {
	id := userID.String()
	chat = fmt.Sprintf(constants.SubjectChatMessage, id)
	if role == models.RoleDriver {
		return []string{
			fmt.Sprintf(constants.SubjectRideChangedDriver, id),
			fmt.Sprintf(constants.SubjectRideOffered, id),
		}, chat
	}
	return []string{fmt.Sprintf(constants.SubjectRideChangedPassenger, id)}, chat
}

// Subscribe registers handler on every subject of the participant. A partial
// failure unwinds the subscriptions already made.
func (f *NATSFeed) Subscribe(userID uuid.UUID, role models.Role, handler realtime.FeedHandler) (realtime.Subscription, error) {
	log := f.logger.With(logger.UUID("user_id", userID))
	sub := &feedSubscription{}

	rideSubjects, chatSubject := Subjects(userID, role)
	for _, subject := range rideSubjects {
		s, err := f.client.Subscribe(subject, rideHandler(handler, log))
		if err != nil {
			_ = sub.Unsubscribe()
			return nil, err
		}
		sub.add(s)
	}

	s, err := f.client.Subscribe(chatSubject, chatHandler(handler, log))
	if err != nil {
		_ = sub.Unsubscribe()
		return nil, err
	}
	sub.add(s)

	sub.unregister = f.client.OnReconnect(handler.HandleReconnect)
	return sub, nil
}

func rideHandler(handler realtime.FeedHandler, log *logger.ZapLogger) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var event models.RideEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Warn("Dropping malformed ride event",
				logger.String("subject", msg.Subject),
				logger.Err(err))
			return
		}
		handler.HandleRideEvent(event)
	}
}

func chatHandler(handler realtime.FeedHandler, log *logger.ZapLogger) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var event models.ChatEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Warn("Dropping malformed chat event",
				logger.String("subject", msg.Subject),
				logger.Err(err))
			return
		}
		handler.HandleChatEvent(event)
	}
}

type feedSubscription struct {
	mu         sync.Mutex
	subs       []*nats.Subscription
	unregister func()
}

func (s *feedSubscription) add(sub *nats.Subscription) {
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
}

// Unsubscribe stops every subject and the reconnect callback; calling it
// again is a no-op
func (s *feedSubscription) Unsubscribe() error {
	s.mu.Lock()
	subs, unregister := s.subs, s.unregister
	s.subs, s.unregister = nil, nil
	s.mu.Unlock()

	if unregister != nil {
		unregister()
	}
	var errs []error
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
