package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/piresc/nebengjek-dispatch/services/realtime/metrics"
	"github.com/piresc/nebengjek-dispatch/services/realtime/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu    sync.Mutex
	snaps []models.SessionSnapshot
}

func (n *recordingNotifier) Notify(s models.SessionSnapshot) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snaps = append(n.snaps, s)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.snaps)
}

func (n *recordingNotifier) last() models.SessionSnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.snaps[len(n.snaps)-1]
}

type harness struct {
	userID   uuid.UUID
	fetcher  *mocks.MockFetcher
	notifier *recordingNotifier
	metrics  *metrics.Metrics
	session  *Session
}

// open starts a session whose first reconcile returns active
func open(t *testing.T, userID uuid.UUID, role models.Role, active *models.ActiveRides, threads map[uuid.UUID][]models.ChatMessage) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	feed := mocks.NewMockFeed(ctrl)
	sub := mocks.NewMockSubscription(ctrl)

	sub.EXPECT().Unsubscribe().Return(nil).AnyTimes()
	feed.EXPECT().Subscribe(userID, role, gomock.Any()).Return(sub, nil)
	fetcher.EXPECT().FetchActiveRides(gomock.Any(), userID, role).Return(active, nil)
	fetcher.EXPECT().FetchMessages(gomock.Any(), gomock.Any(), userID).
		DoAndReturn(func(_ context.Context, rideID, _ uuid.UUID) ([]models.ChatMessage, error) {
			return threads[rideID], nil
		}).AnyTimes()

	m := metrics.New(prometheus.NewRegistry())
	notifier := &recordingNotifier{}
	uc := NewSessionUC(fetcher, feed, models.GatewayConfig{FetchTimeout: time.Second}, m, logger.NewNopLogger())
	s, err := uc.Open(context.Background(), userID, role, notifier)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return &harness{userID: userID, fetcher: fetcher, notifier: notifier, metrics: m, session: s.(*Session)}
}

func rideFor(passenger uuid.UUID, driver *uuid.UUID, status models.RideStatus, updated time.Time, version int64) models.Ride {
	return models.Ride{
		ID:          uuid.New(),
		PassengerID: passenger,
		DriverID:    driver,
		Status:      status,
		RequestedAt: t0,
		UpdatedAt:   updated,
		Version:     version,
	}
}

func with(r models.Ride, status models.RideStatus, updated time.Time, version int64) models.Ride {
	r.Status = status
	r.UpdatedAt = updated
	r.Version = version
	return r
}

func update(r models.Ride) models.RideEvent {
	return models.RideEvent{Op: models.FeedOpUpdate, Ride: r}
}

func TestOpen_Validation(t *testing.T) {
	uc := NewSessionUC(nil, nil, models.GatewayConfig{}, nil, logger.NewNopLogger())

	_, err := uc.Open(context.Background(), uuid.Nil, models.RolePassenger, &recordingNotifier{})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = uc.Open(context.Background(), uuid.New(), models.Role("admin"), &recordingNotifier{})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestOpen_SubscribeFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	feed := mocks.NewMockFeed(ctrl)
	feed.EXPECT().Subscribe(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("nats down"))

	uc := NewSessionUC(mocks.NewMockFetcher(ctrl), feed, models.GatewayConfig{}, nil, logger.NewNopLogger())
	_, err := uc.Open(context.Background(), uuid.New(), models.RoleDriver, &recordingNotifier{})

	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}

func TestSession_InitialReconcile(t *testing.T) {
	passenger := uuid.New()
	ride := rideFor(passenger, nil, models.RideStatusPending, t0, 1)

	h := open(t, passenger, models.RolePassenger, &models.ActiveRides{
		Rides:      []models.Ride{ride},
		ServerTime: t0.Add(time.Second),
	}, nil)

	require.Equal(t, 1, h.notifier.count())
	snap := h.notifier.last()
	require.Len(t, snap.ActiveRides, 1)
	assert.Equal(t, ride.ID, snap.ActiveRides[0].ID)
	require.NotNil(t, snap.CurrentRide)
	assert.Equal(t, ride.ID, snap.CurrentRide.ID)
	assert.Empty(t, snap.Offers)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Reconciles.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Sessions))
}

func TestSession_LastWriteWins(t *testing.T) {
	passenger, driver := uuid.New(), uuid.New()
	ride := rideFor(passenger, nil, models.RideStatusPending, t0, 1)
	h := open(t, passenger, models.RolePassenger, &models.ActiveRides{
		Rides:      []models.Ride{ride},
		ServerTime: t0,
	}, nil)

	accepted := with(ride, models.RideStatusAccepted, t0.Add(2*time.Second), 2)
	accepted.DriverID = &driver
	h.session.HandleRideEvent(update(accepted))
	assert.Equal(t, 2, h.notifier.count())

	t.Run("duplicate is a no-op", func(t *testing.T) {
		h.session.HandleRideEvent(update(accepted))
		assert.Equal(t, 2, h.notifier.count())
	})

	t.Run("older snapshot is ignored", func(t *testing.T) {
		h.session.HandleRideEvent(update(with(ride, models.RideStatusPending, t0.Add(time.Second), 1)))
		assert.Equal(t, 2, h.notifier.count())
		assert.Equal(t, models.RideStatusAccepted, h.session.Snapshot().ActiveRides[0].Status)
	})

	t.Run("version breaks a timestamp tie", func(t *testing.T) {
		started := with(accepted, models.RideStatusInProgress, accepted.UpdatedAt, 3)
		h.session.HandleRideEvent(update(started))
		assert.Equal(t, models.RideStatusInProgress, h.session.Snapshot().ActiveRides[0].Status)

		h.session.HandleRideEvent(update(accepted))
		assert.Equal(t, models.RideStatusInProgress, h.session.Snapshot().ActiveRides[0].Status)
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.FeedEvents.WithLabelValues("ride", "applied")))
	assert.Equal(t, 3.0, testutil.ToFloat64(h.metrics.FeedEvents.WithLabelValues("ride", "stale")))
}

func TestSession_OutOfOrderEventsConverge(t *testing.T) {
	passenger, driver := uuid.New(), uuid.New()
	ride := rideFor(passenger, &driver, models.RideStatusAccepted, t0, 1)
	h := open(t, passenger, models.RolePassenger, &models.ActiveRides{
		Rides:      []models.Ride{ride},
		ServerTime: t0,
	}, nil)

	events := make([]models.RideEvent, 0, 50)
	for v := int64(2); v <= 51; v++ {
		status := models.RideStatusInProgress
		if v == 51 {
			status = models.RideStatusCompleted
		}
		events = append(events, update(with(ride, status, t0.Add(time.Duration(v)*time.Millisecond), v)))
	}

	var wg sync.WaitGroup
	for i := len(events) - 1; i >= 0; i-- {
		wg.Add(1)
		go func(e models.RideEvent) {
			defer wg.Done()
			h.session.HandleRideEvent(e)
		}(events[i])
	}
	wg.Wait()

	snap := h.session.Snapshot()
	assert.Empty(t, snap.ActiveRides)
	assert.Nil(t, snap.CurrentRide)
	assert.Equal(t, int64(51), h.session.rides[ride.ID].Version)
	assert.Empty(t, h.notifier.last().ActiveRides)
}

func TestSession_EarlyWriteForUnknownRideIsRechecked(t *testing.T) {
	passenger := uuid.New()
	h := open(t, passenger, models.RolePassenger, &models.ActiveRides{
		Rides:      []models.Ride{},
		ServerTime: t0,
	}, nil)

	// written before the fetch that did not return it; the follow-up fetch
	// confirms it is gone
	h.fetcher.EXPECT().FetchActiveRides(gomock.Any(), passenger, models.RolePassenger).Return(&models.ActiveRides{
		Rides:      []models.Ride{},
		ServerTime: t0.Add(time.Second),
	}, nil)
	old := rideFor(passenger, nil, models.RideStatusPending, t0.Add(-time.Minute), 1)
	h.session.HandleRideEvent(models.RideEvent{Op: models.FeedOpInsert, Ride: old})

	require.Eventually(t, func() bool { return h.notifier.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, h.session.ActiveRides())
	assert.Empty(t, h.notifier.last().ActiveRides)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Rechecks))

	fresh := rideFor(passenger, nil, models.RideStatusPending, t0.Add(2*time.Second), 1)
	h.session.HandleRideEvent(models.RideEvent{Op: models.FeedOpInsert, Ride: fresh})
	require.Len(t, h.session.ActiveRides(), 1)
	assert.Equal(t, fresh.ID, h.session.ActiveRides()[0].ID)

	other := rideFor(uuid.New(), nil, models.RideStatusPending, t0.Add(2*time.Second), 1)
	h.session.HandleRideEvent(models.RideEvent{Op: models.FeedOpInsert, Ride: other})
	assert.Len(t, h.session.ActiveRides(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Rechecks))
}

func TestSession_LateCommittedOfferIsKept(t *testing.T) {
	driver := uuid.New()
	h := open(t, driver, models.RoleDriver, &models.ActiveRides{
		Rides:      []models.Ride{},
		Offers:     []models.Ride{},
		ServerTime: t0,
	}, nil)

	// stamped just before the fetch's snapshot but committed after it
	offer := rideFor(uuid.New(), nil, models.RideStatusPending, t0.Add(-5*time.Millisecond), 1)
	h.fetcher.EXPECT().FetchActiveRides(gomock.Any(), driver, models.RoleDriver).Return(&models.ActiveRides{
		Rides:      []models.Ride{},
		Offers:     []models.Ride{offer},
		ServerTime: t0.Add(time.Second),
	}, nil)
	h.session.HandleRideEvent(models.RideEvent{Op: models.FeedOpInsert, Ride: offer})

	require.Len(t, h.session.Snapshot().Offers, 1)
	assert.Equal(t, offer.ID, h.session.Snapshot().Offers[0].ID)

	require.Eventually(t, func() bool { return h.notifier.count() == 3 }, time.Second, 5*time.Millisecond)
	require.Len(t, h.notifier.last().Offers, 1)
	assert.Equal(t, offer.ID, h.notifier.last().Offers[0].ID)
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Reconciles.WithLabelValues("ok")))
}

func TestSession_WriteDuringFetchSurvivesMerge(t *testing.T) {
	passenger := uuid.New()
	h := open(t, passenger, models.RolePassenger, &models.ActiveRides{
		Rides:      []models.Ride{},
		ServerTime: t0,
	}, nil)

	ride := rideFor(passenger, nil, models.RideStatusPending, t0.Add(500*time.Millisecond), 1)
	h.fetcher.EXPECT().FetchActiveRides(gomock.Any(), passenger, models.RolePassenger).
		DoAndReturn(func(context.Context, uuid.UUID, models.Role) (*models.ActiveRides, error) {
			h.session.HandleRideEvent(models.RideEvent{Op: models.FeedOpInsert, Ride: ride})
			return &models.ActiveRides{Rides: []models.Ride{}, ServerTime: t0.Add(time.Second)}, nil
		})
	h.fetcher.EXPECT().FetchActiveRides(gomock.Any(), passenger, models.RolePassenger).Return(&models.ActiveRides{
		Rides:      []models.Ride{ride},
		ServerTime: t0.Add(2 * time.Second),
	}, nil)

	h.session.Reconcile(context.Background())
	require.Len(t, h.session.ActiveRides(), 1)
	assert.Equal(t, ride.ID, h.session.ActiveRides()[0].ID)

	require.Eventually(t, func() bool { return h.notifier.count() == 4 }, time.Second, 5*time.Millisecond)
	require.Len(t, h.notifier.last().ActiveRides, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Rechecks))
}

func TestSession_MultiRideSelectionClearsWhenRideLeaves(t *testing.T) {
	driver := uuid.New()
	a := rideFor(uuid.New(), &driver, models.RideStatusAccepted, t0, 2)
	b := rideFor(uuid.New(), &driver, models.RideStatusInProgress, t0, 3)
	b.RequestedAt = t0.Add(time.Minute)

	h := open(t, driver, models.RoleDriver, &models.ActiveRides{
		Rides:      []models.Ride{b, a},
		ServerTime: t0,
	}, nil)

	snap := h.session.Snapshot()
	require.Len(t, snap.ActiveRides, 2)
	assert.Equal(t, a.ID, snap.ActiveRides[0].ID)
	assert.Nil(t, snap.CurrentRide, "two active rides and no selection")

	require.NoError(t, h.session.Select(&a.ID))
	snap = h.notifier.last()
	require.NotNil(t, snap.SelectedRideID)
	assert.Equal(t, a.ID, *snap.SelectedRideID)
	assert.Equal(t, a.ID, snap.CurrentRide.ID)

	h.session.HandleRideEvent(update(with(a, models.RideStatusCancelled, t0.Add(time.Second), 3)))

	assert.Nil(t, h.session.Selected())
	snap = h.notifier.last()
	assert.Nil(t, snap.SelectedRideID)
	require.Len(t, snap.ActiveRides, 1)
	assert.Equal(t, b.ID, snap.CurrentRide.ID, "the only remaining ride becomes current")
}

func TestSession_SelectionClearedOnReassignment(t *testing.T) {
	driver, other := uuid.New(), uuid.New()
	a := rideFor(uuid.New(), &driver, models.RideStatusAccepted, t0, 2)
	b := rideFor(uuid.New(), &driver, models.RideStatusAccepted, t0, 2)
	h := open(t, driver, models.RoleDriver, &models.ActiveRides{Rides: []models.Ride{a, b}, ServerTime: t0}, nil)

	require.NoError(t, h.session.Select(&b.ID))

	moved := with(b, models.RideStatusAccepted, t0.Add(time.Second), 3)
	moved.DriverID = &other
	h.session.HandleRideEvent(update(moved))

	assert.Nil(t, h.session.Selected())
	assert.Equal(t, a.ID, h.session.Current().ID)
}

func TestSession_Select(t *testing.T) {
	passenger := uuid.New()
	ride := rideFor(passenger, nil, models.RideStatusPending, t0, 1)
	h := open(t, passenger, models.RolePassenger, &models.ActiveRides{Rides: []models.Ride{ride}, ServerTime: t0}, nil)

	unknown := uuid.New()
	err := h.session.Select(&unknown)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Nil(t, h.session.Selected())

	require.NoError(t, h.session.Select(&ride.ID))
	assert.Equal(t, ride.ID, *h.session.Selected())

	require.NoError(t, h.session.Select(nil))
	assert.Nil(t, h.session.Selected())
}

func TestSession_DriverOffers(t *testing.T) {
	driver := uuid.New()
	open1 := rideFor(uuid.New(), nil, models.RideStatusPending, t0, 1)
	targeted := rideFor(uuid.New(), &driver, models.RideStatusPending, t0, 1)
	h := open(t, driver, models.RoleDriver, &models.ActiveRides{
		Rides:      []models.Ride{},
		Offers:     []models.Ride{open1, targeted},
		ServerTime: t0,
	}, nil)

	snap := h.session.Snapshot()
	assert.Len(t, snap.Offers, 2)
	assert.Empty(t, snap.ActiveRides)

	t.Run("withdraw removes the offer once", func(t *testing.T) {
		before := h.notifier.count()
		h.session.HandleRideEvent(models.RideEvent{Op: models.FeedOpWithdraw, Ride: open1})
		h.session.HandleRideEvent(models.RideEvent{Op: models.FeedOpWithdraw, Ride: open1})

		assert.Equal(t, before+1, h.notifier.count())
		require.Len(t, h.notifier.last().Offers, 1)
		assert.Equal(t, targeted.ID, h.notifier.last().Offers[0].ID)
	})

	t.Run("accepting moves the ride to the active set", func(t *testing.T) {
		accepted := with(targeted, models.RideStatusAccepted, t0.Add(time.Second), 2)
		h.session.HandleRideEvent(update(accepted))

		snap := h.session.Snapshot()
		assert.Empty(t, snap.Offers)
		require.Len(t, snap.ActiveRides, 1)
		assert.Equal(t, targeted.ID, snap.CurrentRide.ID)
	})

	t.Run("new offer arrives", func(t *testing.T) {
		offer := rideFor(uuid.New(), nil, models.RideStatusPending, t0.Add(2*time.Second), 1)
		h.session.HandleRideEvent(models.RideEvent{Op: models.FeedOpInsert, Ride: offer})
		require.Len(t, h.session.Snapshot().Offers, 1)
		assert.Equal(t, offer.ID, h.session.Snapshot().Offers[0].ID)
	})
}

func TestSession_ReconcileMergesWithFeed(t *testing.T) {
	passenger, driver := uuid.New(), uuid.New()
	kept := rideFor(passenger, nil, models.RideStatusPending, t0, 1)
	h := open(t, passenger, models.RolePassenger, &models.ActiveRides{Rides: []models.Ride{kept}, ServerTime: t0}, nil)

	// the feed delivered a newer write than the next fetch will see
	newer := with(kept, models.RideStatusAccepted, t0.Add(10*time.Second), 2)
	newer.DriverID = &driver
	h.session.HandleRideEvent(update(newer))

	h.fetcher.EXPECT().FetchActiveRides(gomock.Any(), passenger, models.RolePassenger).Return(&models.ActiveRides{
		Rides:      []models.Ride{kept},
		ServerTime: t0.Add(5 * time.Second),
	}, nil)
	h.session.Reconcile(context.Background())

	require.Len(t, h.session.ActiveRides(), 1)
	assert.Equal(t, models.RideStatusAccepted, h.session.ActiveRides()[0].Status)

	// a later fetch without the ride drops it
	h.fetcher.EXPECT().FetchActiveRides(gomock.Any(), passenger, models.RolePassenger).Return(&models.ActiveRides{
		Rides:      []models.Ride{},
		ServerTime: t0.Add(20 * time.Second),
	}, nil)
	h.session.HandleReconnect()

	assert.Empty(t, h.session.ActiveRides())
	assert.Empty(t, h.notifier.last().ActiveRides)
}

func TestSession_ReconcileFailureKeepsState(t *testing.T) {
	passenger := uuid.New()
	ride := rideFor(passenger, nil, models.RideStatusPending, t0, 1)
	h := open(t, passenger, models.RolePassenger, &models.ActiveRides{Rides: []models.Ride{ride}, ServerTime: t0}, nil)
	pushed := h.notifier.count()

	h.fetcher.EXPECT().FetchActiveRides(gomock.Any(), passenger, models.RolePassenger).
		Return(nil, models.ErrStoreUnavailable)
	h.session.Reconcile(context.Background())

	assert.Equal(t, pushed, h.notifier.count())
	assert.Len(t, h.session.ActiveRides(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Reconciles.WithLabelValues("error")))
}

func TestSession_Unread(t *testing.T) {
	passenger, driver := uuid.New(), uuid.New()
	ride := rideFor(passenger, &driver, models.RideStatusAccepted, t0, 2)
	msg := func(sender uuid.UUID, at time.Duration) models.ChatMessage {
		return models.ChatMessage{
			ID:        uuid.New(),
			RideID:    ride.ID,
			SenderID:  sender,
			Body:      "hi",
			CreatedAt: t0.Add(at),
		}
	}
	readAt := t0.Add(time.Second)
	alreadyRead := msg(driver, time.Second)
	alreadyRead.ReadAt = &readAt

	h := open(t, passenger, models.RolePassenger, &models.ActiveRides{Rides: []models.Ride{ride}, ServerTime: t0}, map[uuid.UUID][]models.ChatMessage{
		ride.ID: {msg(driver, 3*time.Second), alreadyRead, msg(passenger, 2*time.Second), msg(driver, 4*time.Second)},
	})

	snap := h.notifier.last()
	assert.Equal(t, 2, snap.Unread[ride.ID])
	require.Len(t, snap.Messages[ride.ID], 4)
	assert.Equal(t, alreadyRead.ID, snap.Messages[ride.ID][0].ID, "thread is in creation order")

	incoming := msg(driver, 5*time.Second)
	h.session.HandleChatEvent(models.ChatEvent{Op: models.FeedOpInsert, Message: incoming})
	h.session.HandleChatEvent(models.ChatEvent{Op: models.FeedOpInsert, Message: incoming})
	assert.Equal(t, 3, h.session.Unread(ride.ID))

	h.fetcher.EXPECT().MarkChatRead(gomock.Any(), ride.ID, passenger).Return(nil)
	h.session.MarkViewed(context.Background(), ride.ID)
	assert.Equal(t, 0, h.session.Unread(ride.ID))
	assert.Equal(t, 0, h.notifier.last().Unread[ride.ID])

	// own messages never count
	h.session.HandleChatEvent(models.ChatEvent{Op: models.FeedOpInsert, Message: msg(passenger, 6*time.Second)})
	assert.Equal(t, 0, h.session.Unread(ride.ID))

	h.session.HandleChatEvent(models.ChatEvent{Op: models.FeedOpInsert, Message: msg(driver, 7*time.Second)})
	assert.Equal(t, 1, h.session.Unread(ride.ID))
}

func TestSession_ReadReceiptUpdatesMessage(t *testing.T) {
	passenger, driver := uuid.New(), uuid.New()
	ride := rideFor(passenger, &driver, models.RideStatusInProgress, t0, 3)
	sent := models.ChatMessage{ID: uuid.New(), RideID: ride.ID, SenderID: passenger, Body: "on my way", CreatedAt: t0}

	h := open(t, passenger, models.RolePassenger, &models.ActiveRides{Rides: []models.Ride{ride}, ServerTime: t0},
		map[uuid.UUID][]models.ChatMessage{ride.ID: {sent}})

	readAt := t0.Add(time.Minute)
	receipt := sent
	receipt.ReadAt = &readAt
	h.session.HandleChatEvent(models.ChatEvent{Op: models.FeedOpUpdate, Message: receipt})

	msgs := h.notifier.last().Messages[ride.ID]
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].ReadAt)
	assert.True(t, readAt.Equal(*msgs[0].ReadAt))

	// a stale copy without the receipt does not undo it
	before := h.notifier.count()
	h.session.HandleChatEvent(models.ChatEvent{Op: models.FeedOpInsert, Message: sent})
	assert.Equal(t, before, h.notifier.count())
}

func TestSession_MarkViewedFailureIsLogged(t *testing.T) {
	passenger, driver := uuid.New(), uuid.New()
	ride := rideFor(passenger, &driver, models.RideStatusAccepted, t0, 2)
	h := open(t, passenger, models.RolePassenger, &models.ActiveRides{Rides: []models.Ride{ride}, ServerTime: t0},
		map[uuid.UUID][]models.ChatMessage{ride.ID: {{ID: uuid.New(), RideID: ride.ID, SenderID: driver, CreatedAt: t0}}})

	h.fetcher.EXPECT().MarkChatRead(gomock.Any(), ride.ID, passenger).Return(models.ErrStoreUnavailable)
	h.session.MarkViewed(context.Background(), ride.ID)

	assert.Equal(t, 0, h.session.Unread(ride.ID))
}

func TestSession_ClosedIgnoresEvents(t *testing.T) {
	passenger := uuid.New()
	h := open(t, passenger, models.RolePassenger, &models.ActiveRides{Rides: []models.Ride{}, ServerTime: t0}, nil)

	h.session.Close()
	h.session.Close()
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.Sessions))

	pushed := h.notifier.count()
	h.session.HandleRideEvent(models.RideEvent{
		Op:   models.FeedOpInsert,
		Ride: rideFor(passenger, nil, models.RideStatusPending, t0.Add(time.Second), 1),
	})
	assert.Equal(t, pushed, h.notifier.count())
}
