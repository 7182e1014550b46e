package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	value   interface{}
}

type recordingPublisher struct {
	mu      sync.Mutex
	msgs    []published
	failFor string
}

func (p *recordingPublisher) PublishJSON(ctx context.Context, subject string, v interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{subject: subject, value: v})
	if subject == p.failFor {
		return errors.New("publish failed")
	}
	return nil
}

func (p *recordingPublisher) subjects() []string {
	out := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.subject
	}
	return out
}

func TestPublishRideChanged_PendingRide(t *testing.T) {
	pub := &recordingPublisher{}
	gw := NewRideGW(pub)

	passenger, d1, d2 := uuid.New(), uuid.New(), uuid.New()
	ride := &models.Ride{ID: uuid.New(), PassengerID: passenger, Status: models.RideStatusPending}

	require.NoError(t, gw.PublishRideChanged(context.Background(), models.FeedOpInsert, ride, []uuid.UUID{d1, d2, d1}))

	assert.Equal(t, []string{
		fmt.Sprintf("ride.changed.passenger.%s", passenger),
		fmt.Sprintf("ride.offered.driver.%s", d1),
		fmt.Sprintf("ride.offered.driver.%s", d2),
	}, pub.subjects())

	event, ok := pub.msgs[0].value.(models.RideEvent)
	require.True(t, ok)
	assert.Equal(t, models.FeedOpInsert, event.Op)
	assert.Equal(t, ride.ID, event.Ride.ID)
}

func TestPublishRideChanged_BoundDriverNotDuplicated(t *testing.T) {
	pub := &recordingPublisher{}
	gw := NewRideGW(pub)

	passenger, driver, loser := uuid.New(), uuid.New(), uuid.New()
	ride := &models.Ride{ID: uuid.New(), PassengerID: passenger, DriverID: &driver, Status: models.RideStatusAccepted}

	require.NoError(t, gw.PublishRideChanged(context.Background(), models.FeedOpUpdate, ride, []uuid.UUID{driver, loser}))

	assert.Equal(t, []string{
		fmt.Sprintf("ride.changed.passenger.%s", passenger),
		fmt.Sprintf("ride.changed.driver.%s", driver),
		fmt.Sprintf("ride.offered.driver.%s", loser),
	}, pub.subjects())
}

func TestPublishRideChanged_ContinuesAfterFailure(t *testing.T) {
	passenger, driver := uuid.New(), uuid.New()
	pub := &recordingPublisher{failFor: fmt.Sprintf("ride.changed.passenger.%s", passenger)}
	gw := NewRideGW(pub)

	ride := &models.Ride{ID: uuid.New(), PassengerID: passenger, DriverID: &driver, Status: models.RideStatusInProgress}
	err := gw.PublishRideChanged(context.Background(), models.FeedOpUpdate, ride, nil)

	assert.Error(t, err)
	assert.Len(t, pub.msgs, 2)
}

func TestPublishOffersAndWithdraw(t *testing.T) {
	pub := &recordingPublisher{}
	gw := NewRideGW(pub)
	ride := &models.Ride{ID: uuid.New(), PassengerID: uuid.New(), Status: models.RideStatusPending}
	d1, d2 := uuid.New(), uuid.New()

	require.NoError(t, gw.PublishOffers(context.Background(), ride, []uuid.UUID{d1}))
	require.NoError(t, gw.PublishOfferWithdrawn(context.Background(), ride, d2))

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, models.FeedOpInsert, pub.msgs[0].value.(models.RideEvent).Op)
	assert.Equal(t, fmt.Sprintf("ride.offered.driver.%s", d2), pub.msgs[1].subject)
	assert.Equal(t, models.FeedOpWithdraw, pub.msgs[1].value.(models.RideEvent).Op)
}

func TestPublishRideRated(t *testing.T) {
	pub := &recordingPublisher{}
	gw := NewRideGW(pub)

	event := models.RideRatedEvent{RideID: uuid.New(), RatedBy: models.RolePassenger}
	require.NoError(t, gw.PublishRideRated(context.Background(), event))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "ride.rated", pub.msgs[0].subject)
	assert.Equal(t, event, pub.msgs[0].value)
}
