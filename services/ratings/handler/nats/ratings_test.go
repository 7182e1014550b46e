package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/constants"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/piresc/nebengjek-dispatch/services/ratings/mocks"
	"github.com/piresc/nebengjek-dispatch/services/ratings/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMsg struct {
	jetstream.Msg
	data []byte
}

func (m *fakeMsg) Subject() string { return constants.SubjectRideRated }
func (m *fakeMsg) Data() []byte    { return m.data }

func TestRatingsHandler_HandleRideRated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc := mocks.NewMockRatingUC(ctrl)
	h := NewRatingsHandler(uc, nil)

	event := models.RideRatedEvent{
		RideID:      uuid.New(),
		PassengerID: uuid.New(),
		DriverID:    uuid.New(),
		RatedBy:     models.RolePassenger,
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	uc.EXPECT().HandleRideRated(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, got models.RideRatedEvent) error {
			assert.Equal(t, event.RideID, got.RideID)
			assert.Equal(t, event.DriverID, got.DriverID)
			assert.Equal(t, models.RolePassenger, got.RatedBy)
			return nil
		})

	assert.NoError(t, h.HandleRideRated(context.Background(), &fakeMsg{data: data}))
}

func TestRatingsHandler_MalformedIsDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewRatingsHandler(mocks.NewMockRatingUC(ctrl), nil)

	assert.NoError(t, h.HandleRideRated(context.Background(), &fakeMsg{data: []byte("{not json")}))
}

func TestRatingsHandler_UsecaseErrorIsReturned(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc := mocks.NewMockRatingUC(ctrl)
	h := NewRatingsHandler(uc, nil)
	storeErr := errors.New("store down")

	uc.EXPECT().HandleRideRated(gomock.Any(), gomock.Any()).Return(storeErr)

	err := h.HandleRideRated(context.Background(), &fakeMsg{data: []byte(`{"rated_by":"driver"}`)})
	assert.ErrorIs(t, err, storeErr)
}

func TestRatingsHandler_MissingRatedPartyIsAcked(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// the repository must not be touched
	uc := usecase.NewRatingUC(mocks.NewMockRatingRepo(ctrl), nil, logger.NewNopLogger())
	h := NewRatingsHandler(uc, nil)

	data, err := json.Marshal(models.RideRatedEvent{
		RideID:      uuid.New(),
		PassengerID: uuid.New(),
		RatedBy:     models.RolePassenger,
	})
	require.NoError(t, err)

	assert.NoError(t, h.HandleRideRated(context.Background(), &fakeMsg{data: data}))
}
