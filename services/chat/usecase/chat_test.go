package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/piresc/nebengjek-dispatch/services/chat/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo *mocks.MockChatRepo
	gw   *mocks.MockChatGW
	uc   *chatUC

	rideID, passengerID, driverID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	f := &fixture{
		repo:        mocks.NewMockChatRepo(ctrl),
		gw:          mocks.NewMockChatGW(ctrl),
		rideID:      uuid.New(),
		passengerID: uuid.New(),
		driverID:    uuid.New(),
	}
	f.uc = NewChatUC(f.repo, f.gw, logger.NewNopLogger()).(*chatUC)
	return f
}

func (f *fixture) parties(status models.RideStatus) *models.RideParties {
	driverID := f.driverID
	return &models.RideParties{RideID: f.rideID, PassengerID: f.passengerID, DriverID: &driverID, Status: status}
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	f.repo.EXPECT().GetRideParties(ctx, f.rideID).Return(f.parties(models.RideStatusAccepted), nil)
	f.repo.EXPECT().CreateMessage(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, msg *models.ChatMessage) error {
		msg.CreatedAt = created
		return nil
	})
	f.gw.EXPECT().PublishMessage(ctx, models.FeedOpInsert, gomock.Any(), []uuid.UUID{f.passengerID, f.driverID}).Return(nil)

	msg, err := f.uc.SendMessage(ctx, f.rideID, f.driverID, "  I'm outside  ")

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.Equal(t, "I'm outside", msg.Body)
	assert.Equal(t, models.RoleDriver, msg.SenderType)
	assert.Equal(t, created, msg.CreatedAt)
	assert.Nil(t, msg.ReadAt)
}

func TestSendMessage_Refused(t *testing.T) {
	tests := []struct {
		name    string
		status  models.RideStatus
		body    string
		noFetch bool
		wantErr error
	}{
		{name: "empty body", body: "   ", noFetch: true, wantErr: models.ErrValidation},
		{name: "too long", body: strings.Repeat("a", 1001), noFetch: true, wantErr: models.ErrValidation},
		{name: "stranger", status: models.RideStatusAccepted, body: "hi", wantErr: models.ErrNotParticipant},
		{name: "pending ride", status: models.RideStatusPending, body: "hi", wantErr: models.ErrInvalidTransition},
		{name: "completed ride", status: models.RideStatusCompleted, body: "hi", wantErr: models.ErrInvalidTransition},
		{name: "cancelled ride", status: models.RideStatusCancelled, body: "hi", wantErr: models.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			sender := f.passengerID
			if tt.name == "stranger" {
				sender = uuid.New()
			}
			if !tt.noFetch {
				f.repo.EXPECT().GetRideParties(gomock.Any(), f.rideID).Return(f.parties(tt.status), nil)
			}

			_, err := f.uc.SendMessage(context.Background(), f.rideID, sender, tt.body)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSendMessage_MaxLengthCountsCharacters(t *testing.T) {
	f := newFixture(t)

	f.repo.EXPECT().GetRideParties(gomock.Any(), f.rideID).Return(f.parties(models.RideStatusInProgress), nil)
	f.repo.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).Return(nil)
	f.gw.EXPECT().PublishMessage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("nats down"))

	msg, err := f.uc.SendMessage(context.Background(), f.rideID, f.passengerID, strings.Repeat("ñ", 1000))

	require.NoError(t, err)
	assert.Equal(t, models.RolePassenger, msg.SenderType)
}

func TestListMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	messages := []models.ChatMessage{{ID: uuid.New(), RideID: f.rideID, Body: "hola"}}

	f.repo.EXPECT().GetRideParties(ctx, f.rideID).Return(f.parties(models.RideStatusCompleted), nil).Times(2)
	f.repo.EXPECT().ListMessages(ctx, f.rideID).Return(messages, nil)

	got, err := f.uc.ListMessages(ctx, f.rideID, f.passengerID)
	require.NoError(t, err)
	assert.Equal(t, messages, got)

	_, err = f.uc.ListMessages(ctx, f.rideID, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotParticipant)
}

func TestMarkRead_PublishesEachUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	updated := []models.ChatMessage{
		{ID: uuid.New(), RideID: f.rideID, SenderID: f.driverID, ReadAt: &now},
		{ID: uuid.New(), RideID: f.rideID, SenderID: f.driverID, ReadAt: &now},
	}

	f.repo.EXPECT().GetRideParties(ctx, f.rideID).Return(f.parties(models.RideStatusInProgress), nil)
	f.repo.EXPECT().MarkRead(ctx, f.rideID, f.passengerID).Return(updated, nil)
	f.gw.EXPECT().PublishMessage(ctx, models.FeedOpUpdate, gomock.Any(), gomock.Len(2)).Return(nil).Times(2)

	n, err := f.uc.MarkRead(ctx, f.rideID, f.passengerID)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMarkRead_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.repo.EXPECT().GetRideParties(ctx, f.rideID).Return(nil, models.ErrRideNotFound)
	_, err := f.uc.MarkRead(ctx, f.rideID, f.passengerID)
	assert.ErrorIs(t, err, models.ErrRideNotFound)

	f.repo.EXPECT().GetRideParties(ctx, f.rideID).Return(f.parties(models.RideStatusAccepted), nil)
	_, err = f.uc.MarkRead(ctx, f.rideID, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotParticipant)
}
