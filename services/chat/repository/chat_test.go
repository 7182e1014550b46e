package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/piresc/nebengjek-dispatch/services/chat/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var messageCols = []string{"id", "ride_id", "sender_id", "sender_type", "body", "created_at", "read_at"}

func setupMockDB(t *testing.T) (*repository.ChatRepo, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return repository.NewChatRepository(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func TestChatRepo_GetRideParties(t *testing.T) {
	repo, mock := setupMockDB(t)
	rideID, passengerID, driverID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, passenger_id, driver_id, status FROM rides WHERE id = $1")).
		WithArgs(rideID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "passenger_id", "driver_id", "status"}).
			AddRow(rideID.String(), passengerID.String(), driverID.String(), "in-progress"))

	got, err := repo.GetRideParties(context.Background(), rideID)

	require.NoError(t, err)
	assert.Equal(t, passengerID, got.PassengerID)
	require.NotNil(t, got.DriverID)
	assert.Equal(t, driverID, *got.DriverID)
	assert.Equal(t, models.RideStatusInProgress, got.Status)
	assert.True(t, got.ChatOpen())
}

func TestChatRepo_GetRideParties_Errors(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery("FROM rides").WillReturnError(sql.ErrNoRows)
	_, err := repo.GetRideParties(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrRideNotFound)

	mock.ExpectQuery("FROM rides").WillReturnError(errors.New("timeout"))
	_, err = repo.GetRideParties(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}

func TestChatRepo_CreateMessage(t *testing.T) {
	repo, mock := setupMockDB(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	msg := &models.ChatMessage{
		ID:         uuid.New(),
		RideID:     uuid.New(),
		SenderID:   uuid.New(),
		SenderType: models.RolePassenger,
		Body:       "hola",
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO chat_messages")).
		WithArgs(msg.ID, msg.RideID, msg.SenderID, models.RolePassenger, "hola").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	require.NoError(t, repo.CreateMessage(context.Background(), msg))
	assert.Equal(t, created, msg.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepo_ListMessages(t *testing.T) {
	repo, mock := setupMockDB(t)
	rideID := uuid.New()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at, id")).
		WithArgs(rideID).
		WillReturnRows(sqlmock.NewRows(messageCols).
			AddRow(uuid.New().String(), rideID.String(), uuid.New().String(), "passenger", "first", t0, t0.Add(time.Minute)).
			AddRow(uuid.New().String(), rideID.String(), uuid.New().String(), "driver", "second", t0.Add(time.Second), nil))

	got, err := repo.ListMessages(context.Background(), rideID)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Body)
	assert.NotNil(t, got[0].ReadAt)
	assert.Equal(t, models.RoleDriver, got[1].SenderType)
	assert.Nil(t, got[1].ReadAt)
}

func TestChatRepo_ListMessages_EmptyIsNotNil(t *testing.T) {
	repo, mock := setupMockDB(t)
	mock.ExpectQuery("FROM chat_messages").WillReturnRows(sqlmock.NewRows(messageCols))

	got, err := repo.ListMessages(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestChatRepo_MarkRead(t *testing.T) {
	repo, mock := setupMockDB(t)
	rideID, readerID, senderID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE ride_id = $1 AND sender_id <> $2 AND read_at IS NULL")).
		WithArgs(rideID, readerID).
		WillReturnRows(sqlmock.NewRows(messageCols).
			AddRow(uuid.New().String(), rideID.String(), senderID.String(), "driver", "here", now, now))

	got, err := repo.MarkRead(context.Background(), rideID, readerID)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, senderID, got[0].SenderID)
	assert.NotNil(t, got[0].ReadAt)
}
