package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/constants"
	jwtpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/jwt"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	wspkg "github.com/piresc/nebengjek-dispatch/internal/pkg/websocket"
	"github.com/piresc/nebengjek-dispatch/services/realtime"
	"github.com/piresc/nebengjek-dispatch/services/realtime/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWT = models.JWTConfig{Secret: "gateway-secret", Expiration: 5, Issuer: "test"}

func dial(t *testing.T, uc realtime.SessionUC, userID uuid.UUID, role models.Role) *gorilla.Conn {
	t.Helper()
	manager := wspkg.NewManager(testJWT, models.GatewayConfig{WriteTimeout: time.Second})
	h := NewSessionHandler(manager, uc, logger.NewNopLogger())

	e := echo.New()
	e.GET("/ws", h.HandleWebSocket)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	token, _, err := jwtpkg.GenerateToken(userID, role, testJWT)
	require.NoError(t, err)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *gorilla.Conn) models.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg models.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func send(t *testing.T, conn *gorilla.Conn, event string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(models.WSMessage{Event: event, Data: raw}))
}

func TestSessionHandler_Commands(t *testing.T) {
	ctrl := gomock.NewController(t)
	uc := mocks.NewMockSessionUC(ctrl)
	session := mocks.NewMockSession(ctrl)
	driver, rideID := uuid.New(), uuid.New()

	uc.EXPECT().Open(gomock.Any(), driver, models.RoleDriver, gomock.Any()).
		DoAndReturn(func(_ context.Context, userID uuid.UUID, role models.Role, n realtime.Notifier) (realtime.Session, error) {
			assert.NoError(t, n.Notify(models.SessionSnapshot{UserID: userID, Role: role}))
			return session, nil
		})

	selected := make(chan *uuid.UUID, 1)
	viewed := make(chan uuid.UUID, 1)
	resynced := make(chan struct{}, 1)
	closed := make(chan struct{})

	session.EXPECT().Select(gomock.Any()).DoAndReturn(func(id *uuid.UUID) error {
		selected <- id
		return nil
	})
	session.EXPECT().MarkViewed(gomock.Any(), rideID).Do(func(_ context.Context, id uuid.UUID) { viewed <- id })
	session.EXPECT().Reconcile(gomock.Any()).Do(func(context.Context) { resynced <- struct{}{} })
	session.EXPECT().Close().Do(func() { close(closed) })

	conn := dial(t, uc, driver, models.RoleDriver)

	msg := read(t, conn)
	assert.Equal(t, constants.EventSnapshot, msg.Event)
	var snap models.SessionSnapshot
	require.NoError(t, json.Unmarshal(msg.Data, &snap))
	assert.Equal(t, driver, snap.UserID)

	send(t, conn, constants.EventSelectRide, models.SelectRideCommand{RideID: &rideID})
	assert.Equal(t, rideID, *<-selected)

	send(t, conn, constants.EventViewChat, models.ViewChatCommand{RideID: rideID})
	assert.Equal(t, rideID, <-viewed)

	send(t, conn, constants.EventResync, struct{}{})
	<-resynced

	require.NoError(t, conn.Close())
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("session was not closed")
	}
}

func TestSessionHandler_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	uc := mocks.NewMockSessionUC(ctrl)
	session := mocks.NewMockSession(ctrl)
	passenger := uuid.New()

	uc.EXPECT().Open(gomock.Any(), passenger, models.RolePassenger, gomock.Any()).Return(session, nil)
	session.EXPECT().Select(gomock.Any()).Return(models.NewValidationError("ride_id", "is not one of your active rides"))
	session.EXPECT().Close().AnyTimes()

	conn := dial(t, uc, passenger, models.RolePassenger)

	decodeErr := func(msg models.WSMessage) models.WSErrorMessage {
		require.Equal(t, constants.EventError, msg.Event)
		var e models.WSErrorMessage
		require.NoError(t, json.Unmarshal(msg.Data, &e))
		return e
	}

	send(t, conn, "dance", struct{}{})
	assert.Equal(t, constants.ErrorCodeUnknownEvent, decodeErr(read(t, conn)).Code)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"event": constants.EventViewChat}))
	assert.Equal(t, constants.ErrorCodeInvalidMessage, decodeErr(read(t, conn)).Code)

	other := uuid.New()
	send(t, conn, constants.EventSelectRide, models.SelectRideCommand{RideID: &other})
	e := decodeErr(read(t, conn))
	assert.Equal(t, constants.ErrorCodeInvalidRequest, e.Code)
	assert.Contains(t, e.Message, "ride_id")

	send(t, conn, constants.EventPing, nil)
	assert.Equal(t, constants.EventPong, read(t, conn).Event)
}

func TestSessionHandler_OpenFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	uc := mocks.NewMockSessionUC(ctrl)
	uc.EXPECT().Open(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, models.Unavailable("subscribe feed", assert.AnError))

	conn := dial(t, uc, uuid.New(), models.RoleDriver)

	msg := read(t, conn)
	assert.Equal(t, constants.EventError, msg.Event)
}
