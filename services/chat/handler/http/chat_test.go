package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/middleware"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/piresc/nebengjek-dispatch/services/chat/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Reason  string          `json:"reason"`
}

func newContext(method, target, body string, id *middleware.Identity, rideID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("rideID")
	c.SetParamValues(rideID)
	if id != nil {
		c.Set(middleware.ContextUserID, id.UserID)
		c.Set(middleware.ContextUserRole, id.Role)
	}
	return c, rec
}

func TestSendMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc := mocks.NewMockChatUC(ctrl)
	h := NewChatHandler(uc)
	passenger := middleware.Identity{UserID: uuid.New(), Role: models.RolePassenger}
	rideID := uuid.New()

	uc.EXPECT().SendMessage(gomock.Any(), rideID, passenger.UserID, "hola").
		Return(&models.ChatMessage{ID: uuid.New(), RideID: rideID, Body: "hola"}, nil)

	c, rec := newContext(http.MethodPost, "/", `{"body":"hola"}`, &passenger, rideID.String())
	require.NoError(t, h.SendMessage(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSendMessage_ClosedRide(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc := mocks.NewMockChatUC(ctrl)
	h := NewChatHandler(uc)
	driver := middleware.Identity{UserID: uuid.New(), Role: models.RoleDriver}

	uc.EXPECT().SendMessage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, models.ErrInvalidTransition)

	c, rec := newContext(http.MethodPost, "/", `{"body":"hola"}`, &driver, uuid.New().String())
	require.NoError(t, h.SendMessage(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_transition", resp.Reason)
}

func TestListMessagesInternal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc := mocks.NewMockChatUC(ctrl)
	h := NewChatHandler(uc)
	rideID, userID := uuid.New(), uuid.New()

	uc.EXPECT().ListMessages(gomock.Any(), rideID, userID).Return([]models.ChatMessage{{ID: uuid.New(), Body: "hi"}}, nil)

	c, rec := newContext(http.MethodGet, "/?user_id="+userID.String(), "", nil, rideID.String())
	require.NoError(t, h.ListMessagesInternal(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	var messages []models.ChatMessage
	require.NoError(t, json.Unmarshal(resp.Data, &messages))
	assert.Len(t, messages, 1)
}

func TestMarkRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc := mocks.NewMockChatUC(ctrl)
	h := NewChatHandler(uc)
	driver := middleware.Identity{UserID: uuid.New(), Role: models.RoleDriver}
	rideID := uuid.New()

	uc.EXPECT().MarkRead(gomock.Any(), rideID, driver.UserID).Return(3, nil)

	c, rec := newContext(http.MethodPost, "/", "", &driver, rideID.String())
	require.NoError(t, h.MarkRead(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"updated":3`)
}

func TestChatHandler_BadInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewChatHandler(mocks.NewMockChatUC(ctrl))
	driver := middleware.Identity{UserID: uuid.New(), Role: models.RoleDriver}

	c, rec := newContext(http.MethodPost, "/", `{"body":"x"}`, &driver, "nope")
	require.NoError(t, h.SendMessage(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newContext(http.MethodGet, "/?user_id=bad", "", nil, uuid.New().String())
	require.NoError(t, h.ListMessagesInternal(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newContext(http.MethodGet, "/", "", nil, uuid.New().String())
	require.NoError(t, h.ListMessages(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
