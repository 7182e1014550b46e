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
	"github.com/piresc/nebengjek-dispatch/services/match/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Reason  string          `json:"reason"`
}

func newContext(method, body string, id *middleware.Identity, driverParam string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if driverParam != "" {
		c.SetParamNames("driverID")
		c.SetParamValues(driverParam)
	}
	if id != nil {
		c.Set(middleware.ContextUserID, id.UserID)
		c.Set(middleware.ContextUserRole, id.Role)
	}
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestFindEligibleDrivers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc := mocks.NewMockMatchUC(ctrl)
	h := NewMatchHandler(uc)
	driverID := uuid.New()

	uc.EXPECT().FindEligibleDrivers(gomock.Any(), models.MatchQuery{
		Pickup:   models.Coordinates{Latitude: 12.1, Longitude: -86.2},
		RadiusKm: 2,
	}).Return(&models.MatchResult{
		Status:   models.MatchStatusOK,
		RadiusKm: 2,
		Drivers:  []models.EligibleDriver{{DriverPresence: models.DriverPresence{ID: driverID}, DistanceKm: 0.4}},
	}, nil)

	c, rec := newContext(http.MethodPost, `{"pickup":{"latitude":12.1,"longitude":-86.2},"radius_km":2}`, nil, "")
	require.NoError(t, h.FindEligibleDrivers(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var result models.MatchResult
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &result))
	require.Len(t, result.Drivers, 1)
	assert.Equal(t, driverID, result.Drivers[0].ID)
}

func TestFindEligibleDrivers_ConfigurationMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc := mocks.NewMockMatchUC(ctrl)
	h := NewMatchHandler(uc)
	uc.EXPECT().FindEligibleDrivers(gomock.Any(), gomock.Any()).Return(nil, models.ErrConfigurationMissing)

	c, rec := newContext(http.MethodPost, `{"pickup":{"latitude":1,"longitude":1}}`, nil, "")
	require.NoError(t, h.FindEligibleDrivers(c))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "configuration_missing", decode(t, rec).Reason)
}

func TestUpdatePresence(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc := mocks.NewMockMatchUC(ctrl)
	h := NewMatchHandler(uc)
	driver := middleware.Identity{UserID: uuid.New(), Role: models.RoleDriver}

	uc.EXPECT().UpdatePresence(gomock.Any(), driver.UserID, gomock.Any()).DoAndReturn(
		func(_ interface{}, _ uuid.UUID, update models.PresenceUpdate) (*models.DriverPresence, error) {
			require.NotNil(t, update.IsOnline)
			assert.True(t, *update.IsOnline)
			return &models.DriverPresence{ID: driver.UserID, IsOnline: true}, nil
		})

	c, rec := newContext(http.MethodPut, `{"is_online":true}`, &driver, driver.UserID.String())
	require.NoError(t, h.UpdatePresence(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPresence_OnlyOwningDriver(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewMatchHandler(mocks.NewMockMatchUC(ctrl))
	driver := middleware.Identity{UserID: uuid.New(), Role: models.RoleDriver}
	passenger := middleware.Identity{UserID: uuid.New(), Role: models.RolePassenger}

	tests := []struct {
		name  string
		id    *middleware.Identity
		param string
	}{
		{"other driver", &driver, uuid.New().String()},
		{"passenger on own id", &passenger, passenger.UserID.String()},
		{"malformed id", &driver, "not-a-uuid"},
		{"anonymous", nil, driver.UserID.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodPut, `{"is_online":true}`, tt.id, tt.param)
			require.NoError(t, h.UpdatePresence(c))
			assert.Equal(t, http.StatusForbidden, rec.Code)

			c, rec = newContext(http.MethodGet, ``, tt.id, tt.param)
			require.NoError(t, h.GetPresence(c))
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}

func TestGetPresence_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	uc := mocks.NewMockMatchUC(ctrl)
	h := NewMatchHandler(uc)
	driver := middleware.Identity{UserID: uuid.New(), Role: models.RoleDriver}
	uc.EXPECT().GetPresence(gomock.Any(), driver.UserID).Return(nil, models.ErrDriverNotFound)

	c, rec := newContext(http.MethodGet, ``, &driver, driver.UserID.String())
	require.NoError(t, h.GetPresence(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "driver_not_found", decode(t, rec).Reason)
}
