package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newClient(url string) *RidesClient {
	return NewRidesClient(url, &models.APIKeyConfig{GatewayService: "gateway-key"},
		models.GatewayConfig{FetchTimeout: time.Second}, logger.NewNopLogger()).(*RidesClient)
}

func TestRidesClient_FetchActiveRides(t *testing.T) {
	userID := uuid.New()
	serverTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rideID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/internal/rides/active", r.URL.Path)
		assert.Equal(t, userID.String(), r.URL.Query().Get("user_id"))
		assert.Equal(t, "driver", r.URL.Query().Get("role"))
		assert.Equal(t, "gateway-key", r.Header.Get("X-API-Key"))

		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": models.ActiveRides{
				Offers:     []models.Ride{{ID: rideID, Status: models.RideStatusPending}},
				ServerTime: serverTime,
			},
		})
	}))
	defer server.Close()

	active, err := newClient(server.URL).FetchActiveRides(context.Background(), userID, models.RoleDriver)

	require.NoError(t, err)
	assert.NotNil(t, active.Rides)
	require.Len(t, active.Offers, 1)
	assert.Equal(t, rideID, active.Offers[0].ID)
	assert.True(t, serverTime.Equal(active.ServerTime))
}

func TestRidesClient_FetchActiveRides_NotParticipant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusForbidden, map[string]interface{}{
			"success": false,
			"error":   "forbidden",
			"reason":  "not_participant",
		})
	}))
	defer server.Close()

	_, err := newClient(server.URL).FetchActiveRides(context.Background(), uuid.New(), models.RolePassenger)

	assert.ErrorIs(t, err, models.ErrNotParticipant)
}

func TestRidesClient_Messages(t *testing.T) {
	userID, rideID := uuid.New(), uuid.New()
	msgID := uuid.New()
	var marked bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userID.String(), r.URL.Query().Get("user_id"))
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/internal/rides/"+rideID.String()+"/messages":
			writeEnvelope(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data":    []models.ChatMessage{{ID: msgID, RideID: rideID, Body: "hi"}},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/internal/rides/"+rideID.String()+"/messages/read":
			marked = true
			writeEnvelope(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data":    map[string]int{"updated": 1},
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newClient(server.URL)

	msgs, err := client.FetchMessages(context.Background(), rideID, userID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, msgID, msgs[0].ID)

	require.NoError(t, client.MarkChatRead(context.Background(), rideID, userID))
	assert.True(t, marked)
}
