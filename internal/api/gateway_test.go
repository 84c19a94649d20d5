package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharecycle-console/internal/common/logger"
	"github.com/sharecycle-console/pkg/sharecycle/models"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewGateway(NewClient(server.URL, 5*time.Second, StaticToken("tok"), logger.Nop()))
}

func jsonResponse(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestEndTrip_CompletedShape(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trips/t1/end", r.URL.Path)
		jsonResponse(w, `{
			"status": "COMPLETED",
			"tripId": "t1",
			"endStationId": "s2",
			"endedAt": "2026-08-29T10:15:00Z",
			"durationMinutes": 23,
			"ledgerId": "l1",
			"baseCost": 1.0,
			"timeCost": 2.3,
			"eBikeSurcharge": 0.5,
			"totalCost": 3.8,
			"ledgerStatus": "PENDING",
			"paymentStatus": "PENDING"
		}`)
	})

	result, err := gw.EndTrip(context.Background(), "t1", "s2")

	require.NoError(t, err)
	assert.Equal(t, models.TripEndCompleted, result.Status)
	assert.Nil(t, result.Block)
	require.NotNil(t, result.Completion)
	assert.Equal(t, "l1", result.Completion.LedgerID)
	assert.InDelta(t, 3.8, result.Completion.TotalCost, 0.001)
	assert.Equal(t, models.LedgerPending, result.Completion.LedgerStatus)
	assert.Equal(t, 23, result.Completion.DurationMinutes)
}

func TestEndTrip_BlockedShape(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, `{
			"status": "BLOCKED",
			"message": "Station full. Try a nearby station.",
			"courtesyCredit": 1.5,
			"suggestions": [
				{"stationId": "s3", "name": "Dockside", "freeDocks": 4, "distanceMeters": 210.5}
			]
		}`)
	})

	result, err := gw.EndTrip(context.Background(), "t1", "s2")

	require.NoError(t, err)
	assert.Equal(t, models.TripEndBlocked, result.Status)
	assert.Nil(t, result.Completion)
	require.NotNil(t, result.Block)
	assert.Equal(t, "t1", result.Block.TripID, "missing tripId falls back to the request")
	assert.Equal(t, "s2", result.Block.StationID, "missing stationId falls back to the request")
	assert.Equal(t, "Station full. Try a nearby station.", result.Block.Message)
	assert.InDelta(t, 1.5, result.Block.CourtesyCredit, 0.001)
	require.Len(t, result.Block.Suggestions, 1)
	assert.Equal(t, "s3", result.Block.Suggestions[0].StationID)
}

func TestEndTrip_MissingStatusReadsAsCompleted(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, `{"tripId": "t1", "ledgerId": "l1", "totalCost": 2.0}`)
	})

	result, err := gw.EndTrip(context.Background(), "t1", "s2")

	require.NoError(t, err)
	assert.Equal(t, models.TripEndCompleted, result.Status)
	require.NotNil(t, result.Completion)
	assert.Equal(t, "l1", result.Completion.LedgerID)
}

func TestActiveReservation_EmptyResponseMeansNone(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	reservation, err := gw.ActiveReservation(context.Background(), "rider-1")

	require.NoError(t, err)
	assert.Nil(t, reservation)
}

func TestTripQuery_EncodeOmitsEmptyFilters(t *testing.T) {
	var got url.Values
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		jsonResponse(w, `{"entries": [], "page": 0, "totalPages": 0, "totalItems": 0}`)
	})

	_, err := gw.Trips(context.Background(), TripQuery{
		BikeType: models.BikeElectric,
		Search:   "abc",
		Page:     2,
		PageSize: 20,
	})

	require.NoError(t, err)
	assert.Equal(t, "E_BIKE", got.Get("bikeType"))
	assert.Equal(t, "abc", got.Get("search"))
	assert.Equal(t, "2", got.Get("page"))
	assert.Equal(t, "20", got.Get("size"))
	assert.False(t, got.Has("startTime"))
	assert.False(t, got.Has("endTime"))
}
