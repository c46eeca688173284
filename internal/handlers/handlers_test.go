package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skybook/internal/idempotency"
	"skybook/internal/ledger"
	"skybook/internal/lock"
	"skybook/internal/models"
	"skybook/internal/repository"
	"skybook/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePricer struct{}

func (fakePricer) CalculateBookingPricing(_ context.Context, _ int64, seats []models.SeatSelection) (int64, error) {
	return 7500 * int64(len(seats)), nil
}

func (fakePricer) RefundEligibility(context.Context, int64, int64, time.Time) (bool, int64, error) {
	return true, 7500, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) error { return nil }

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	services := service.NewServices(
		service.DefaultConfig(),
		repository.NewMemoryBookingRepository(),
		ledger.New(ledger.NewMemoryHoldStore()),
		lock.NewManager(lock.NewMemoryStore(), lock.DefaultConfig()),
		idempotency.NewMemoryStore(),
		fakePricer{},
		nopPublisher{},
		nil,
	)

	h := NewHandlers(services)

	router := gin.New()
	api := router.Group("/api")
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("", h.CreateBooking)
			bookings.POST("/retry", h.RetryBooking)
			bookings.GET("/:id", h.GetBooking)
			bookings.GET("/:id/events", h.GetBookingEvents)
			bookings.PATCH("/confirm", h.ConfirmBooking)
			bookings.PATCH("/cancel", h.CancelBooking)
		}
		flights := api.Group("/flights")
		{
			flights.GET("/:flightID/seats", h.ListAvailableSeats)
			flights.POST("/:flightID/seats", h.ProvisionFlight)
		}
	}
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func provision(t *testing.T, router *gin.Engine, seatIDs ...string) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/flights/1/seats",
		gin.H{"seat_ids": seatIDs}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
}

func createBookingBody(seatIDs ...string) gin.H {
	var seats []gin.H
	var passengers []gin.H
	for _, id := range seatIDs {
		seats = append(seats, gin.H{"seat_id": id, "passenger_ref": "pax-" + id})
		passengers = append(passengers, gin.H{
			"ref":        "pax-" + id,
			"first_name": "Ada",
			"surname":    "Lovelace",
		})
	}
	return gin.H{
		"flight_id":    1,
		"customer_ref": "customer-1",
		"departure_at": time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		"seats":        seats,
		"passengers":   passengers,
	}
}

func TestCreateBookingEndpoint(t *testing.T) {
	router := setupRouter(t)
	provision(t, router, "12A", "12B")

	w := doJSON(t, router, http.MethodPost, "/api/bookings",
		createBookingBody("12A", "12B"),
		map[string]string{"Idempotency-Key": "key-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result models.ProcessBookingResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.BookingPaymentPending, result.Status)
	assert.Equal(t, int64(15000), result.TotalAmount)
	assert.NotEmpty(t, result.Reference)
}

func TestCreateBookingRequiresIdempotencyKey(t *testing.T) {
	router := setupRouter(t)
	provision(t, router, "12A")

	w := doJSON(t, router, http.MethodPost, "/api/bookings", createBookingBody("12A"), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBookingReplaysOnSameKey(t *testing.T) {
	router := setupRouter(t)
	provision(t, router, "12A")

	headers := map[string]string{"Idempotency-Key": "key-1"}
	first := doJSON(t, router, http.MethodPost, "/api/bookings", createBookingBody("12A"), headers)
	require.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(t, router, http.MethodPost, "/api/bookings", createBookingBody("12A"), headers)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestCreateBookingSeatConflict(t *testing.T) {
	router := setupRouter(t)
	provision(t, router, "12A")

	w := doJSON(t, router, http.MethodPost, "/api/bookings", createBookingBody("12A"),
		map[string]string{"Idempotency-Key": "key-1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/bookings", createBookingBody("12A"),
		map[string]string{"Idempotency-Key": "key-2"})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestConfirmAndCancelFlow(t *testing.T) {
	router := setupRouter(t)
	provision(t, router, "12A")

	w := doJSON(t, router, http.MethodPost, "/api/bookings", createBookingBody("12A"),
		map[string]string{"Idempotency-Key": "key-1"})
	require.Equal(t, http.StatusCreated, w.Code)

	var result models.ProcessBookingResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	w = doJSON(t, router, http.MethodPatch, "/api/bookings/confirm",
		gin.H{"booking_id": result.BookingID, "payment_ref": "pay-1"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/bookings/%d", result.BookingID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var booking models.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &booking))
	assert.Equal(t, models.BookingConfirmed, booking.Status)

	w = doJSON(t, router, http.MethodPatch, "/api/bookings/cancel",
		gin.H{"booking_id": result.BookingID, "reason": "changed plans"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var cancelResult models.CancelBookingResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cancelResult))
	assert.True(t, cancelResult.RefundEligible)
}

func TestGetBookingNotFound(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/bookings/999", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetBookingEventsEndpoint(t *testing.T) {
	router := setupRouter(t)
	provision(t, router, "12A")

	w := doJSON(t, router, http.MethodPost, "/api/bookings", createBookingBody("12A"),
		map[string]string{"Idempotency-Key": "key-1"})
	require.Equal(t, http.StatusCreated, w.Code)

	var result models.ProcessBookingResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/bookings/%d/events", result.BookingID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Events []models.BookingEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Len(t, payload.Events, 1)
	assert.Equal(t, "submit", payload.Events[0].Type)
}

func TestListAvailableSeatsEndpoint(t *testing.T) {
	router := setupRouter(t)
	provision(t, router, "12A", "12B")

	w := doJSON(t, router, http.MethodPost, "/api/bookings", createBookingBody("12A"),
		map[string]string{"Idempotency-Key": "key-1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/flights/1/seats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Seats []models.AvailableSeatItem `json:"seats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Len(t, payload.Seats, 1)
	assert.Equal(t, "12B", payload.Seats[0].SeatID)
}

func TestInvalidBookingIDIsBadRequest(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/bookings/abc", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
