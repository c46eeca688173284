package models

import "time"

// SeatSelection pairs a requested seat with the passenger who will sit in it.
type SeatSelection struct {
	SeatID       string `json:"seat_id" binding:"required"`
	PassengerRef string `json:"passenger_ref" binding:"required"`
}

// PassengerData carries passenger identity for a booking request.
type PassengerData struct {
	Ref       string `json:"ref" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	Surname   string `json:"surname" binding:"required"`
	Document  string `json:"document"`
}

// ProcessBookingRequest creates a booking and holds its seats. DepartureAt
// is supplied by the caller because flight reference data lives outside
// this service; it feeds the cancellation guard. The idempotency key may
// arrive in the body or the Idempotency-Key header.
type ProcessBookingRequest struct {
	IdempotencyKey string          `json:"idempotency_key"`
	FlightID       int64           `json:"flight_id" binding:"required"`
	CustomerRef    string          `json:"customer_ref" binding:"required"`
	DepartureAt    time.Time       `json:"departure_at"`
	Seats          []SeatSelection `json:"seats" binding:"required,min=1"`
	Passengers     []PassengerData `json:"passengers" binding:"required,min=1"`
}

// ProcessBookingResult is the stored, replayable outcome of ProcessBooking.
type ProcessBookingResult struct {
	BookingID   int64         `json:"booking_id"`
	Reference   string        `json:"reference"`
	Status      BookingStatus `json:"status"`
	TotalAmount int64         `json:"total_amount"`
	ExpiresAt   time.Time     `json:"expires_at"`
}

// ConfirmBookingRequest confirms payment for a booking.
type ConfirmBookingRequest struct {
	BookingID  int64  `json:"booking_id" binding:"required"`
	PaymentRef string `json:"payment_ref" binding:"required"`
}

// CancelBookingRequest cancels a booking.
type CancelBookingRequest struct {
	BookingID int64  `json:"booking_id" binding:"required"`
	Reason    string `json:"reason"`
}

// CancelBookingResult reports the refund eligibility computed on
// cancellation.
type CancelBookingResult struct {
	BookingID      int64 `json:"booking_id"`
	RefundEligible bool  `json:"refund_eligible"`
	RefundAmount   int64 `json:"refund_amount"`
}

// AvailableSeatItem is one seat in the availability listing.
type AvailableSeatItem struct {
	SeatID string     `json:"seat_id"`
	Status HoldStatus `json:"status"`
}

// ExpireOldHoldsResult summarizes one sweeper pass.
type ExpireOldHoldsResult struct {
	Scanned  int `json:"scanned"`
	Released int `json:"released"`
	Expired  int `json:"expired_bookings"`
	Skipped  int `json:"skipped"`
}
