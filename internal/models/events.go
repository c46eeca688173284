package models

import "time"

// NATS Event Types
const (
	EventBookingCreated     = "booking.created"
	EventBookingConfirmed   = "booking.confirmed"
	EventBookingCancelled   = "booking.cancelled"
	EventBookingExpired     = "booking.expired"
	EventSeatHeld           = "seat.held"
	EventSeatReleased       = "seat.released"
	EventNotifyConfirmation = "notification.booking_confirmation"
)

// BookingCreatedEvent represents a booking creation event
type BookingCreatedEvent struct {
	BookingID int64     `json:"booking_id"`
	FlightID  int64     `json:"flight_id"`
	Reference string    `json:"reference"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingConfirmedEvent represents a successful payment confirmation
type BookingConfirmedEvent struct {
	BookingID  int64     `json:"booking_id"`
	FlightID   int64     `json:"flight_id"`
	PaymentRef string    `json:"payment_ref"`
	Timestamp  time.Time `json:"timestamp"`
}

// BookingCancelledEvent represents a booking cancellation event
type BookingCancelledEvent struct {
	BookingID int64     `json:"booking_id"`
	FlightID  int64     `json:"flight_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingExpiredEvent represents a payment-deadline expiry
type BookingExpiredEvent struct {
	BookingID int64     `json:"booking_id"`
	FlightID  int64     `json:"flight_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// SeatHeldEvent represents a seat hold being placed
type SeatHeldEvent struct {
	BookingID int64     `json:"booking_id"`
	FlightID  int64     `json:"flight_id"`
	SeatID    string    `json:"seat_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Timestamp time.Time `json:"timestamp"`
}

// SeatReleasedEvent represents a seat release event
type SeatReleasedEvent struct {
	BookingID int64     `json:"booking_id"`
	FlightID  int64     `json:"flight_id"`
	SeatID    string    `json:"seat_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// ConfirmationNotification is the fire-and-forget payload for the
// notification consumer after a booking is confirmed.
type ConfirmationNotification struct {
	BookingID int64     `json:"booking_id"`
	Reference string    `json:"reference"`
	Timestamp time.Time `json:"timestamp"`
}
