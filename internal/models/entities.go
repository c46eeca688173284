package models

import (
	"time"
)

// HoldStatus is the lifecycle state of a seat hold.
type HoldStatus string

const (
	HoldAvailable HoldStatus = "AVAILABLE"
	HoldHeld      HoldStatus = "HELD"
	HoldConfirmed HoldStatus = "CONFIRMED"
	HoldReleased  HoldStatus = "RELEASED"
)

// ReleaseReason records why a hold left the Held/Confirmed state.
type ReleaseReason string

const (
	ReleaseCancelled ReleaseReason = "CANCELLED"
	ReleaseExpired   ReleaseReason = "EXPIRED"
	ReleaseRollback  ReleaseReason = "ROLLBACK"
)

// SeatHold is the per-seat ledger entry. Identity is (FlightID, SeatID).
// At most one non-released hold exists per seat; Version backs the
// optimistic compare-and-set in storage.
type SeatHold struct {
	FlightID      int64         `json:"flight_id" db:"flight_id"`
	SeatID        string        `json:"seat_id" db:"seat_id"`
	BookingID     int64         `json:"booking_id" db:"booking_id"`
	PassengerRef  string        `json:"passenger_ref" db:"passenger_ref"`
	Status        HoldStatus    `json:"status" db:"status"`
	HeldAt        *time.Time    `json:"held_at" db:"held_at"`
	ExpiresAt     *time.Time    `json:"expires_at" db:"expires_at"`
	ReleaseReason ReleaseReason `json:"release_reason,omitempty" db:"release_reason"`
	Version       int64         `json:"version" db:"version"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// Expired reports whether a held seat's deadline has passed.
func (h *SeatHold) Expired(now time.Time) bool {
	return h.Status == HoldHeld && h.ExpiresAt != nil && now.After(*h.ExpiresAt)
}

// SeatHoldRef identifies a hold for the sweeper.
type SeatHoldRef struct {
	FlightID  int64  `json:"flight_id"`
	SeatID    string `json:"seat_id"`
	BookingID int64  `json:"booking_id"`
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingDraft          BookingStatus = "DRAFT"
	BookingPaymentPending BookingStatus = "PAYMENT_PENDING"
	BookingConfirmed      BookingStatus = "CONFIRMED"
	BookingCheckedIn      BookingStatus = "CHECKED_IN"
	BookingCompleted      BookingStatus = "COMPLETED"
	BookingCancelled      BookingStatus = "CANCELLED"
	BookingExpired        BookingStatus = "EXPIRED"
	BookingPaymentFailed  BookingStatus = "PAYMENT_FAILED"
)

// Booking represents a booking in the system. Amounts are in minor currency
// units. Bookings are never deleted; ArchivedAt marks soft archival.
type Booking struct {
	ID             int64         `json:"id" db:"id"`
	Reference      string        `json:"reference" db:"reference"`
	IdempotencyKey string        `json:"idempotency_key" db:"idempotency_key"`
	FlightID       int64         `json:"flight_id" db:"flight_id"`
	CustomerRef    string        `json:"customer_ref" db:"customer_ref"`
	Status         BookingStatus `json:"status" db:"status"`
	TotalAmount    int64         `json:"total_amount" db:"total_amount"`
	ExpiresAt      *time.Time    `json:"expires_at" db:"expires_at"`
	ConfirmedAt    *time.Time    `json:"confirmed_at" db:"confirmed_at"`
	CancelledAt    *time.Time    `json:"cancelled_at" db:"cancelled_at"`
	DepartureAt    time.Time     `json:"departure_at" db:"departure_at"`
	RetryCount     int           `json:"retry_count" db:"retry_count"`
	LastError      *string       `json:"last_error" db:"last_error"`
	ArchivedAt     *time.Time    `json:"archived_at" db:"archived_at"`
	Version        int64         `json:"version" db:"version"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`

	Seats      []BookingSeat      `json:"seats,omitempty"`      // Not from DB, filled separately
	Passengers []BookingPassenger `json:"passengers,omitempty"` // Not from DB, filled separately
}

// CanBeCancelled guards cancellation of a confirmed booking: only before
// departure.
func (b *Booking) CanBeCancelled(now time.Time) bool {
	return b.DepartureAt.IsZero() || now.Before(b.DepartureAt)
}

// PaymentDeadlinePassed reports whether the payment window closed.
func (b *Booking) PaymentDeadlinePassed(now time.Time) bool {
	return b.ExpiresAt != nil && now.After(*b.ExpiresAt)
}

// BookingSeat joins a booking to a held seat and its passenger and price.
type BookingSeat struct {
	ID           int64  `json:"id" db:"id"`
	BookingID    int64  `json:"booking_id" db:"booking_id"`
	FlightID     int64  `json:"flight_id" db:"flight_id"`
	SeatID       string `json:"seat_id" db:"seat_id"`
	PassengerRef string `json:"passenger_ref" db:"passenger_ref"`
	Price        int64  `json:"price" db:"price"`
}

// BookingPassenger is a passenger on a booking.
type BookingPassenger struct {
	ID        int64  `json:"id" db:"id"`
	BookingID int64  `json:"booking_id" db:"booking_id"`
	Ref       string `json:"ref" db:"ref"`
	FirstName string `json:"first_name" db:"first_name"`
	Surname   string `json:"surname" db:"surname"`
	Document  string `json:"document" db:"document"`
}

// BookingEvent is one immutable audit entry per successful state
// transition. Entries are append-only.
type BookingEvent struct {
	ID         int64         `json:"id" db:"id"`
	BookingID  int64         `json:"booking_id" db:"booking_id"`
	Type       string        `json:"type" db:"type"`
	Actor      string        `json:"actor" db:"actor"`
	FromStatus BookingStatus `json:"from_status" db:"from_status"`
	ToStatus   BookingStatus `json:"to_status" db:"to_status"`
	OccurredAt time.Time     `json:"occurred_at" db:"occurred_at"`
}
