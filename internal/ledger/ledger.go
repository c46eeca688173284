// Package ledger tracks per-seat hold state: Available, Held, Confirmed,
// Released. All mutating calls must run under the seat's distributed lock;
// the ledger linearizes nothing by itself. The optimistic version carried on
// every update is defense in depth, not a replacement for the lock.
package ledger

import (
	"context"
	"fmt"
	"time"

	apperrors "skybook/internal/errors"
	"skybook/internal/models"
)

// HoldStore is the durable storage contract for seat holds. Update is a
// compare-and-set on the hold's version and returns ErrVersionConflict on a
// stale write.
type HoldStore interface {
	Get(ctx context.Context, flightID int64, seatID string) (*models.SeatHold, error)
	Update(ctx context.Context, hold *models.SeatHold) error
	Provision(ctx context.Context, flightID int64, seatIDs []string) error
	ListByFlight(ctx context.Context, flightID int64) ([]models.SeatHold, error)
	ListByBooking(ctx context.Context, bookingID int64) ([]models.SeatHold, error)
	ListExpired(ctx context.Context, before time.Time) ([]models.SeatHoldRef, error)
}

// Ledger implements the seat hold state machine over a HoldStore.
type Ledger struct {
	store HoldStore
	now   func() time.Time
}

func New(store HoldStore) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// SetClock overrides the time source, for expiry tests.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// Provision creates Available entries for a flight's seat map.
func (l *Ledger) Provision(ctx context.Context, flightID int64, seatIDs []string) error {
	return l.store.Provision(ctx, flightID, seatIDs)
}

// TryHold moves the seat from Available (or Released, or an expired Held) to
// Held for bookingID. A repeat call by the same booking is idempotent. A
// live hold or a confirmed seat owned by another booking fails with
// ErrSeatUnavailable.
func (l *Ledger) TryHold(ctx context.Context, flightID int64, seatID string, bookingID int64, passengerRef string, holdDuration time.Duration) error {
	hold, err := l.store.Get(ctx, flightID, seatID)
	if err != nil {
		return err
	}
	if hold == nil {
		return fmt.Errorf("%w: flight %d seat %s", apperrors.ErrSeatNotFound, flightID, seatID)
	}

	now := l.now()
	switch hold.Status {
	case models.HoldHeld:
		if hold.BookingID == bookingID {
			// Retry of an in-flight request; the original hold stands.
			return nil
		}
		if !hold.Expired(now) {
			return fmt.Errorf("%w: flight %d seat %s", apperrors.ErrSeatUnavailable, flightID, seatID)
		}
		// Expired hold the sweeper has not reclaimed yet; safe to take
		// over under the seat lock.
	case models.HoldConfirmed:
		return fmt.Errorf("%w: flight %d seat %s", apperrors.ErrSeatUnavailable, flightID, seatID)
	case models.HoldAvailable, models.HoldReleased:
		// Free to take.
	}

	heldAt := now
	expiresAt := now.Add(holdDuration)
	hold.Status = models.HoldHeld
	hold.BookingID = bookingID
	hold.PassengerRef = passengerRef
	hold.HeldAt = &heldAt
	hold.ExpiresAt = &expiresAt
	hold.ReleaseReason = ""
	return l.store.Update(ctx, hold)
}

// Confirm moves Held(bookingID) to Confirmed. An expired hold fails with
// ErrHoldExpired; a hold owned by another booking fails with
// ErrSeatUnavailable.
func (l *Ledger) Confirm(ctx context.Context, flightID int64, seatID string, bookingID int64) error {
	hold, err := l.store.Get(ctx, flightID, seatID)
	if err != nil {
		return err
	}
	if hold == nil {
		return fmt.Errorf("%w: flight %d seat %s", apperrors.ErrSeatNotFound, flightID, seatID)
	}

	if hold.Status == models.HoldConfirmed && hold.BookingID == bookingID {
		return nil
	}
	if hold.Status != models.HoldHeld || hold.BookingID != bookingID {
		return fmt.Errorf("%w: flight %d seat %s", apperrors.ErrSeatUnavailable, flightID, seatID)
	}
	if hold.Expired(l.now()) {
		return fmt.Errorf("%w: flight %d seat %s", apperrors.ErrHoldExpired, flightID, seatID)
	}

	hold.Status = models.HoldConfirmed
	return l.store.Update(ctx, hold)
}

// Release moves Held or Confirmed back to Released, recording why. Releasing
// a seat the booking no longer owns is a no-op: the seat is already gone.
func (l *Ledger) Release(ctx context.Context, flightID int64, seatID string, bookingID int64, reason models.ReleaseReason) error {
	hold, err := l.store.Get(ctx, flightID, seatID)
	if err != nil {
		return err
	}
	if hold == nil {
		return fmt.Errorf("%w: flight %d seat %s", apperrors.ErrSeatNotFound, flightID, seatID)
	}

	if hold.Status != models.HoldHeld && hold.Status != models.HoldConfirmed {
		return nil
	}
	if hold.BookingID != bookingID {
		return nil
	}

	hold.Status = models.HoldReleased
	hold.ReleaseReason = reason
	hold.BookingID = 0
	hold.PassengerRef = ""
	hold.HeldAt = nil
	hold.ExpiresAt = nil
	return l.store.Update(ctx, hold)
}

// GetStatus returns the current hold for a seat.
func (l *Ledger) GetStatus(ctx context.Context, flightID int64, seatID string) (*models.SeatHold, error) {
	hold, err := l.store.Get(ctx, flightID, seatID)
	if err != nil {
		return nil, err
	}
	if hold == nil {
		return nil, fmt.Errorf("%w: flight %d seat %s", apperrors.ErrSeatNotFound, flightID, seatID)
	}
	return hold, nil
}

// ListExpired returns holds whose deadline passed before the given time.
func (l *Ledger) ListExpired(ctx context.Context, before time.Time) ([]models.SeatHoldRef, error) {
	return l.store.ListExpired(ctx, before)
}

// ListByFlight returns all holds for a flight.
func (l *Ledger) ListByFlight(ctx context.Context, flightID int64) ([]models.SeatHold, error) {
	return l.store.ListByFlight(ctx, flightID)
}

// ListByBooking returns the holds currently owned by a booking.
func (l *Ledger) ListByBooking(ctx context.Context, bookingID int64) ([]models.SeatHold, error) {
	return l.store.ListByBooking(ctx, bookingID)
}
