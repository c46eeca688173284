package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"skybook/internal/audit"
	"skybook/internal/booking"
	apperrors "skybook/internal/errors"
	"skybook/internal/external"
	"skybook/internal/idempotency"
	"skybook/internal/ledger"
	"skybook/internal/lock"
	"skybook/internal/logger"
	"skybook/internal/messaging"
	"skybook/internal/metrics"
	"skybook/internal/models"

	"github.com/google/uuid"
)

// actorSystem marks transitions driven by the service itself (sweeper,
// rollback) rather than a client request.
const actorSystem = "system"

// InventoryService orchestrates seat allocation: idempotency check, per-seat
// locking in sorted order, hold creation, and compensating rollback. It is
// the only writer of seat holds and booking rows.
type InventoryService struct {
	cfg      Config
	bookings BookingStore
	ledger   *ledger.Ledger
	locks    *lock.Manager
	idem     idempotency.Store
	pricer   external.Pricer
	events   messaging.Publisher
	recorder audit.Recorder
	machine  *booking.Machine
	now      func() time.Time
}

func NewInventoryService(
	cfg Config,
	bookings BookingStore,
	seatLedger *ledger.Ledger,
	locks *lock.Manager,
	idem idempotency.Store,
	pricer external.Pricer,
	publisher messaging.Publisher,
	recorder audit.Recorder,
) *InventoryService {
	if cfg.HoldDuration <= 0 {
		cfg = DefaultConfig()
	}
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &InventoryService{
		cfg:      cfg,
		bookings: bookings,
		ledger:   seatLedger,
		locks:    locks,
		idem:     idem,
		pricer:   pricer,
		events:   publisher,
		recorder: recorder,
		machine:  booking.NewMachine(),
		now:      time.Now,
	}
}

// SetClock overrides the time source, for expiry tests.
func (s *InventoryService) SetClock(now func() time.Time) {
	s.now = now
	s.ledger.SetClock(now)
}

// ProcessBooking creates a booking and holds all requested seats, or does
// nothing at all. Safe to call any number of times with the same
// idempotency key: the first successful outcome is stored and replayed.
func (s *InventoryService) ProcessBooking(ctx context.Context, req *models.ProcessBookingRequest) (*models.ProcessBookingResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	hash, err := requestHash(req)
	if err != nil {
		return nil, err
	}

	reservation, err := s.idem.CheckAndReserve(ctx, req.IdempotencyKey, hash)
	if err != nil {
		return nil, err
	}
	switch reservation.State {
	case idempotency.Completed:
		var result models.ProcessBookingResult
		if err := json.Unmarshal(reservation.Result, &result); err != nil {
			return nil, fmt.Errorf("failed to decode stored result: %w", err)
		}
		metrics.BookingsProcessed.WithLabelValues("replayed").Inc()
		return &result, nil
	case idempotency.InProgress:
		return nil, apperrors.ErrIdempotencyInProgress
	}

	result, err := s.processFresh(ctx, req)
	if err != nil {
		// The reservation must not outlive a failed attempt, otherwise a
		// legitimate retry would be stuck behind a dead in-progress marker.
		if invErr := s.idem.Invalidate(ctx, req.IdempotencyKey); invErr != nil {
			logger.WithContext(ctx).Error("Failed to invalidate idempotency key",
				"error", invErr,
				"idempotency_key", req.IdempotencyKey)
		}
		metrics.BookingsProcessed.WithLabelValues(string(apperrors.Classify(err))).Inc()
		return nil, err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	if err := s.idem.StoreResult(ctx, req.IdempotencyKey, payload, s.cfg.IdempotencyTTL); err != nil {
		return nil, err
	}

	metrics.BookingsProcessed.WithLabelValues("created").Inc()
	return result, nil
}

func validateRequest(req *models.ProcessBookingRequest) error {
	if len(req.Seats) == 0 {
		return fmt.Errorf("no seats requested")
	}
	byRef := make(map[string]bool, len(req.Passengers))
	for _, p := range req.Passengers {
		byRef[p.Ref] = true
	}
	seen := make(map[string]bool, len(req.Seats))
	for _, sel := range req.Seats {
		if seen[sel.SeatID] {
			return fmt.Errorf("seat %s requested twice", sel.SeatID)
		}
		seen[sel.SeatID] = true
		if !byRef[sel.PassengerRef] {
			return fmt.Errorf("seat %s references unknown passenger %q", sel.SeatID, sel.PassengerRef)
		}
	}
	return nil
}

// requestHash canonicalizes the request for idempotency conflict detection:
// the same key with a different payload must be rejected.
func requestHash(req *models.ProcessBookingRequest) (string, error) {
	canonical := *req
	canonical.Seats = append([]models.SeatSelection(nil), req.Seats...)
	sort.Slice(canonical.Seats, func(i, j int) bool {
		return canonical.Seats[i].SeatID < canonical.Seats[j].SeatID
	})
	payload, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("failed to hash request: %w", err)
	}
	return idempotency.HashRequest(payload), nil
}

func (s *InventoryService) processFresh(ctx context.Context, req *models.ProcessBookingRequest) (*models.ProcessBookingResult, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.HoldDuration)

	b := &models.Booking{
		Reference:      newBookingReference(),
		IdempotencyKey: req.IdempotencyKey,
		FlightID:       req.FlightID,
		CustomerRef:    req.CustomerRef,
		Status:         models.BookingDraft,
		ExpiresAt:      &expiresAt,
		DepartureAt:    req.DepartureAt,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, apperrors.Infra("booking create", err)
	}

	// Locks are always taken in seat-ID order so two requests with
	// overlapping seat sets cannot deadlock each other.
	selections := append([]models.SeatSelection(nil), req.Seats...)
	sort.Slice(selections, func(i, j int) bool { return selections[i].SeatID < selections[j].SeatID })

	var handles []*lock.Handle
	var held []models.SeatSelection
	releaseLocks := func() {
		for _, h := range handles {
			if err := s.locks.Release(context.WithoutCancel(ctx), h); err != nil {
				logger.WithContext(ctx).Error("Failed to release seat lock", "error", err, "key", h.Key)
			}
		}
	}

	for _, sel := range selections {
		start := time.Now()
		handle, err := s.locks.Acquire(ctx, lock.SeatKey(req.FlightID, sel.SeatID), s.cfg.LockTTL)
		metrics.LockWaitSeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.LockAcquisitions.WithLabelValues("contention").Inc()
			s.rollbackHolds(ctx, req.FlightID, b.ID, held)
			releaseLocks()
			s.recordFailure(ctx, b, err)
			return nil, err
		}
		metrics.LockAcquisitions.WithLabelValues("acquired").Inc()
		handles = append(handles, handle)

		if err := s.ledger.TryHold(ctx, req.FlightID, sel.SeatID, b.ID, sel.PassengerRef, s.cfg.HoldDuration); err != nil {
			// All-or-nothing: one unavailable seat fails the whole request
			// and puts the already-held seats back.
			s.rollbackHolds(ctx, req.FlightID, b.ID, held)
			releaseLocks()
			s.recordFailure(ctx, b, err)
			return nil, err
		}
		held = append(held, sel)

		s.publish(ctx, models.EventSeatHeld, models.SeatHeldEvent{
			BookingID: b.ID,
			FlightID:  req.FlightID,
			SeatID:    sel.SeatID,
			ExpiresAt: expiresAt,
			Timestamp: now,
		})
	}
	defer releaseLocks()

	totalAmount, err := s.pricer.CalculateBookingPricing(ctx, req.FlightID, selections)
	if err != nil {
		s.rollbackHolds(ctx, req.FlightID, b.ID, held)
		s.recordFailure(ctx, b, err)
		return nil, apperrors.Infra("pricing", err)
	}

	_, event, err := s.machine.Apply(b, models.BookingPaymentPending, booking.ActionSubmit, req.CustomerRef, now)
	if err != nil {
		s.rollbackHolds(ctx, req.FlightID, b.ID, held)
		return nil, err
	}
	b.TotalAmount = totalAmount

	if err := s.bookings.Update(ctx, b); err != nil {
		s.rollbackHolds(ctx, req.FlightID, b.ID, held)
		return nil, apperrors.Infra("booking update", err)
	}
	s.appendEvent(ctx, event)

	seats := make([]models.BookingSeat, len(selections))
	for i, sel := range selections {
		seats[i] = models.BookingSeat{
			BookingID:    b.ID,
			FlightID:     req.FlightID,
			SeatID:       sel.SeatID,
			PassengerRef: sel.PassengerRef,
		}
	}
	if err := s.bookings.AddSeats(ctx, b.ID, seats); err != nil {
		return nil, apperrors.Infra("booking seats", err)
	}
	passengers := make([]models.BookingPassenger, len(req.Passengers))
	for i, p := range req.Passengers {
		passengers[i] = models.BookingPassenger{
			BookingID: b.ID,
			Ref:       p.Ref,
			FirstName: p.FirstName,
			Surname:   p.Surname,
			Document:  p.Document,
		}
	}
	if err := s.bookings.AddPassengers(ctx, b.ID, passengers); err != nil {
		return nil, apperrors.Infra("booking passengers", err)
	}

	s.publish(ctx, models.EventBookingCreated, models.BookingCreatedEvent{
		BookingID: b.ID,
		FlightID:  b.FlightID,
		Reference: b.Reference,
		Timestamp: now,
	})

	return &models.ProcessBookingResult{
		BookingID:   b.ID,
		Reference:   b.Reference,
		Status:      b.Status,
		TotalAmount: totalAmount,
		ExpiresAt:   expiresAt,
	}, nil
}

// rollbackHolds is the compensating release after a partial multi-seat
// acquisition. The caller still owns the seat locks for the released seats.
func (s *InventoryService) rollbackHolds(ctx context.Context, flightID, bookingID int64, held []models.SeatSelection) {
	ctx = context.WithoutCancel(ctx)
	for _, sel := range held {
		if err := s.ledger.Release(ctx, flightID, sel.SeatID, bookingID, models.ReleaseRollback); err != nil {
			logger.WithContext(ctx).Error("Failed to roll back seat hold",
				"error", err,
				"flight_id", flightID,
				"seat_id", sel.SeatID,
				"booking_id", bookingID)
			continue
		}
		metrics.HoldsReleased.WithLabelValues(string(models.ReleaseRollback)).Inc()
		s.publish(ctx, models.EventSeatReleased, models.SeatReleasedEvent{
			BookingID: bookingID,
			FlightID:  flightID,
			SeatID:    sel.SeatID,
			Reason:    string(models.ReleaseRollback),
			Timestamp: s.now(),
		})
	}
}

// recordFailure annotates the draft booking with the failure and archives
// it. The idempotency key is invalidated by the caller, so a retry starts
// over with a new booking row.
func (s *InventoryService) recordFailure(ctx context.Context, b *models.Booking, cause error) {
	ctx = context.WithoutCancel(ctx)
	msg := cause.Error()
	archivedAt := s.now()
	b.LastError = &msg
	b.ArchivedAt = &archivedAt
	if err := s.bookings.Update(ctx, b); err != nil {
		logger.WithContext(ctx).Error("Failed to record booking failure",
			"error", err, "booking_id", b.ID)
	}
}

// ConfirmBooking confirms payment and flips every held seat to Confirmed.
// All-or-nothing: if any hold expired and was reclaimed, seats confirmed in
// this call are released again and the whole confirmation fails.
func (s *InventoryService) ConfirmBooking(ctx context.Context, req *models.ConfirmBookingRequest) error {
	b, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return apperrors.Infra("booking lookup", err)
	}
	if b == nil {
		return apperrors.ErrBookingNotFound
	}
	if b.Status == models.BookingConfirmed {
		return nil
	}

	now := s.now()
	if b.PaymentDeadlinePassed(now) {
		return fmt.Errorf("%w: booking %d", apperrors.ErrHoldExpired, b.ID)
	}

	seats, err := s.bookings.GetSeats(ctx, b.ID)
	if err != nil {
		return apperrors.Infra("booking seats", err)
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].SeatID < seats[j].SeatID })

	var confirmed []models.BookingSeat
	for _, seat := range seats {
		err := s.locks.WithLock(ctx, lock.SeatKey(seat.FlightID, seat.SeatID), s.cfg.LockTTL, func(ctx context.Context) error {
			return s.ledger.Confirm(ctx, seat.FlightID, seat.SeatID, b.ID)
		})
		if err != nil {
			s.rollbackConfirmed(ctx, b.ID, confirmed)
			s.failPayment(ctx, b, err)
			return err
		}
		confirmed = append(confirmed, seat)
	}

	_, event, err := s.machine.Apply(b, models.BookingConfirmed, booking.ActionConfirmPayment, req.PaymentRef, now)
	if err != nil {
		s.rollbackConfirmed(ctx, b.ID, confirmed)
		return err
	}
	confirmedAt := now
	b.ConfirmedAt = &confirmedAt
	if err := s.bookings.Update(ctx, b); err != nil {
		return apperrors.Infra("booking update", err)
	}
	s.appendEvent(ctx, event)

	s.publish(ctx, models.EventBookingConfirmed, models.BookingConfirmedEvent{
		BookingID:  b.ID,
		FlightID:   b.FlightID,
		PaymentRef: req.PaymentRef,
		Timestamp:  now,
	})
	// Fire-and-forget confirmation notification.
	s.publish(ctx, models.EventNotifyConfirmation, models.ConfirmationNotification{
		BookingID: b.ID,
		Reference: b.Reference,
		Timestamp: now,
	})

	return nil
}

// rollbackConfirmed releases seats confirmed earlier in a failed
// ConfirmBooking call.
func (s *InventoryService) rollbackConfirmed(ctx context.Context, bookingID int64, confirmed []models.BookingSeat) {
	ctx = context.WithoutCancel(ctx)
	for _, seat := range confirmed {
		err := s.locks.WithLock(ctx, lock.SeatKey(seat.FlightID, seat.SeatID), s.cfg.LockTTL, func(ctx context.Context) error {
			return s.ledger.Release(ctx, seat.FlightID, seat.SeatID, bookingID, models.ReleaseRollback)
		})
		if err != nil {
			logger.WithContext(ctx).Error("Failed to roll back confirmed seat",
				"error", err,
				"flight_id", seat.FlightID,
				"seat_id", seat.SeatID,
				"booking_id", bookingID)
			continue
		}
		metrics.HoldsReleased.WithLabelValues(string(models.ReleaseRollback)).Inc()
	}
}

func (s *InventoryService) failPayment(ctx context.Context, b *models.Booking, cause error) {
	ctx = context.WithoutCancel(ctx)
	_, event, err := s.machine.Apply(b, models.BookingPaymentFailed, booking.ActionFailPayment, actorSystem, s.now())
	if err != nil {
		logger.WithContext(ctx).Error("Failed to mark payment failure",
			"error", err, "booking_id", b.ID)
		return
	}
	msg := cause.Error()
	b.LastError = &msg
	if err := s.bookings.Update(ctx, b); err != nil {
		logger.WithContext(ctx).Error("Failed to persist payment failure",
			"error", err, "booking_id", b.ID)
		return
	}
	s.appendEvent(ctx, event)
}

// CancelBooking cancels the booking, releases its holds and reports refund
// eligibility.
func (s *InventoryService) CancelBooking(ctx context.Context, req *models.CancelBookingRequest) (*models.CancelBookingResult, error) {
	b, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, apperrors.Infra("booking lookup", err)
	}
	if b == nil {
		return nil, apperrors.ErrBookingNotFound
	}

	now := s.now()
	wasConfirmed := b.Status == models.BookingConfirmed
	_, event, err := s.machine.Apply(b, models.BookingCancelled, booking.ActionCancel, b.CustomerRef, now)
	if err != nil {
		return nil, err
	}
	cancelledAt := now
	b.CancelledAt = &cancelledAt
	if err := s.bookings.Update(ctx, b); err != nil {
		return nil, apperrors.Infra("booking update", err)
	}
	s.appendEvent(ctx, event)

	s.releaseBookingHolds(ctx, b.ID, models.ReleaseCancelled)

	s.publish(ctx, models.EventBookingCancelled, models.BookingCancelledEvent{
		BookingID: b.ID,
		FlightID:  b.FlightID,
		Reason:    req.Reason,
		Timestamp: now,
	})

	result := &models.CancelBookingResult{BookingID: b.ID}
	if wasConfirmed {
		eligible, amount, err := s.pricer.RefundEligibility(ctx, b.ID, b.TotalAmount, b.DepartureAt)
		if err != nil {
			// The booking is already cancelled; refund eligibility can be
			// recomputed later, so log instead of failing.
			logger.WithContext(ctx).Error("Failed to compute refund eligibility",
				"error", err, "booking_id", b.ID)
		} else {
			result.RefundEligible = eligible
			result.RefundAmount = amount
		}
	}
	return result, nil
}

// releaseBookingHolds releases every hold a booking still owns, each under
// its own seat lock.
func (s *InventoryService) releaseBookingHolds(ctx context.Context, bookingID int64, reason models.ReleaseReason) {
	ctx = context.WithoutCancel(ctx)
	holds, err := s.ledger.ListByBooking(ctx, bookingID)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to list booking holds",
			"error", err, "booking_id", bookingID)
		return
	}
	for _, hold := range holds {
		err := s.locks.WithLock(ctx, lock.SeatKey(hold.FlightID, hold.SeatID), s.cfg.LockTTL, func(ctx context.Context) error {
			return s.ledger.Release(ctx, hold.FlightID, hold.SeatID, bookingID, reason)
		})
		if err != nil {
			logger.WithContext(ctx).Error("Failed to release seat hold",
				"error", err,
				"flight_id", hold.FlightID,
				"seat_id", hold.SeatID,
				"booking_id", bookingID)
			continue
		}
		metrics.HoldsReleased.WithLabelValues(string(reason)).Inc()
		s.publish(ctx, models.EventSeatReleased, models.SeatReleasedEvent{
			BookingID: bookingID,
			FlightID:  hold.FlightID,
			SeatID:    hold.SeatID,
			Reason:    string(reason),
			Timestamp: s.now(),
		})
	}
}

// GetAvailableSeats lists seats currently free to hold on a flight.
func (s *InventoryService) GetAvailableSeats(ctx context.Context, flightID int64) ([]models.AvailableSeatItem, error) {
	holds, err := s.ledger.ListByFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}

	var items []models.AvailableSeatItem
	for _, hold := range holds {
		if hold.Status == models.HoldAvailable || hold.Status == models.HoldReleased {
			items = append(items, models.AvailableSeatItem{
				SeatID: hold.SeatID,
				Status: hold.Status,
			})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SeatID < items[j].SeatID })
	return items, nil
}

// GetBooking returns a booking with its seats and passengers filled in.
func (s *InventoryService) GetBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, apperrors.Infra("booking lookup", err)
	}
	if b == nil {
		return nil, apperrors.ErrBookingNotFound
	}
	if b.Seats, err = s.bookings.GetSeats(ctx, bookingID); err != nil {
		return nil, apperrors.Infra("booking seats", err)
	}
	return b, nil
}

// GetBookingEvents returns the booking's transition history, oldest first.
func (s *InventoryService) GetBookingEvents(ctx context.Context, bookingID int64) ([]models.BookingEvent, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, apperrors.Infra("booking lookup", err)
	}
	if b == nil {
		return nil, apperrors.ErrBookingNotFound
	}
	events, err := s.bookings.ListEvents(ctx, bookingID)
	if err != nil {
		return nil, apperrors.Infra("booking events", err)
	}
	return events, nil
}

// RetryBooking re-enters processing for a previously submitted idempotency
// key. A booking stuck in PaymentFailed goes back to PaymentPending with an
// incremented retry count; a live or confirmed booking is returned as is.
func (s *InventoryService) RetryBooking(ctx context.Context, idempotencyKey string) (*models.ProcessBookingResult, error) {
	b, err := s.bookings.GetByIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		return nil, apperrors.Infra("booking lookup", err)
	}
	if b == nil {
		return nil, apperrors.ErrBookingNotFound
	}

	if b.Status == models.BookingPaymentFailed {
		now := s.now()
		_, event, err := s.machine.Apply(b, models.BookingPaymentPending, booking.ActionRetryPayment, b.CustomerRef, now)
		if err != nil {
			return nil, err
		}
		b.RetryCount++
		b.LastError = nil
		if err := s.bookings.Update(ctx, b); err != nil {
			return nil, apperrors.Infra("booking update", err)
		}
		s.appendEvent(ctx, event)
	}

	var expiresAt time.Time
	if b.ExpiresAt != nil {
		expiresAt = *b.ExpiresAt
	}
	return &models.ProcessBookingResult{
		BookingID:   b.ID,
		Reference:   b.Reference,
		Status:      b.Status,
		TotalAmount: b.TotalAmount,
		ExpiresAt:   expiresAt,
	}, nil
}

// ExpireOldHolds reclaims holds past their deadline. Each candidate is
// re-verified under its seat lock so a hold confirmed a moment ago is never
// clawed back. Bookings left with no holds move to Expired.
func (s *InventoryService) ExpireOldHolds(ctx context.Context) (*models.ExpireOldHoldsResult, error) {
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	now := s.now()
	refs, err := s.ledger.ListExpired(ctx, now)
	if err != nil {
		return nil, err
	}

	result := &models.ExpireOldHoldsResult{Scanned: len(refs)}
	touched := make(map[int64]bool)

	for _, ref := range refs {
		released := false
		err := s.locks.WithLock(ctx, lock.SeatKey(ref.FlightID, ref.SeatID), s.cfg.LockTTL, func(ctx context.Context) error {
			hold, err := s.ledger.GetStatus(ctx, ref.FlightID, ref.SeatID)
			if err != nil {
				return err
			}
			// Re-check under the lock: the hold may have been confirmed or
			// re-held since the scan.
			if !hold.Expired(s.now()) || hold.BookingID != ref.BookingID {
				return nil
			}
			if err := s.ledger.Release(ctx, ref.FlightID, ref.SeatID, ref.BookingID, models.ReleaseExpired); err != nil {
				return err
			}
			released = true
			return nil
		})
		if err != nil {
			logger.WithContext(ctx).Error("Failed to expire seat hold",
				"error", err,
				"flight_id", ref.FlightID,
				"seat_id", ref.SeatID,
				"booking_id", ref.BookingID)
			result.Skipped++
			continue
		}
		if !released {
			result.Skipped++
			continue
		}

		result.Released++
		metrics.HoldsReleased.WithLabelValues(string(models.ReleaseExpired)).Inc()
		s.publish(ctx, models.EventSeatReleased, models.SeatReleasedEvent{
			BookingID: ref.BookingID,
			FlightID:  ref.FlightID,
			SeatID:    ref.SeatID,
			Reason:    string(models.ReleaseExpired),
			Timestamp: s.now(),
		})
		touched[ref.BookingID] = true
	}

	for bookingID := range touched {
		expired, err := s.expireBookingIfDrained(ctx, bookingID)
		if err != nil {
			logger.WithContext(ctx).Error("Failed to expire booking",
				"error", err, "booking_id", bookingID)
			continue
		}
		if expired {
			result.Expired++
		}
	}

	return result, nil
}

// expireBookingIfDrained moves a PaymentPending booking with no remaining
// holds to Expired.
func (s *InventoryService) expireBookingIfDrained(ctx context.Context, bookingID int64) (bool, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return false, apperrors.Infra("booking lookup", err)
	}
	if b == nil || b.Status != models.BookingPaymentPending {
		return false, nil
	}

	remaining, err := s.ledger.ListByBooking(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if len(remaining) > 0 {
		return false, nil
	}

	now := s.now()
	_, event, err := s.machine.Apply(b, models.BookingExpired, booking.ActionExpire, actorSystem, now)
	if err != nil {
		return false, err
	}
	if err := s.bookings.Update(ctx, b); err != nil {
		return false, apperrors.Infra("booking update", err)
	}
	s.appendEvent(ctx, event)

	s.publish(ctx, models.EventBookingExpired, models.BookingExpiredEvent{
		BookingID: b.ID,
		FlightID:  b.FlightID,
		Reason:    "payment deadline exceeded",
		Timestamp: now,
	})
	return true, nil
}

// ProvisionFlight creates the Available seat map for a flight.
func (s *InventoryService) ProvisionFlight(ctx context.Context, flightID int64, seatIDs []string) error {
	return s.ledger.Provision(ctx, flightID, seatIDs)
}

func (s *InventoryService) appendEvent(ctx context.Context, event *models.BookingEvent) {
	if err := s.bookings.AppendEvent(ctx, event); err != nil {
		logger.WithContext(ctx).Error("Failed to append booking event",
			"error", err,
			"booking_id", event.BookingID,
			"event_type", event.Type)
	}
	if err := s.recorder.Record(ctx, event); err != nil {
		logger.WithContext(ctx).Error("Failed to record audit event",
			"error", err,
			"booking_id", event.BookingID,
			"event_type", event.Type)
	}
}

func (s *InventoryService) publish(ctx context.Context, subject string, data interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(subject, data); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err,
			"event_type", subject)
	}
}

// newBookingReference builds a short human-readable reference like
// "SB-5G2K9QX1".
func newBookingReference() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return "SB-" + raw[:8]
}
