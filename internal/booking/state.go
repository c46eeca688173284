// Package booking holds the booking lifecycle state machine. The transition
// table is plain data keyed by the exact (from, to, action) triple; guards
// are named functions of the booking and the current time, never closures
// over mutable state, so the table can be tested in isolation.
package booking

import (
	"time"

	apperrors "skybook/internal/errors"
	"skybook/internal/models"
)

// Action names a lifecycle operation on a booking.
type Action string

const (
	ActionSubmit         Action = "submit"
	ActionConfirmPayment Action = "confirmPayment"
	ActionFailPayment    Action = "failPayment"
	ActionRetryPayment   Action = "retryPayment"
	ActionExpire         Action = "expire"
	ActionCancel         Action = "cancel"
	ActionCheckIn        Action = "checkIn"
	ActionComplete       Action = "complete"
)

// Effect tags the side effect the orchestrator must run after a successful
// transition. The machine itself never performs side effects.
type Effect string

const (
	EffectNone         Effect = ""
	EffectReleaseSeats Effect = "release_seats"
	EffectNotify       Effect = "notify_confirmation"
	EffectRefundCheck  Effect = "refund_check"
)

// Guard checks whether a transition is allowed right now.
type Guard func(b *models.Booking, now time.Time) bool

// Transition is one row of the table.
type Transition struct {
	From   models.BookingStatus
	To     models.BookingStatus
	Action Action
	Guard  Guard
	Effect Effect
}

func notExpired(b *models.Booking, now time.Time) bool {
	return !b.PaymentDeadlinePassed(now)
}

func deadlinePassed(b *models.Booking, now time.Time) bool {
	return b.PaymentDeadlinePassed(now)
}

func beforeDeparture(b *models.Booking, now time.Time) bool {
	return b.CanBeCancelled(now)
}

// transitions is the full lifecycle table. A lookup miss is an
// InvalidTransition error, never a silent no-op.
var transitions = []Transition{
	{From: models.BookingDraft, To: models.BookingPaymentPending, Action: ActionSubmit},
	{From: models.BookingPaymentPending, To: models.BookingConfirmed, Action: ActionConfirmPayment, Guard: notExpired, Effect: EffectNotify},
	{From: models.BookingPaymentPending, To: models.BookingPaymentFailed, Action: ActionFailPayment},
	{From: models.BookingPaymentFailed, To: models.BookingPaymentPending, Action: ActionRetryPayment, Guard: notExpired},
	{From: models.BookingPaymentPending, To: models.BookingExpired, Action: ActionExpire, Guard: deadlinePassed, Effect: EffectReleaseSeats},
	{From: models.BookingPaymentPending, To: models.BookingCancelled, Action: ActionCancel, Effect: EffectReleaseSeats},
	{From: models.BookingPaymentFailed, To: models.BookingCancelled, Action: ActionCancel, Effect: EffectReleaseSeats},
	{From: models.BookingConfirmed, To: models.BookingCancelled, Action: ActionCancel, Guard: beforeDeparture, Effect: EffectRefundCheck},
	{From: models.BookingConfirmed, To: models.BookingCheckedIn, Action: ActionCheckIn},
	{From: models.BookingCheckedIn, To: models.BookingCompleted, Action: ActionComplete},
}

// Machine applies lifecycle transitions to bookings.
type Machine struct {
	table map[tripleKey]Transition
}

type tripleKey struct {
	from   models.BookingStatus
	to     models.BookingStatus
	action Action
}

// NewMachine builds the machine from the package transition table.
func NewMachine() *Machine {
	m := &Machine{table: make(map[tripleKey]Transition, len(transitions))}
	for _, t := range transitions {
		m.table[tripleKey{t.From, t.To, t.Action}] = t
	}
	return m
}

// Lookup returns the transition for the exact triple, if present.
func (m *Machine) Lookup(from, to models.BookingStatus, action Action) (Transition, bool) {
	t, ok := m.table[tripleKey{from, to, action}]
	return t, ok
}

// Apply moves b to the target state via action. On success it mutates
// b.Status and returns the matched transition plus an immutable audit event;
// the caller persists both and runs the transition's Effect. A table miss or
// failed guard leaves b untouched and returns InvalidTransitionError with
// full context.
func (m *Machine) Apply(b *models.Booking, to models.BookingStatus, action Action, actor string, now time.Time) (Transition, *models.BookingEvent, error) {
	t, ok := m.Lookup(b.Status, to, action)
	if !ok {
		return Transition{}, nil, &apperrors.InvalidTransitionError{
			BookingID: b.ID,
			Action:    string(action),
			From:      string(b.Status),
		}
	}
	if t.Guard != nil && !t.Guard(b, now) {
		return Transition{}, nil, &apperrors.InvalidTransitionError{
			BookingID: b.ID,
			Action:    string(action),
			From:      string(b.Status),
		}
	}

	event := &models.BookingEvent{
		BookingID:  b.ID,
		Type:       string(action),
		Actor:      actor,
		FromStatus: b.Status,
		ToStatus:   to,
		OccurredAt: now,
	}
	b.Status = to
	return t, event, nil
}
