package booking

import (
	"testing"
	"time"

	apperrors "skybook/internal/errors"
	"skybook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingBooking(expiresIn time.Duration, now time.Time) *models.Booking {
	expiresAt := now.Add(expiresIn)
	return &models.Booking{
		ID:          7,
		Status:      models.BookingPaymentPending,
		ExpiresAt:   &expiresAt,
		DepartureAt: now.Add(48 * time.Hour),
	}
}

func TestApplyHappyPath(t *testing.T) {
	m := NewMachine()
	now := time.Now()
	b := &models.Booking{ID: 7, Status: models.BookingDraft}

	tr, event, err := m.Apply(b, models.BookingPaymentPending, ActionSubmit, "customer-1", now)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPaymentPending, b.Status)
	assert.Equal(t, EffectNone, tr.Effect)

	require.NotNil(t, event)
	assert.Equal(t, int64(7), event.BookingID)
	assert.Equal(t, "submit", event.Type)
	assert.Equal(t, "customer-1", event.Actor)
	assert.Equal(t, models.BookingDraft, event.FromStatus)
	assert.Equal(t, models.BookingPaymentPending, event.ToStatus)
	assert.Equal(t, now, event.OccurredAt)
}

func TestApplyRejectsUnknownTriple(t *testing.T) {
	m := NewMachine()
	b := &models.Booking{ID: 7, Status: models.BookingDraft}

	_, _, err := m.Apply(b, models.BookingCheckedIn, ActionCheckIn, "customer-1", time.Now())
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidTransition(err))
	assert.Equal(t, models.BookingDraft, b.Status, "failed transition must not mutate the booking")
}

func TestConfirmGuardRejectsExpiredWindow(t *testing.T) {
	m := NewMachine()
	now := time.Now()
	b := pendingBooking(-time.Minute, now)

	_, _, err := m.Apply(b, models.BookingConfirmed, ActionConfirmPayment, "pay-1", now)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidTransition(err))
	assert.Equal(t, models.BookingPaymentPending, b.Status)
}

func TestExpireGuardRequiresPassedDeadline(t *testing.T) {
	m := NewMachine()
	now := time.Now()

	live := pendingBooking(time.Hour, now)
	_, _, err := m.Apply(live, models.BookingExpired, ActionExpire, "system", now)
	require.Error(t, err, "a live booking must not expire")

	stale := pendingBooking(-time.Minute, now)
	tr, _, err := m.Apply(stale, models.BookingExpired, ActionExpire, "system", now)
	require.NoError(t, err)
	assert.Equal(t, models.BookingExpired, stale.Status)
	assert.Equal(t, EffectReleaseSeats, tr.Effect)
}

func TestCancelConfirmedOnlyBeforeDeparture(t *testing.T) {
	m := NewMachine()
	now := time.Now()

	b := &models.Booking{ID: 7, Status: models.BookingConfirmed, DepartureAt: now.Add(time.Hour)}
	tr, _, err := m.Apply(b, models.BookingCancelled, ActionCancel, "customer-1", now)
	require.NoError(t, err)
	assert.Equal(t, EffectRefundCheck, tr.Effect)

	departed := &models.Booking{ID: 8, Status: models.BookingConfirmed, DepartureAt: now.Add(-time.Hour)}
	_, _, err = m.Apply(departed, models.BookingCancelled, ActionCancel, "customer-1", now)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidTransition(err))
}

func TestPaymentFailureAndRetryCycle(t *testing.T) {
	m := NewMachine()
	now := time.Now()
	b := pendingBooking(time.Hour, now)

	_, _, err := m.Apply(b, models.BookingPaymentFailed, ActionFailPayment, "system", now)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPaymentFailed, b.Status)

	_, _, err = m.Apply(b, models.BookingPaymentPending, ActionRetryPayment, "customer-1", now)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPaymentPending, b.Status)

	// Retry is closed once the payment window lapsed.
	b2 := pendingBooking(time.Hour, now)
	_, _, err = m.Apply(b2, models.BookingPaymentFailed, ActionFailPayment, "system", now)
	require.NoError(t, err)
	expired := now.Add(-time.Minute)
	b2.ExpiresAt = &expired
	_, _, err = m.Apply(b2, models.BookingPaymentPending, ActionRetryPayment, "customer-1", now)
	require.Error(t, err)
}

func TestTerminalStatesAcceptNothing(t *testing.T) {
	m := NewMachine()
	now := time.Now()

	for _, status := range []models.BookingStatus{
		models.BookingCancelled,
		models.BookingExpired,
		models.BookingCompleted,
	} {
		b := &models.Booking{ID: 7, Status: status, DepartureAt: now.Add(time.Hour)}
		for _, action := range []Action{ActionSubmit, ActionConfirmPayment, ActionCancel, ActionExpire} {
			_, _, err := m.Apply(b, models.BookingConfirmed, action, "x", now)
			assert.Error(t, err, "status %s action %s", status, action)
		}
	}
}

func TestCheckInAndComplete(t *testing.T) {
	m := NewMachine()
	now := time.Now()
	b := &models.Booking{ID: 7, Status: models.BookingConfirmed, DepartureAt: now.Add(time.Hour)}

	_, _, err := m.Apply(b, models.BookingCheckedIn, ActionCheckIn, "customer-1", now)
	require.NoError(t, err)

	_, _, err = m.Apply(b, models.BookingCompleted, ActionComplete, "system", now)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, b.Status)
}
