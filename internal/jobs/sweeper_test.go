package jobs

import (
	"context"
	"testing"
	"time"

	"skybook/internal/idempotency"
	"skybook/internal/ledger"
	"skybook/internal/lock"
	"skybook/internal/models"
	"skybook/internal/repository"
	"skybook/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedPricer struct{}

func (fixedPricer) CalculateBookingPricing(_ context.Context, _ int64, seats []models.SeatSelection) (int64, error) {
	return 1000 * int64(len(seats)), nil
}

func (fixedPricer) RefundEligibility(context.Context, int64, int64, time.Time) (bool, int64, error) {
	return false, 0, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) error { return nil }

func TestSweepReclaimsExpiredHolds(t *testing.T) {
	seatLedger := ledger.New(ledger.NewMemoryHoldStore())
	inventory := service.NewInventoryService(
		service.DefaultConfig(),
		repository.NewMemoryBookingRepository(),
		seatLedger,
		lock.NewManager(lock.NewMemoryStore(), lock.DefaultConfig()),
		idempotency.NewMemoryStore(),
		fixedPricer{},
		nopPublisher{},
		nil,
	)

	now := time.Now()
	inventory.SetClock(func() time.Time { return now })

	ctx := context.Background()
	require.NoError(t, inventory.ProvisionFlight(ctx, 1, []string{"1A", "1B"}))

	booked, err := inventory.ProcessBooking(ctx, &models.ProcessBookingRequest{
		IdempotencyKey: "sweep-test",
		FlightID:       1,
		CustomerRef:    "customer-1",
		DepartureAt:    now.Add(72 * time.Hour),
		Seats:          []models.SeatSelection{{SeatID: "1A", PassengerRef: "pax-1"}},
		Passengers:     []models.PassengerData{{Ref: "pax-1", FirstName: "Ada", Surname: "Lovelace"}},
	})
	require.NoError(t, err)

	sweeper := NewHoldExpirySweeper(inventory, time.Minute)

	// Nothing to do while the hold is live.
	result, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Released)

	now = now.Add(service.DefaultConfig().HoldDuration + time.Minute)

	result, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Released)
	assert.Equal(t, 1, result.Expired)

	hold, err := seatLedger.GetStatus(ctx, 1, "1A")
	require.NoError(t, err)
	assert.Equal(t, models.HoldReleased, hold.Status)
	assert.Equal(t, models.ReleaseExpired, hold.ReleaseReason)

	b, err := inventory.GetBooking(ctx, booked.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingExpired, b.Status)

	// A second pass finds nothing.
	result, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Released)
	assert.Zero(t, result.Expired)
}

func TestSweeperStartStop(t *testing.T) {
	inventory := service.NewInventoryService(
		service.DefaultConfig(),
		repository.NewMemoryBookingRepository(),
		ledger.New(ledger.NewMemoryHoldStore()),
		lock.NewManager(lock.NewMemoryStore(), lock.DefaultConfig()),
		idempotency.NewMemoryStore(),
		fixedPricer{},
		nopPublisher{},
		nil,
	)

	sweeper := NewHoldExpirySweeper(inventory, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	sweeper.Stop()
}
