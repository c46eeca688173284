package service

import (
	"context"
	"time"

	"skybook/internal/audit"
	"skybook/internal/external"
	"skybook/internal/idempotency"
	"skybook/internal/ledger"
	"skybook/internal/lock"
	"skybook/internal/messaging"
	"skybook/internal/models"
)

// BookingStore is the durable storage contract for bookings. The Postgres
// implementation lives in internal/repository; an in-memory one backs the
// tests.
type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error)
	ListByFlight(ctx context.Context, flightID int64) ([]models.Booking, error)
	Update(ctx context.Context, booking *models.Booking) error
	AddSeats(ctx context.Context, bookingID int64, seats []models.BookingSeat) error
	GetSeats(ctx context.Context, bookingID int64) ([]models.BookingSeat, error)
	AddPassengers(ctx context.Context, bookingID int64, passengers []models.BookingPassenger) error
	AppendEvent(ctx context.Context, event *models.BookingEvent) error
	ListEvents(ctx context.Context, bookingID int64) ([]models.BookingEvent, error)
}

// Config carries the inventory service's tunables.
type Config struct {
	// HoldDuration is the payment window for new bookings.
	HoldDuration time.Duration
	// IdempotencyTTL is how long a completed result is replayed.
	IdempotencyTTL time.Duration
	// LockTTL bounds each seat critical section.
	LockTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		HoldDuration:   15 * time.Minute,
		IdempotencyTTL: 24 * time.Hour,
		LockTTL:        10 * time.Second,
	}
}

type Services struct {
	Inventory *InventoryService
}

func NewServices(
	cfg Config,
	bookings BookingStore,
	seatLedger *ledger.Ledger,
	locks *lock.Manager,
	idem idempotency.Store,
	pricer external.Pricer,
	publisher messaging.Publisher,
	recorder audit.Recorder,
) *Services {
	return &Services{
		Inventory: NewInventoryService(cfg, bookings, seatLedger, locks, idem, pricer, publisher, recorder),
	}
}
