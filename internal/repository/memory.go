package repository

import (
	"context"
	"sync"
	"time"

	apperrors "skybook/internal/errors"
	"skybook/internal/models"
)

// MemoryBookingRepository mirrors BookingRepository semantics in process,
// including the version compare-and-set. Used by tests and local runs
// without Postgres.
type MemoryBookingRepository struct {
	mu         sync.Mutex
	nextID     int64
	bookings   map[int64]models.Booking
	byIdemKey  map[string]int64
	seats      map[int64][]models.BookingSeat
	passengers map[int64][]models.BookingPassenger
	events     map[int64][]models.BookingEvent
	nextEvent  int64
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		nextID:     1,
		bookings:   make(map[int64]models.Booking),
		byIdemKey:  make(map[string]int64),
		seats:      make(map[int64][]models.BookingSeat),
		passengers: make(map[int64][]models.BookingPassenger),
		events:     make(map[int64][]models.BookingEvent),
		nextEvent:  1,
	}
}

func (r *MemoryBookingRepository) Create(_ context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Only a live booking blocks the key; archived failures do not.
	if id, ok := r.byIdemKey[booking.IdempotencyKey]; ok {
		if existing := r.bookings[id]; existing.ArchivedAt == nil {
			return apperrors.ErrIdempotencyConflict
		}
	}

	booking.ID = r.nextID
	r.nextID++
	booking.Version = 1
	booking.CreatedAt = time.Now().UTC()
	booking.UpdatedAt = booking.CreatedAt

	r.bookings[booking.ID] = *booking
	r.byIdemKey[booking.IdempotencyKey] = booking.ID
	return nil
}

func (r *MemoryBookingRepository) GetByID(_ context.Context, id int64) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	copied := b
	return &copied, nil
}

func (r *MemoryBookingRepository) GetByIdempotencyKey(_ context.Context, key string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byIdemKey[key]
	if !ok {
		return nil, nil
	}
	b := r.bookings[id]
	if b.ArchivedAt != nil {
		return nil, nil
	}
	return &b, nil
}

func (r *MemoryBookingRepository) ListByFlight(_ context.Context, flightID int64) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var bookings []models.Booking
	for _, b := range r.bookings {
		if b.FlightID == flightID {
			bookings = append(bookings, b)
		}
	}
	return bookings, nil
}

func (r *MemoryBookingRepository) Update(_ context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.bookings[booking.ID]
	if !ok {
		return apperrors.ErrBookingNotFound
	}
	if current.Version != booking.Version {
		return apperrors.ErrVersionConflict
	}
	booking.Version++
	booking.UpdatedAt = time.Now().UTC()
	r.bookings[booking.ID] = *booking
	return nil
}

func (r *MemoryBookingRepository) AddSeats(_ context.Context, bookingID int64, seats []models.BookingSeat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seats[bookingID] = append(r.seats[bookingID], seats...)
	return nil
}

func (r *MemoryBookingRepository) GetSeats(_ context.Context, bookingID int64) ([]models.BookingSeat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.BookingSeat(nil), r.seats[bookingID]...), nil
}

func (r *MemoryBookingRepository) AddPassengers(_ context.Context, bookingID int64, passengers []models.BookingPassenger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passengers[bookingID] = append(r.passengers[bookingID], passengers...)
	return nil
}

func (r *MemoryBookingRepository) AppendEvent(_ context.Context, event *models.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = r.nextEvent
	r.nextEvent++
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	r.events[event.BookingID] = append(r.events[event.BookingID], *event)
	return nil
}

func (r *MemoryBookingRepository) ListEvents(_ context.Context, bookingID int64) ([]models.BookingEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.BookingEvent(nil), r.events[bookingID]...), nil
}
