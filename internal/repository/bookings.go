package repository

import (
	"context"
	"database/sql"
	"time"

	"skybook/internal/database"
	apperrors "skybook/internal/errors"
	"skybook/internal/models"
)

type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (reference, idempotency_key, flight_id, customer_ref, status,
		                      total_amount, expires_at, departure_at, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, version, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		booking.Reference,
		booking.IdempotencyKey,
		booking.FlightID,
		booking.CustomerRef,
		booking.Status,
		booking.TotalAmount,
		booking.ExpiresAt,
		booking.DepartureAt,
		booking.RetryCount,
	).Scan(&booking.ID, &booking.Version, &booking.CreatedAt, &booking.UpdatedAt)

	return err
}

const bookingColumns = `id, reference, idempotency_key, flight_id, customer_ref, status,
	       total_amount, expires_at, confirmed_at, cancelled_at, departure_at,
	       retry_count, last_error, archived_at, version, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	booking := &models.Booking{}
	err := row.Scan(
		&booking.ID,
		&booking.Reference,
		&booking.IdempotencyKey,
		&booking.FlightID,
		&booking.CustomerRef,
		&booking.Status,
		&booking.TotalAmount,
		&booking.ExpiresAt,
		&booking.ConfirmedAt,
		&booking.CancelledAt,
		&booking.DepartureAt,
		&booking.RetryCount,
		&booking.LastError,
		&booking.ArchivedAt,
		&booking.Version,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return booking, err
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(r.db.QueryRowContext(ctx, query, id))
}

func (r *BookingRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE idempotency_key = $1 AND archived_at IS NULL`
	return scanBooking(r.db.QueryRowContext(ctx, query, key))
}

func (r *BookingRepository) ListByFlight(ctx context.Context, flightID int64) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE flight_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}

	return bookings, rows.Err()
}

// Update writes the booking with an optimistic version check. A stale
// version returns ErrVersionConflict.
func (r *BookingRepository) Update(ctx context.Context, booking *models.Booking) error {
	query := `
		UPDATE bookings
		SET status = $1, total_amount = $2, expires_at = $3, confirmed_at = $4,
		    cancelled_at = $5, retry_count = $6, last_error = $7, archived_at = $8,
		    version = version + 1, updated_at = NOW()
		WHERE id = $9 AND version = $10`

	res, err := r.db.ExecContext(ctx, query,
		booking.Status,
		booking.TotalAmount,
		booking.ExpiresAt,
		booking.ConfirmedAt,
		booking.CancelledAt,
		booking.RetryCount,
		booking.LastError,
		booking.ArchivedAt,
		booking.ID,
		booking.Version,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrVersionConflict
	}
	booking.Version++
	return nil
}

func (r *BookingRepository) AddSeats(ctx context.Context, bookingID int64, seats []models.BookingSeat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO booking_seats (booking_id, flight_id, seat_id, passenger_ref, price)
	          VALUES ($1, $2, $3, $4, $5)`
	for _, seat := range seats {
		if _, err := tx.ExecContext(ctx, query,
			bookingID, seat.FlightID, seat.SeatID, seat.PassengerRef, seat.Price); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *BookingRepository) GetSeats(ctx context.Context, bookingID int64) ([]models.BookingSeat, error) {
	query := `
		SELECT id, booking_id, flight_id, seat_id, passenger_ref, price
		FROM booking_seats
		WHERE booking_id = $1
		ORDER BY seat_id`

	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []models.BookingSeat
	for rows.Next() {
		var seat models.BookingSeat
		err := rows.Scan(
			&seat.ID,
			&seat.BookingID,
			&seat.FlightID,
			&seat.SeatID,
			&seat.PassengerRef,
			&seat.Price,
		)
		if err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}

	return seats, rows.Err()
}

func (r *BookingRepository) AddPassengers(ctx context.Context, bookingID int64, passengers []models.BookingPassenger) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO booking_passengers (booking_id, ref, first_name, surname, document)
	          VALUES ($1, $2, $3, $4, $5)`
	for _, p := range passengers {
		if _, err := tx.ExecContext(ctx, query,
			bookingID, p.Ref, p.FirstName, p.Surname, p.Document); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// AppendEvent inserts one immutable audit entry. Events are never updated
// or deleted.
func (r *BookingRepository) AppendEvent(ctx context.Context, event *models.BookingEvent) error {
	query := `
		INSERT INTO booking_events (booking_id, type, actor, from_status, to_status, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return r.db.QueryRowContext(ctx, query,
		event.BookingID,
		event.Type,
		event.Actor,
		event.FromStatus,
		event.ToStatus,
		occurredAt,
	).Scan(&event.ID)
}

func (r *BookingRepository) ListEvents(ctx context.Context, bookingID int64) ([]models.BookingEvent, error) {
	query := `
		SELECT id, booking_id, type, actor, from_status, to_status, occurred_at
		FROM booking_events
		WHERE booking_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.BookingEvent
	for rows.Next() {
		var event models.BookingEvent
		err := rows.Scan(
			&event.ID,
			&event.BookingID,
			&event.Type,
			&event.Actor,
			&event.FromStatus,
			&event.ToStatus,
			&event.OccurredAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
