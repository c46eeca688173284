package repository

import (
	"context"
	"database/sql"
	"time"

	"skybook/internal/database"
	apperrors "skybook/internal/errors"
	"skybook/internal/models"
)

// SeatHoldRepository is the Postgres implementation of ledger.HoldStore.
// Update performs a compare-and-set on the version column; the distributed
// lock already serializes writers, so a conflict here indicates a bug.
type SeatHoldRepository struct {
	db *database.DB
}

func NewSeatHoldRepository(db *database.DB) *SeatHoldRepository {
	return &SeatHoldRepository{db: db}
}

func (r *SeatHoldRepository) Get(ctx context.Context, flightID int64, seatID string) (*models.SeatHold, error) {
	hold := &models.SeatHold{}
	query := `
		SELECT flight_id, seat_id, booking_id, passenger_ref, status,
		       held_at, expires_at, release_reason, version, updated_at
		FROM seat_holds
		WHERE flight_id = $1 AND seat_id = $2`

	err := r.db.QueryRowContext(ctx, query, flightID, seatID).Scan(
		&hold.FlightID,
		&hold.SeatID,
		&hold.BookingID,
		&hold.PassengerRef,
		&hold.Status,
		&hold.HeldAt,
		&hold.ExpiresAt,
		&hold.ReleaseReason,
		&hold.Version,
		&hold.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return hold, err
}

func (r *SeatHoldRepository) Update(ctx context.Context, hold *models.SeatHold) error {
	query := `
		UPDATE seat_holds
		SET booking_id = $1, passenger_ref = $2, status = $3, held_at = $4,
		    expires_at = $5, release_reason = $6, version = version + 1, updated_at = NOW()
		WHERE flight_id = $7 AND seat_id = $8 AND version = $9`

	res, err := r.db.ExecContext(ctx, query,
		hold.BookingID,
		hold.PassengerRef,
		hold.Status,
		hold.HeldAt,
		hold.ExpiresAt,
		hold.ReleaseReason,
		hold.FlightID,
		hold.SeatID,
		hold.Version,
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
	hold.Version++
	return nil
}

func (r *SeatHoldRepository) Provision(ctx context.Context, flightID int64, seatIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO seat_holds (flight_id, seat_id, status)
		VALUES ($1, $2, 'AVAILABLE')
		ON CONFLICT (flight_id, seat_id) DO NOTHING`
	for _, seatID := range seatIDs {
		if _, err := tx.ExecContext(ctx, query, flightID, seatID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *SeatHoldRepository) ListByFlight(ctx context.Context, flightID int64) ([]models.SeatHold, error) {
	query := `
		SELECT flight_id, seat_id, booking_id, passenger_ref, status,
		       held_at, expires_at, release_reason, version, updated_at
		FROM seat_holds
		WHERE flight_id = $1
		ORDER BY seat_id`

	return r.queryHolds(ctx, query, flightID)
}

func (r *SeatHoldRepository) ListByBooking(ctx context.Context, bookingID int64) ([]models.SeatHold, error) {
	query := `
		SELECT flight_id, seat_id, booking_id, passenger_ref, status,
		       held_at, expires_at, release_reason, version, updated_at
		FROM seat_holds
		WHERE booking_id = $1 AND status IN ('HELD', 'CONFIRMED')
		ORDER BY seat_id`

	return r.queryHolds(ctx, query, bookingID)
}

func (r *SeatHoldRepository) queryHolds(ctx context.Context, query string, args ...any) ([]models.SeatHold, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holds []models.SeatHold
	for rows.Next() {
		var hold models.SeatHold
		err := rows.Scan(
			&hold.FlightID,
			&hold.SeatID,
			&hold.BookingID,
			&hold.PassengerRef,
			&hold.Status,
			&hold.HeldAt,
			&hold.ExpiresAt,
			&hold.ReleaseReason,
			&hold.Version,
			&hold.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		holds = append(holds, hold)
	}

	return holds, rows.Err()
}

func (r *SeatHoldRepository) ListExpired(ctx context.Context, before time.Time) ([]models.SeatHoldRef, error) {
	query := `
		SELECT flight_id, seat_id, booking_id
		FROM seat_holds
		WHERE status = 'HELD' AND expires_at < $1
		ORDER BY expires_at`

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []models.SeatHoldRef
	for rows.Next() {
		var ref models.SeatHoldRef
		if err := rows.Scan(&ref.FlightID, &ref.SeatID, &ref.BookingID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}
