package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createSeatHoldsTable,
		createBookingsTable,
		createBookingSeatsTable,
		createBookingPassengersTable,
		createBookingEventsTable,
		createSeatHoldsExpiryIndex,
		createBookingsIdemKeyIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createSeatHoldsTable = `
CREATE TABLE IF NOT EXISTS seat_holds (
    flight_id BIGINT NOT NULL,
    seat_id VARCHAR(10) NOT NULL,
    booking_id BIGINT NOT NULL DEFAULT 0,
    passenger_ref VARCHAR(100) NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'AVAILABLE',
    held_at TIMESTAMP,
    expires_at TIMESTAMP,
    release_reason VARCHAR(20) NOT NULL DEFAULT '',
    version BIGINT NOT NULL DEFAULT 1,
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    PRIMARY KEY (flight_id, seat_id),
    CHECK (status IN ('AVAILABLE', 'HELD', 'CONFIRMED', 'RELEASED'))
);`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id SERIAL PRIMARY KEY,
    reference VARCHAR(20) UNIQUE NOT NULL,
    idempotency_key VARCHAR(128) NOT NULL,
    flight_id BIGINT NOT NULL,
    customer_ref VARCHAR(100) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'DRAFT',
    total_amount BIGINT NOT NULL DEFAULT 0,
    expires_at TIMESTAMP,
    confirmed_at TIMESTAMP,
    cancelled_at TIMESTAMP,
    departure_at TIMESTAMP,
    retry_count INTEGER NOT NULL DEFAULT 0,
    last_error TEXT,
    archived_at TIMESTAMP,
    version BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createBookingSeatsTable = `
CREATE TABLE IF NOT EXISTS booking_seats (
    id SERIAL PRIMARY KEY,
    booking_id BIGINT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
    flight_id BIGINT NOT NULL,
    seat_id VARCHAR(10) NOT NULL,
    passenger_ref VARCHAR(100) NOT NULL,
    price BIGINT NOT NULL DEFAULT 0,

    UNIQUE(booking_id, seat_id)
);`

const createBookingPassengersTable = `
CREATE TABLE IF NOT EXISTS booking_passengers (
    id SERIAL PRIMARY KEY,
    booking_id BIGINT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
    ref VARCHAR(100) NOT NULL,
    first_name VARCHAR(100) NOT NULL,
    surname VARCHAR(100) NOT NULL,
    document VARCHAR(100),

    UNIQUE(booking_id, ref)
);`

const createBookingEventsTable = `
CREATE TABLE IF NOT EXISTS booking_events (
    id SERIAL PRIMARY KEY,
    booking_id BIGINT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
    type VARCHAR(40) NOT NULL,
    actor VARCHAR(100) NOT NULL,
    from_status VARCHAR(20) NOT NULL,
    to_status VARCHAR(20) NOT NULL,
    occurred_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createSeatHoldsExpiryIndex = `
CREATE INDEX IF NOT EXISTS idx_seat_holds_expiry
ON seat_holds (expires_at)
WHERE status = 'HELD';`

// Uniqueness applies to live bookings only: a failed attempt is archived
// and must not block a retry under the same key.
const createBookingsIdemKeyIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_idem_key
ON bookings (idempotency_key)
WHERE archived_at IS NULL;`
