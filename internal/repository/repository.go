package repository

import (
	"skybook/internal/database"
)

type Repositories struct {
	Bookings  *BookingRepository
	SeatHolds *SeatHoldRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Bookings:  NewBookingRepository(db),
		SeatHolds: NewSeatHoldRepository(db),
	}
}
