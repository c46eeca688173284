package ledger

import (
	"context"
	"sync"
	"time"

	apperrors "skybook/internal/errors"
	"skybook/internal/models"
)

type seatKey struct {
	flightID int64
	seatID   string
}

// MemoryHoldStore is an in-process HoldStore for tests and single-node
// development. It enforces the same version compare-and-set as the
// Postgres store.
type MemoryHoldStore struct {
	mu    sync.RWMutex
	holds map[seatKey]models.SeatHold
}

func NewMemoryHoldStore() *MemoryHoldStore {
	return &MemoryHoldStore{holds: make(map[seatKey]models.SeatHold)}
}

func (s *MemoryHoldStore) Get(_ context.Context, flightID int64, seatID string) (*models.SeatHold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.holds[seatKey{flightID, seatID}]
	if !ok {
		return nil, nil
	}
	copied := h
	return &copied, nil
}

func (s *MemoryHoldStore) Update(_ context.Context, hold *models.SeatHold) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := seatKey{hold.FlightID, hold.SeatID}
	current, ok := s.holds[key]
	if !ok {
		return apperrors.ErrSeatNotFound
	}
	if current.Version != hold.Version {
		return apperrors.ErrVersionConflict
	}
	hold.Version++
	hold.UpdatedAt = time.Now().UTC()
	s.holds[key] = *hold
	return nil
}

func (s *MemoryHoldStore) Provision(_ context.Context, flightID int64, seatIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, seatID := range seatIDs {
		key := seatKey{flightID, seatID}
		if _, ok := s.holds[key]; ok {
			continue
		}
		s.holds[key] = models.SeatHold{
			FlightID:  flightID,
			SeatID:    seatID,
			Status:    models.HoldAvailable,
			Version:   1,
			UpdatedAt: time.Now().UTC(),
		}
	}
	return nil
}

func (s *MemoryHoldStore) ListByFlight(_ context.Context, flightID int64) ([]models.SeatHold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var holds []models.SeatHold
	for key, h := range s.holds {
		if key.flightID == flightID {
			holds = append(holds, h)
		}
	}
	return holds, nil
}

func (s *MemoryHoldStore) ListByBooking(_ context.Context, bookingID int64) ([]models.SeatHold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var holds []models.SeatHold
	for _, h := range s.holds {
		if h.BookingID == bookingID && (h.Status == models.HoldHeld || h.Status == models.HoldConfirmed) {
			holds = append(holds, h)
		}
	}
	return holds, nil
}

func (s *MemoryHoldStore) ListExpired(_ context.Context, before time.Time) ([]models.SeatHoldRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var refs []models.SeatHoldRef
	for key, h := range s.holds {
		if h.Status == models.HoldHeld && h.ExpiresAt != nil && h.ExpiresAt.Before(before) {
			refs = append(refs, models.SeatHoldRef{
				FlightID:  key.flightID,
				SeatID:    key.seatID,
				BookingID: h.BookingID,
			})
		}
	}
	return refs, nil
}
