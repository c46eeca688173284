package idempotency

import (
	"context"
	"sync"
	"time"

	apperrors "skybook/internal/errors"
)

type memoryRecord struct {
	Record
	expiresAt time.Time
}

// MemoryStore is an in-process Store for tests and single-node development.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]memoryRecord
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]memoryRecord),
		now:     time.Now,
	}
}

// SetClock overrides the time source, for TTL tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) CheckAndReserve(_ context.Context, key, requestHash string) (*Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[key]
	if ok && s.now().Before(existing.expiresAt) {
		if existing.RequestHash != "" && existing.RequestHash != requestHash {
			return nil, apperrors.ErrIdempotencyConflict
		}
		if existing.State == Completed {
			return &Reservation{State: Completed, Result: existing.Result}, nil
		}
		return &Reservation{State: InProgress}, nil
	}

	s.records[key] = memoryRecord{
		Record: Record{
			State:       InProgress,
			RequestHash: requestHash,
			CreatedAt:   s.now().UTC(),
		},
		expiresAt: s.now().Add(reserveTTL),
	}
	return &Reservation{State: Fresh}, nil
}

func (s *MemoryStore) StoreResult(_ context.Context, key string, result []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	requestHash := ""
	if existing, ok := s.records[key]; ok {
		requestHash = existing.RequestHash
	}
	s.records[key] = memoryRecord{
		Record: Record{
			State:       Completed,
			RequestHash: requestHash,
			Result:      result,
			CreatedAt:   s.now().UTC(),
		},
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Invalidate(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
