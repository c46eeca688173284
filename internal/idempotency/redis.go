package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "skybook/internal/errors"

	"github.com/redis/go-redis/v9"
)

// reserveTTL bounds how long an in-progress marker can linger when a
// process dies mid-request. After it expires the key becomes Fresh again.
const reserveTTL = 5 * time.Minute

// RedisStore implements Store on Redis. The in-progress marker is written
// with SET NX so exactly one concurrent caller wins the reservation.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "idem"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisStore) CheckAndReserve(ctx context.Context, key, requestHash string) (*Reservation, error) {
	rec := Record{
		State:       InProgress,
		RequestHash: requestHash,
		CreatedAt:   time.Now().UTC(),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(key), payload, reserveTTL).Result()
	if err != nil {
		return nil, apperrors.Infra("idempotency reserve", err)
	}
	if ok {
		return &Reservation{State: Fresh}, nil
	}

	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		// Marker expired between SETNX and GET; treat as in progress and
		// let the client retry shortly.
		return &Reservation{State: InProgress}, nil
	}
	if err != nil {
		return nil, apperrors.Infra("idempotency lookup", err)
	}

	var existing Record
	if err := json.Unmarshal(raw, &existing); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	if existing.RequestHash != "" && existing.RequestHash != requestHash {
		return nil, apperrors.ErrIdempotencyConflict
	}

	if existing.State == Completed {
		return &Reservation{State: Completed, Result: existing.Result}, nil
	}
	return &Reservation{State: InProgress}, nil
}

func (s *RedisStore) StoreResult(ctx context.Context, key string, result []byte, ttl time.Duration) error {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	requestHash := ""
	if err == nil {
		var existing Record
		if jsonErr := json.Unmarshal(raw, &existing); jsonErr == nil {
			requestHash = existing.RequestHash
		}
	} else if err != redis.Nil {
		return apperrors.Infra("idempotency read", err)
	}

	rec := Record{
		State:       Completed,
		RequestHash: requestHash,
		Result:      result,
		CreatedAt:   time.Now().UTC(),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := s.client.Set(ctx, s.key(key), payload, ttl).Err(); err != nil {
		return apperrors.Infra("idempotency store", err)
	}
	return nil
}

func (s *RedisStore) Invalidate(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return apperrors.Infra("idempotency invalidate", err)
	}
	return nil
}
