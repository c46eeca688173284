package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua scripts keep compare-and-delete / compare-and-expire atomic: GET and
// DEL in one round trip so a holder can never release a lock that expired
// and was re-acquired by someone else.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisStore implements Store on a single authoritative Redis instance.
type RedisStore struct {
	client *redis.Client
	prefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: rdb, prefix: cfg.Prefix}, nil
}

// NewRedisStoreWithClient wraps an existing client, for sharing a
// connection pool with the idempotency store.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	if s.prefix == "" {
		return "lock:" + key
	}
	return s.prefix + ":" + key
}

func (s *RedisStore) AcquireIfAbsent(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.key(key), token, ttl).Result()
}

func (s *RedisStore) ReleaseIfMatch(ctx context.Context, key, token string) (bool, error) {
	n, err := releaseScript.Run(ctx, s.client, []string{s.key(key)}, token).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) ExtendIfMatch(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	n, err := extendScript.Run(ctx, s.client, []string{s.key(key)}, token, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
