// Package redis implements lock.Store on a redis hash. Every record is a
// field of one hash, keyed by the canonical lock key.
package redis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/enverbisevac/locker/errors"
	"github.com/enverbisevac/locker/lock"
	"github.com/enverbisevac/locker/slug"
	"github.com/redis/go-redis/v9"
)

var (
	DefaultTable            = "lockerstore"
	DefaultOperationTimeout = 10 * time.Second
)

var _ lock.Store = (*Store)(nil)

// compareAndSet replaces field ARGV[1] with ARGV[3] when it still holds
// ARGV[2]. Returns 0 for a missing field, -1 for a changed one, 1 on success.
var compareAndSet = redis.NewScript(`
local current = redis.call("HGET", KEYS[1], ARGV[1])
if not current then
	return 0
end
if current ~= ARGV[2] then
	return -1
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[3])
return 1
`)

// Store implements lock.Store on top of a redis client.
type Store struct {
	config Config
	client redis.UniversalClient
}

// New creates a store using client. The client is not closed by the store.
func New(client redis.UniversalClient, options ...Option) (*Store, error) {
	config := Config{
		Table:            DefaultTable,
		OperationTimeout: DefaultOperationTimeout,
	}
	for _, opt := range options {
		opt.Apply(&config)
	}

	if client == nil {
		return nil, errors.InvalidConfiguration(nil, "redis client is required")
	}

	return &Store{
		config: config,
		client: client,
	}, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.OperationTimeout)
}

func (s *Store) Acquire(ctx context.Context, l *lock.Lock) error {
	data, err := lock.Marshal(l)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := l.CanonicalKey()

	ok, err := s.client.HSetNX(ctx, s.config.HashKey(), key, data).Result()
	if err != nil {
		return fmt.Errorf("redis: acquire %q: %w", key, err)
	}
	if !ok {
		return errors.AlreadyExists("lock ${%q} already exists", key)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ok, err := s.client.HExists(ctx, s.config.HashKey(), slug.Make(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: exists: %w", err)
	}
	return ok, nil
}

func (s *Store) Get(ctx context.Context, key string) (*lock.Lock, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key = slug.Make(key)

	data, err := s.get(ctx, key)
	if err != nil {
		return nil, err
	}
	return lock.Unmarshal(data)
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.HGet(ctx, s.config.HashKey(), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.NotFound("lock ${%q} not found", key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %q: %w", key, err)
	}
	return data, nil
}

// Update rewrites the record only if nobody changed it since it was read.
// A concurrent writer makes Update fail with a locking error.
func (s *Store) Update(ctx context.Context, key string, payload any) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key = slug.Make(key)

	current, err := s.get(ctx, key)
	if err != nil {
		return err
	}

	l, err := lock.Unmarshal(current)
	if err != nil {
		return err
	}
	if err := l.Update(payload); err != nil {
		return err
	}
	data, err := lock.Marshal(l)
	if err != nil {
		return err
	}

	res, err := compareAndSet.Run(ctx, s.client, []string{s.config.HashKey()}, key, current, data).Int()
	if err != nil {
		return fmt.Errorf("redis: update %q: %w", key, err)
	}

	switch res {
	case 0:
		return errors.NotFound("lock ${%q} not found", key)
	case -1:
		return errors.LockingFailure(nil, "lock ${%q} was modified concurrently", key)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key = slug.Make(key)

	n, err := s.client.HDel(ctx, s.config.HashKey(), key).Result()
	if err != nil {
		return fmt.Errorf("redis: delete %q: %w", key, err)
	}
	if n == 0 {
		return errors.NotFound("lock ${%q} not found", key)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.Del(ctx, s.config.HashKey()).Err(); err != nil {
		return fmt.Errorf("redis: clear: %w", err)
	}
	return nil
}

// List returns the records ordered by canonical key.
func (s *Store) List(ctx context.Context) ([]*lock.Lock, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	values, err := s.client.HVals(ctx, s.config.HashKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list: %w", err)
	}

	locks := make([]*lock.Lock, 0, len(values))
	for _, value := range values {
		l, err := lock.Unmarshal([]byte(value))
		if err != nil {
			return nil, err
		}
		locks = append(locks, l)
	}

	sort.Slice(locks, func(i, j int) bool {
		return locks[i].CanonicalKey() < locks[j].CanonicalKey()
	})
	return locks, nil
}
