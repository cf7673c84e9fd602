// Package inmem implements lock.Store in process memory. Records are kept
// serialized so callers never share state with the store.
package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/enverbisevac/locker/errors"
	"github.com/enverbisevac/locker/lock"
	"github.com/enverbisevac/locker/slug"
)

var _ lock.Store = (*Store)(nil)

// Store implements lock.Store using a mutex guarded map.
type Store struct {
	mu    sync.RWMutex
	locks map[string][]byte
}

// New creates a new in-memory lock store.
func New() *Store {
	return &Store{
		locks: make(map[string][]byte),
	}
}

func (s *Store) Acquire(ctx context.Context, l *lock.Lock) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := lock.Marshal(l)
	if err != nil {
		return err
	}

	key := l.CanonicalKey()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locks[key]; ok {
		return errors.AlreadyExists("lock ${%q} already exists", key)
	}
	s.locks[key] = data
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.locks[slug.Make(key)]
	return ok, nil
}

func (s *Store) Get(ctx context.Context, key string) (*lock.Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key = slug.Make(key)

	s.mu.RLock()
	data, ok := s.locks[key]
	s.mu.RUnlock()

	if !ok {
		return nil, errors.NotFound("lock ${%q} not found", key)
	}
	return lock.Unmarshal(data)
}

func (s *Store) Update(ctx context.Context, key string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key = slug.Make(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.locks[key]
	if !ok {
		return errors.NotFound("lock ${%q} not found", key)
	}

	l, err := lock.Unmarshal(data)
	if err != nil {
		return err
	}
	if err := l.Update(payload); err != nil {
		return err
	}
	if data, err = lock.Marshal(l); err != nil {
		return err
	}
	s.locks[key] = data
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key = slug.Make(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locks[key]; !ok {
		return errors.NotFound("lock ${%q} not found", key)
	}
	delete(s.locks, key)
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.locks = make(map[string][]byte)
	return nil
}

// List returns the records ordered by canonical key.
func (s *Store) List(ctx context.Context) ([]*lock.Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	keys := make([]string, 0, len(s.locks))
	for key := range s.locks {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	locks := make([]*lock.Lock, 0, len(keys))
	for _, key := range keys {
		l, err := lock.Unmarshal(s.locks[key])
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		locks = append(locks, l)
	}
	s.mu.RUnlock()

	return locks, nil
}
