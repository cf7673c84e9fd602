// Package storetest provides the behavior suite every lock.Store
// implementation must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/enverbisevac/locker/errors"
	"github.com/enverbisevac/locker/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// Person is the payload used throughout the suite.
type Person struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int    `json:"age"`
}

// NewStoreFunc returns a store bound to t. Stores returned for the same
// test may share their storage medium, the suite clears it before use.
type NewStoreFunc func(t *testing.T) lock.Store

// Run executes the suite against stores created by newStore.
func Run(t *testing.T, newStore NewStoreFunc) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s lock.Store)
	}{
		{"ExistsMissingKey", testExistsMissingKey},
		{"AcquireExistingKey", testAcquireExistingKey},
		{"AcquireCollidingKeys", testAcquireCollidingKeys},
		{"NormalizedLookup", testNormalizedLookup},
		{"RoundTrip", testRoundTrip},
		{"WriteUpdateGetDelete", testWriteUpdateGetDelete},
		{"UpdateAdvancesModifiedAt", testUpdateAdvancesModifiedAt},
		{"MissingKey", testMissingKey},
		{"DeleteThenAcquire", testDeleteThenAcquire},
		{"ListAndClear", testListAndClear},
		{"ConcurrentAcquire", testConcurrentAcquire},
		{"ConcurrentUpdate", testConcurrentUpdate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			require.NoError(t, s.Clear(context.Background()))
			tt.fn(t, s)
		})
	}
}

// AssertEqualLock checks that got carries every field of want.
func AssertEqualLock(t *testing.T, want, got *lock.Lock) {
	t.Helper()

	require.NotNil(t, got)
	assert.Equal(t, want.ID(), got.ID())
	assert.Equal(t, want.Key(), got.Key())
	assert.Equal(t, want.CanonicalKey(), got.CanonicalKey())
	assert.JSONEq(t, string(want.Payload()), string(got.Payload()))
	assert.True(t, want.CreatedAt().Equal(got.CreatedAt()),
		"created at: want %s, got %s", want.CreatedAt(), got.CreatedAt())
	assert.True(t, want.ModifiedAt().Equal(got.ModifiedAt()),
		"modified at: want %s, got %s", want.ModifiedAt(), got.ModifiedAt())
}

func newLock(t *testing.T, key string, payload any) *lock.Lock {
	t.Helper()

	l, err := lock.New(key, payload)
	require.NoError(t, err)
	return l
}

func testExistsMissingKey(t *testing.T, s lock.Store) {
	ok, err := s.Exists(context.Background(), "a not existing key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testAcquireExistingKey(t *testing.T, s lock.Store) {
	ctx := context.Background()
	l := newLock(t, "Existing Lock", "simple payload")

	require.NoError(t, s.Acquire(ctx, l))

	err := s.Acquire(ctx, l)
	assert.True(t, errors.IsAlreadyExists(err), "expected AlreadyExistsError, got %v", err)

	got, err := s.Get(ctx, "existing-lock")
	require.NoError(t, err)
	AssertEqualLock(t, l, got)
}

func testAcquireCollidingKeys(t *testing.T, s lock.Store) {
	ctx := context.Background()

	require.NoError(t, s.Acquire(ctx, newLock(t, "Sample Lock", 1)))

	err := s.Acquire(ctx, newLock(t, "sample_LOCK!", 2))
	assert.True(t, errors.IsAlreadyExists(err), "expected AlreadyExistsError, got %v", err)

	got, err := s.Get(ctx, "sample lock")
	require.NoError(t, err)
	assert.JSONEq(t, "1", string(got.Payload()))
}

func testNormalizedLookup(t *testing.T, s lock.Store) {
	ctx := context.Background()
	l := newLock(t, "Crème Brûlée", "dessert")

	require.NoError(t, s.Acquire(ctx, l))

	for _, key := range []string{"creme-brulee", "CREME BRULEE", "  Crème  Brûlée  "} {
		ok, err := s.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, "exists(%q)", key)

		got, err := s.Get(ctx, key)
		require.NoError(t, err)
		AssertEqualLock(t, l, got)
	}
}

func testRoundTrip(t *testing.T, s lock.Store) {
	ctx := context.Background()
	payloads := []any{
		nil,
		"text",
		42,
		3.5,
		true,
		[]string{"a", "b"},
		map[string]any{"nested": map[string]any{"list": []any{1.0, "two"}}},
		Person{Name: "John Doe", Email: "john.doe@gmail.com", Age: 33},
	}

	for i, payload := range payloads {
		l := newLock(t, fmt.Sprintf("round trip %d", i), payload)
		require.NoError(t, s.Acquire(ctx, l))

		got, err := s.Get(ctx, l.CanonicalKey())
		require.NoError(t, err)
		AssertEqualLock(t, l, got)
	}
}

func testWriteUpdateGetDelete(t *testing.T, s lock.Store) {
	ctx := context.Background()
	john := Person{Name: "John Doe", Email: "john.doe@gmail.com", Age: 33}
	maria := Person{Name: "Maria Dante", Email: "maria.dante@gmail.com", Age: 31}

	l := newLock(t, "Sample Lock", john)
	require.NoError(t, s.Acquire(ctx, l))

	got, err := s.Get(ctx, "sample-lock")
	require.NoError(t, err)
	AssertEqualLock(t, l, got)

	require.NoError(t, s.Update(ctx, "sample-lock", maria))

	got, err = s.Get(ctx, "sample-lock")
	require.NoError(t, err)
	assert.Equal(t, l.ID(), got.ID())
	assert.True(t, l.CreatedAt().Equal(got.CreatedAt()))

	var person Person
	require.NoError(t, got.Decode(&person))
	assert.Equal(t, maria, person)

	require.NoError(t, s.Delete(ctx, "sample-lock"))

	ok, err := s.Exists(ctx, "sample-lock")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, "sample-lock")
	assert.True(t, errors.IsNotFound(err), "expected NotFoundError, got %v", err)
}

func testUpdateAdvancesModifiedAt(t *testing.T, s lock.Store) {
	ctx := context.Background()
	l := newLock(t, "counter", 0)
	require.NoError(t, s.Acquire(ctx, l))

	prev := l.ModifiedAt()
	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Update(ctx, "counter", i))

		got, err := s.Get(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, l.ID(), got.ID())
		assert.True(t, l.CreatedAt().Equal(got.CreatedAt()))
		assert.True(t, got.ModifiedAt().After(prev), "update %d: %s is not after %s", i, got.ModifiedAt(), prev)
		assert.JSONEq(t, fmt.Sprint(i), string(got.Payload()))
		prev = got.ModifiedAt()
	}
}

func testMissingKey(t *testing.T, s lock.Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "not-existing-key")
	assert.True(t, errors.IsNotFound(err), "get: expected NotFoundError, got %v", err)

	err = s.Update(ctx, "not-existing-key", "payload")
	assert.True(t, errors.IsNotFound(err), "update: expected NotFoundError, got %v", err)

	err = s.Delete(ctx, "not-existing-key")
	assert.True(t, errors.IsNotFound(err), "delete: expected NotFoundError, got %v", err)

	ok, err := s.Exists(ctx, "not-existing-key")
	require.NoError(t, err)
	assert.False(t, ok, "update must not create a record")
}

func testDeleteThenAcquire(t *testing.T, s lock.Store) {
	ctx := context.Background()

	first := newLock(t, "reused", "first")
	require.NoError(t, s.Acquire(ctx, first))
	require.NoError(t, s.Delete(ctx, "reused"))

	second := newLock(t, "reused", "second")
	require.NoError(t, s.Acquire(ctx, second))

	got, err := s.Get(ctx, "reused")
	require.NoError(t, err)
	AssertEqualLock(t, second, got)
}

func testListAndClear(t *testing.T, s lock.Store) {
	ctx := context.Background()

	locks, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, locks)

	lock1 := newLock(t, "Sample Lock 1", Person{Name: "John Doe", Age: 33})
	lock2 := newLock(t, "Sample Lock 2", Person{Name: "Maria Dante", Age: 31})
	require.NoError(t, s.Acquire(ctx, lock1))
	require.NoError(t, s.Acquire(ctx, lock2))

	locks, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, locks, 2)

	ids := map[string]bool{}
	for _, l := range locks {
		ids[l.ID().String()] = true
	}
	assert.True(t, ids[lock1.ID().String()])
	assert.True(t, ids[lock2.ID().String()])

	require.NoError(t, s.Clear(ctx))

	locks, err = s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, locks)

	require.NoError(t, s.Clear(ctx))

	ok, err := s.Exists(ctx, "sample-lock-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testConcurrentAcquire(t *testing.T, s lock.Store) {
	const contenders = 8

	var (
		won      atomic.Int32
		rejected atomic.Int32
	)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < contenders; i++ {
		l := newLock(t, "contended", i)
		g.Go(func() error {
			err := s.Acquire(ctx, l)
			switch {
			case err == nil:
				won.Add(1)
			case errors.IsAlreadyExists(err):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), won.Load())
	assert.Equal(t, int32(contenders-1), rejected.Load())
}

// testConcurrentUpdate checks that concurrent writers never corrupt the
// record. Every update either lands or fails with LockingFailure, and the
// stored payload is one that landed.
func testConcurrentUpdate(t *testing.T, s lock.Store) {
	const writers = 8

	l := newLock(t, "contended update", -1)
	require.NoError(t, s.Acquire(context.Background(), l))

	var (
		mu     sync.Mutex
		landed = map[string]bool{}
	)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < writers; i++ {
		payload := Person{Name: fmt.Sprintf("writer %d", i), Age: i}
		g.Go(func() error {
			err := s.Update(ctx, "contended update", payload)
			switch {
			case err == nil:
				mu.Lock()
				landed[payload.Name] = true
				mu.Unlock()
			case errors.IsLockingFailure(err):
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.NotEmpty(t, landed)

	got, err := s.Get(context.Background(), "contended update")
	require.NoError(t, err)
	assert.Equal(t, l.ID(), got.ID())
	assert.True(t, l.CreatedAt().Equal(got.CreatedAt()))

	var person Person
	require.NoError(t, got.Decode(&person))
	assert.True(t, landed[person.Name], "stored payload %+v was never written successfully", person)
}
