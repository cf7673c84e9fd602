package inmem

import (
	"context"
	"testing"

	"github.com/enverbisevac/locker/lock"
	"github.com/enverbisevac/locker/lock/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) lock.Store {
		return New()
	})
}

func TestStoreIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()

	l, err := lock.New("isolated", map[string]int{"n": 1})
	require.NoError(t, err)
	require.NoError(t, s.Acquire(ctx, l))

	// mutating the caller's copy must not reach the store
	require.NoError(t, l.Update(map[string]int{"n": 2}))

	got, err := s.Get(ctx, "isolated")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(got.Payload()))
}

func TestStoreCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Exists(ctx, "key")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
