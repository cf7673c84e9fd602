package lock

import (
	"context"

	"github.com/go-logr/logr"
)

var _ Store = (*Manager)(nil)

// Manager forwards every call to the Store selected at construction.
// Successful calls are logged at V(1) on the logger found in the context,
// failures are returned untouched.
type Manager struct {
	store Store
}

// NewManager creates a Manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

func (m *Manager) Acquire(ctx context.Context, l *Lock) error {
	if err := m.store.Acquire(ctx, l); err != nil {
		return err
	}
	logr.FromContextOrDiscard(ctx).V(1).Info("lock acquired", "key", l.CanonicalKey(), "id", l.ID())
	return nil
}

func (m *Manager) Exists(ctx context.Context, key string) (bool, error) {
	return m.store.Exists(ctx, key)
}

func (m *Manager) Get(ctx context.Context, key string) (*Lock, error) {
	return m.store.Get(ctx, key)
}

func (m *Manager) Update(ctx context.Context, key string, payload any) error {
	if err := m.store.Update(ctx, key, payload); err != nil {
		return err
	}
	logr.FromContextOrDiscard(ctx).V(1).Info("lock updated", "key", key)
	return nil
}

func (m *Manager) Delete(ctx context.Context, key string) error {
	if err := m.store.Delete(ctx, key); err != nil {
		return err
	}
	logr.FromContextOrDiscard(ctx).V(1).Info("lock released", "key", key)
	return nil
}

func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	logr.FromContextOrDiscard(ctx).V(1).Info("locks cleared")
	return nil
}

func (m *Manager) List(ctx context.Context) ([]*Lock, error) {
	return m.store.List(ctx)
}
