package lock

import "context"

// Store persists locks on a storage medium shared between processes.
//
// Keys passed to Exists, Get, Update and Delete are normalized with
// slug.Make before they touch storage, so "Sample Lock" and "sample-lock"
// address the same record.
type Store interface {
	// Acquire persists l. It fails with errors.AlreadyExistsError when a
	// record already occupies l.CanonicalKey().
	Acquire(ctx context.Context, l *Lock) error

	// Exists reports whether a live record occupies key.
	Exists(ctx context.Context, key string) (bool, error)

	// Get returns the record stored at key or errors.NotFoundError.
	Get(ctx context.Context, key string) (*Lock, error)

	// Update replaces the payload of the record stored at key, keeping its
	// id and creation time. A write collision is reported as
	// errors.LockingError.
	Update(ctx context.Context, key string, payload any) error

	// Delete removes the record stored at key or fails with
	// errors.NotFoundError.
	Delete(ctx context.Context, key string) error

	// Clear removes every record of the store.
	Clear(ctx context.Context) error

	// List returns all live records.
	List(ctx context.Context) ([]*Lock, error)
}
