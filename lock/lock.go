// Package lock defines the named-lock record and the Store contract that
// every storage backend implements.
//
// A Lock is created in memory with New, persisted with Store.Acquire,
// modified with Store.Update and released with Store.Delete. Acquisition
// is test-and-set: it fails with an AlreadyExistsError when a record for
// the same canonical key is live, it never waits.
package lock

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/enverbisevac/locker/errors"
	"github.com/enverbisevac/locker/slug"
	"github.com/google/uuid"
)

// now returns the current time in the precision every backend can store.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Lock is a named record representing exclusive ownership of a resource key.
type Lock struct {
	id         uuid.UUID
	key        string
	payload    json.RawMessage
	createdAt  time.Time
	modifiedAt time.Time
}

// New creates a lock for key holding payload. The payload is encoded to
// JSON once and treated as opaque bytes afterwards.
func New(key string, payload any) (*Lock, error) {
	if slug.Make(key) == "" {
		return nil, errors.Validation("lock key %q has no usable characters", key)
	}

	raw, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	t := now()
	return &Lock{
		id:         uuid.New(),
		key:        key,
		payload:    raw,
		createdAt:  t,
		modifiedAt: t,
	}, nil
}

// Restore rebuilds a lock from its stored fields.
func Restore(id uuid.UUID, key string, payload []byte, createdAt, modifiedAt time.Time) *Lock {
	return &Lock{
		id:         id,
		key:        key,
		payload:    json.RawMessage(payload),
		createdAt:  createdAt.UTC(),
		modifiedAt: modifiedAt.UTC(),
	}
}

// ID returns the identifier assigned when the lock was created.
func (l *Lock) ID() uuid.UUID { return l.id }

// Key returns the name the lock was created with.
func (l *Lock) Key() string { return l.key }

// CanonicalKey returns the storage address of the lock.
func (l *Lock) CanonicalKey() string { return slug.Make(l.key) }

// Payload returns the JSON encoded payload.
func (l *Lock) Payload() json.RawMessage { return l.payload }

// CreatedAt returns the creation time in UTC.
func (l *Lock) CreatedAt() time.Time { return l.createdAt }

// ModifiedAt returns the time of the last update in UTC.
func (l *Lock) ModifiedAt() time.Time { return l.modifiedAt }

// Decode unmarshals the payload into v.
func (l *Lock) Decode(v any) error {
	if err := json.Unmarshal(l.payload, v); err != nil {
		return fmt.Errorf("lock: decode payload: %w", err)
	}
	return nil
}

// Update replaces the payload and moves ModifiedAt forward. ModifiedAt
// strictly increases even when two updates land in the same microsecond.
func (l *Lock) Update(payload any) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return err
	}

	t := now()
	if !t.After(l.modifiedAt) {
		t = l.modifiedAt.Add(time.Microsecond)
	}
	l.payload = raw
	l.modifiedAt = t
	return nil
}

func encodePayload(payload any) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("lock: encode payload: %w", err)
	}
	return raw, nil
}
