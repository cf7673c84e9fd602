package lock

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/enverbisevac/locker/errors"
	"github.com/google/uuid"
)

// record is the persisted shape shared by every backend that stores a lock
// as a single blob.
type record struct {
	ID         uuid.UUID       `json:"id"`
	Key        string          `json:"key"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
	ModifiedAt time.Time       `json:"modified_at"`
}

// MarshalJSON implements json.Marshaler.
func (l *Lock) MarshalJSON() ([]byte, error) {
	return json.Marshal(record{
		ID:         l.id,
		Key:        l.key,
		Payload:    l.payload,
		CreatedAt:  l.createdAt,
		ModifiedAt: l.modifiedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Lock) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if r.ID == uuid.Nil {
		return errors.New("missing id")
	}
	if r.Key == "" {
		return errors.New("missing key")
	}
	if len(r.Payload) == 0 {
		r.Payload = json.RawMessage("null")
	}
	*l = *Restore(r.ID, r.Key, r.Payload, r.CreatedAt, r.ModifiedAt)
	return nil
}

// Marshal serializes l for storage.
func Marshal(l *Lock) ([]byte, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("lock: encode record: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes a stored record.
func Unmarshal(data []byte) (*Lock, error) {
	l := new(Lock)
	if err := json.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("lock: decode record: %w", err)
	}
	return l, nil
}
