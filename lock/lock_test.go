package lock

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/enverbisevac/locker/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestNew(t *testing.T) {
	l, err := New("Sample Lock", person{Name: "John Doe", Age: 33})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, l.ID())
	assert.Equal(t, "Sample Lock", l.Key())
	assert.Equal(t, "sample-lock", l.CanonicalKey())
	assert.JSONEq(t, `{"name":"John Doe","age":33}`, string(l.Payload()))
	assert.Equal(t, l.CreatedAt(), l.ModifiedAt())
	assert.Equal(t, time.UTC, l.CreatedAt().Location())
	assert.Equal(t, l.CreatedAt(), l.CreatedAt().Truncate(time.Microsecond))

	var p person
	require.NoError(t, l.Decode(&p))
	assert.Equal(t, person{Name: "John Doe", Age: 33}, p)
}

func TestNewUniqueIDs(t *testing.T) {
	a, err := New("a", nil)
	require.NoError(t, err)
	b, err := New("a", nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, a.CanonicalKey(), b.CanonicalKey())
}

func TestNewInvalidKey(t *testing.T) {
	for _, key := range []string{"", "   ", "!!!"} {
		_, err := New(key, nil)
		assert.True(t, errors.IsValidation(err), "key %q: expected validation error, got %v", key, err)
	}
}

func TestNewInvalidPayload(t *testing.T) {
	_, err := New("key", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock: encode payload")
}

func TestUpdate(t *testing.T) {
	l, err := New("key", "before")
	require.NoError(t, err)

	id, created := l.ID(), l.CreatedAt()
	prev := l.ModifiedAt()

	for i := 0; i < 100; i++ {
		require.NoError(t, l.Update(i))
		assert.True(t, l.ModifiedAt().After(prev))
		prev = l.ModifiedAt()
	}

	assert.Equal(t, id, l.ID())
	assert.Equal(t, created, l.CreatedAt())
	assert.JSONEq(t, "99", string(l.Payload()))
}

func TestUpdateFrozenClock(t *testing.T) {
	frozen := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	restore := now
	now = func() time.Time { return frozen }
	t.Cleanup(func() { now = restore })

	l, err := New("key", nil)
	require.NoError(t, err)

	require.NoError(t, l.Update(1))
	require.NoError(t, l.Update(2))
	assert.Equal(t, frozen.Add(2*time.Microsecond), l.ModifiedAt())
	assert.Equal(t, frozen, l.CreatedAt())
}

func TestMarshalRoundTrip(t *testing.T) {
	l, err := New("Sample Lock", map[string]any{"name": "John Doe", "tags": []string{"a"}})
	require.NoError(t, err)
	require.NoError(t, l.Update(map[string]any{"name": "Maria Dante"}))

	data, err := Marshal(l)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, l, got)
}

func TestMarshalShape(t *testing.T) {
	l, err := New("Sample Lock", 1)
	require.NoError(t, err)

	data, err := Marshal(l)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, name := range []string{"id", "key", "payload", "created_at", "modified_at"} {
		assert.Contains(t, fields, name)
	}
	assert.JSONEq(t, `"Sample Lock"`, string(fields["key"]))
}

func TestUnmarshalInvalid(t *testing.T) {
	tests := map[string]string{
		"garbage":     "not json",
		"empty":       "",
		"missing id":  `{"key":"a","payload":1}`,
		"missing key": `{"id":"` + uuid.NewString() + `","payload":1}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal([]byte(data))
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), "lock: decode record"))
		})
	}
}

func TestRestore(t *testing.T) {
	id := uuid.New()
	created := time.Date(2024, 5, 1, 10, 0, 0, 123000, time.FixedZone("CEST", 2*60*60))
	modified := created.Add(time.Hour)

	l := Restore(id, "Sample Lock", []byte(`{"a":1}`), created, modified)

	assert.Equal(t, id, l.ID())
	assert.Equal(t, "sample-lock", l.CanonicalKey())
	assert.True(t, created.Equal(l.CreatedAt()))
	assert.Equal(t, time.UTC, l.CreatedAt().Location())
	assert.True(t, modified.Equal(l.ModifiedAt()))
}
