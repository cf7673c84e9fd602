package validator

import (
	"testing"

	"github.com/enverbisevac/locker/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator(t *testing.T) {
	v := new(Validator)
	v.Check(NotBlank("file"), errors.New("driver is required"))
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Err("invalid config"))

	v.Check(In("ftp", "file", "redis"), errors.New("unknown driver"))
	v.Check(IsIdentifier("locks; DROP TABLE x"), errors.New("bad table"))
	v.AddError(nil)

	err := v.Err("invalid config")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, "invalid config: unknown driver; bad table", err.Error())

	verr, ok := errors.AsValidation(err)
	require.True(t, ok)
	assert.Len(t, verr.Errors, 2)
}

func TestIsIdentifier(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"lockerstore", true},
		{"public.lockerstore", true},
		{"_locks_2", true},
		{"", false},
		{"2locks", false},
		{"locks-table", false},
		{"a.b.c", false},
		{"locks; DROP TABLE users", false},
		{"x123456789012345678901234567890123456789012345678901234567890123", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, IsIdentifier(tt.value))
		})
	}
}

func TestHelpers(t *testing.T) {
	assert.False(t, NotBlank(" \t"))
	assert.True(t, In("sqlite", "file", "sqlite"))
	assert.True(t, MaxRunes("ćevap", 5))
	assert.False(t, MaxRunes("ćevap", 4))
	assert.True(t, Matches("abc", RgxIdentifier))
}
