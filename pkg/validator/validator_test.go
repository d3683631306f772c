package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsInt(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0", true},
		{"42", true},
		{"-42", true},
		{"007", true},
		{"", false},
		{"-", false},
		{"4.2", false},
		{"+42", false},
		{"42a", false},
		{" 42", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsInt(tt.in))
		})
	}
}

func TestIsFloat(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0", true},
		{"3.14", true},
		{"-3.14", true},
		{"+3.14", true},
		{"3.14f", true},
		{".5", true},
		{"", false},
		{"-", false},
		{"+", false},
		{"3.1.4", false},
		{"3f", false},     // 'f' only allowed after a decimal point
		{"3.1f4", false},  // 'f' must be last
		{"abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFloat(tt.in))
		})
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		spec string
		in   string
		want bool
	}{
		{"is int ok", "is:int", "90", true},
		{"is int bad", "is:int", "9.0", false},
		{"is float ok", "is:float", "145.39", true},
		// An is: directive decides on its own; trailing checks are ignored.
		{"is short-circuits", "is:int|maxval:100", "500", true},

		// Strict boundaries.
		{"minlen strict at bound", "minlen:3", "abc", false},
		{"minlen above bound", "minlen:3", "abcd", true},
		{"maxlen strict at bound", "maxlen:3", "abc", false},
		{"maxlen below bound", "maxlen:3", "ab", true},
		{"maxlen one admits nothing", "maxlen:1", "R", false},
		{"minval strict", "minval:0", "0", false},
		{"minval above", "minval:0", "1", true},
		{"maxval strict", "maxval:100", "100", false},
		{"maxval below", "maxval:100", "99", true},
		{"maxval non-numeric", "maxval:100", "wet", false},

		{"combined pass", "minlen:1|maxlen:10", "hello", true},
		{"combined fail", "minlen:1|maxlen:10", "0123456789x", false},

		{"chrng ok", "chrng:48-57", "12345", true},
		{"chrng out of range", "chrng:48-57", "12a45", false},
		{"chrng empty value ok", "chrng:48-57", "", true},
		{"chpool ok", "chpool:0123456789ABCDEF", "BEEF42", true},
		{"chpool miss", "chpool:0123456789ABCDEF", "BEEG42", false},

		// Malformed directives fail closed.
		{"bad minlen", "minlen:x", "abc", false},
		{"bad chrng no dash", "chrng:4857", "1", false},
		{"bad chrng inverted", "chrng:57-48", "1", false},
		{"bad chrng equal", "chrng:48-48", "0", false},
		{"bad pair", "minlen", "abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Check(tt.spec, tt.in))
		})
	}
}

func TestNullString(t *testing.T) {
	t.Run("valid binds string", func(t *testing.T) {
		v := NullString("is:int", "270")
		assert.True(t, v.Valid)
		assert.Equal(t, "270", v.String)
	})

	t.Run("empty binds null", func(t *testing.T) {
		assert.False(t, NullString("is:int", "").Valid)
	})

	t.Run("invalid binds null", func(t *testing.T) {
		assert.False(t, NullString("is:int", "fast").Valid)
	})
}
