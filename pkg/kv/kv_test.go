package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	r := New()
	r.Set("sr", "N0CALL")
	r.Set("ct", "1203723990")
	r.Set("la", "34.116667")

	enc := r.Encode()
	assert.Equal(t, "sr:N0CALL|ct:1203723990|la:34.116667", enc)

	got := Decode(enc)
	require.Equal(t, 3, got.Len())
	assert.Equal(t, "N0CALL", got.Get("sr"))
	assert.Equal(t, "1203723990", got.Get("ct"))
	assert.Equal(t, "34.116667", got.Get("la"))
}

func TestEscaping(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"pipe", "a|b"},
		{"colon", "12:34"},
		{"backslash", `C:\path`},
		{"newline", "line1\nline2"},
		{"mixed", "x|y:z\\\nw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			r.Set("cm", tt.value)
			got := Decode(r.Encode())
			assert.Equal(t, tt.value, got.Get("cm"))
		})
	}
}

func TestEscapedValueStaysOnOneLine(t *testing.T) {
	r := New()
	r.Set("cm", "first\nsecond")
	assert.NotContains(t, r.Encode(), "\n")
}

func TestDecodeTolerates(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, 0, Decode("").Len())
	})

	t.Run("segment without separator is skipped", func(t *testing.T) {
		r := Decode("sr:N0CALL|garbage|ct:123")
		assert.Equal(t, 2, r.Len())
		assert.Equal(t, "N0CALL", r.Get("sr"))
		assert.Equal(t, "123", r.Get("ct"))
	})

	t.Run("empty value kept", func(t *testing.T) {
		r := Decode("cm:")
		assert.True(t, r.Has("cm"))
		assert.Equal(t, "", r.Get("cm"))
	})
}

func TestSetReplaces(t *testing.T) {
	r := New()
	r.Set("sr", "N0CALL")
	r.Set("sr", "W1AW")
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, "sr:W1AW", r.Encode())
}

func TestMissingKey(t *testing.T) {
	r := New()
	assert.False(t, r.Has("sp"))
	assert.Equal(t, "", r.Get("sp"))
}
