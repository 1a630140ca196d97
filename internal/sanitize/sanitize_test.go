package sanitize_test

import (
	"strings"
	"testing"

	"github.com/aretw0/furrow/internal/sanitize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_SizeLimit(t *testing.T) {
	limit := sanitize.DefaultMaxInputSize

	tests := []struct {
		name      string
		inputSize int
		wantErr   bool
	}{
		{"Under Limit", limit - 1, false},
		{"Exact Limit", limit, false},
		{"Over Limit", limit + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sanitize.Message(strings.Repeat("a", tt.inputSize), 0)
			if tt.wantErr {
				assert.ErrorIs(t, err, sanitize.ErrInputTooLarge)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMessage_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Normal Text", "wheat price in Indore", "wheat price in Indore"},
		{"Safe Controls", "Line1\nLine2\tTabbed", "Line1\nLine2\tTabbed"},
		{"ANSI Code", "\x1b[31mRed\x1b[0m", "[31mRed[0m"},
		{"Null Byte", "Null\x00Byte", "NullByte"},
		{"Bell", "Ding\x07", "Ding"},
		{"Trimmed", "  rain today?\n", "rain today?"},
		{"Unicode", "ಮೈಸೂರು ಹವಾಮಾನ", "ಮೈಸೂರು ಹವಾಮಾನ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sanitize.Message(tt.input, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMessage_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\x00\x07"} {
		_, err := sanitize.Message(in, 0)
		assert.ErrorIs(t, err, sanitize.ErrEmptyInput, "input %q", in)
	}
}

func TestMessage_EnvOverride(t *testing.T) {
	t.Setenv(sanitize.EnvMaxInputSize, "10")

	_, err := sanitize.Message("12345678901", 0)
	assert.ErrorIs(t, err, sanitize.ErrInputTooLarge)

	_, err = sanitize.Message("12345", 0)
	assert.NoError(t, err)

	// An explicit limit wins over the environment.
	_, err = sanitize.Message("12345678901", 20)
	assert.NoError(t, err)
}

func TestMessage_InvalidUTF8(t *testing.T) {
	_, err := sanitize.Message("\xbd\xb2\x3d\xbc\x20\xe2\x8c\x98", 0)
	assert.ErrorIs(t, err, sanitize.ErrInvalidUTF8)
}
