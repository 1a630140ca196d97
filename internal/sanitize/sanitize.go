// Package sanitize cleans user messages before they reach the supervisor.
package sanitize

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize is 4KB, comfortably above any farmer query.
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize overrides the default limit.
	EnvMaxInputSize = "FURROW_MAX_INPUT_SIZE"
)

var (
	ErrEmptyInput    = errors.New("message is empty")
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// Message enforces the size limit, validates UTF-8, strips control
// characters and trims surrounding whitespace. A limit <= 0 means the
// environment override or DefaultMaxInputSize.
func Message(input string, limit int) (string, error) {
	if limit <= 0 {
		limit = MaxInputSize()
	}
	if len(input) > limit {
		// Rejected rather than truncated so a cut-off question is never routed.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	out := input
	if hasUnsafeControl(input) {
		var b strings.Builder
		b.Grow(len(input))
		for _, r := range input {
			if !unicode.IsControl(r) || isSafeControl(r) {
				b.WriteRune(r)
			}
		}
		out = b.String()
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyInput
	}
	return out, nil
}

func hasUnsafeControl(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) && !isSafeControl(r) {
			return true
		}
	}
	return false
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

// MaxInputSize returns the effective default limit.
func MaxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
