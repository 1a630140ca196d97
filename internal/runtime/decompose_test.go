package runtime_test

import (
	"testing"

	"github.com/aretw0/furrow/internal/runtime"
	"github.com/aretw0/furrow/pkg/classifier"
	"github.com/stretchr/testify/assert"
)

func TestDecompose(t *testing.T) {
	matcher := classifier.NewDefaultMatcher()

	tests := []struct {
		name    string
		message string
		want    []string
	}{
		{
			name:    "single domain",
			message: "What's the weather in Mysuru today",
			want:    []string{"What's the weather in Mysuru today"},
		},
		{
			name:    "two domains",
			message: "show tomato prices in Pune and this week's weather there",
			want:    []string{"show tomato prices in Pune", "this week's weather there"},
		},
		{
			name:    "same domain stays whole",
			message: "onion price and potato price in Nashik",
			want:    []string{"onion price and potato price in Nashik"},
		},
		{
			name:    "untagged clause sticks to previous",
			message: "wheat price in Indore; also will it rain, and what about tomorrow",
			want:    []string{"wheat price in Indore", "will it rain and what about tomorrow"},
		},
		{
			name:    "leading untagged clause sticks to next",
			message: "I farm near Hubli and need the forecast as well as cotton rates",
			want:    []string{"I farm near Hubli and need the forecast", "cotton rates"},
		},
		{
			name:    "no domain at all",
			message: "salt and pepper",
			want:    []string{"salt and pepper"},
		},
		{
			name:    "empty",
			message: "   ",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runtime.Decompose(tt.message, matcher, 0))
		})
	}
}

func TestDecompose_Cap(t *testing.T) {
	matcher := classifier.NewDefaultMatcher()
	msg := "weather in Pune; tomato price; urea dose; a tutorial video; diagnose my photo"

	parts := runtime.Decompose(msg, matcher, 4)
	assert.Len(t, parts, 4)
	assert.Equal(t, "weather in Pune", parts[0])
	assert.Equal(t, "a tutorial video and diagnose my photo", parts[3])

	assert.Equal(t, []string{msg}, runtime.Decompose(msg, matcher, 1))
}

func TestDecompose_NilTagger(t *testing.T) {
	assert.Equal(t, []string{"a and b"}, runtime.Decompose("a and b", nil, 4))
}
