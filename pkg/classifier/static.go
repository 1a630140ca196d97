package classifier

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrOracleUnavailable is returned by StaticOracle when configured to fail.
var ErrOracleUnavailable = errors.New("oracle unavailable")

// StaticOracle is a deterministic oracle for tests and offline runs.
// It answers with the Answers entry whose key appears in the prompt's user
// query, or with Default.
type StaticOracle struct {
	Answers map[string]string
	Default string
	Fail    bool

	mu    sync.Mutex
	calls int
}

// Classify implements ports.Oracle.
func (o *StaticOracle) Classify(ctx context.Context, prompt string) (string, error) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if o.Fail {
		return "", ErrOracleUnavailable
	}

	query := strings.ToLower(extractQuery(prompt))
	keys := make([]string, 0, len(o.Answers))
	for key := range o.Answers {
		keys = append(keys, key)
	}
	// longest key first, so overlapping keys resolve the same way every run
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, key := range keys {
		if strings.Contains(query, strings.ToLower(key)) {
			return o.Answers[key], nil
		}
	}
	return o.Default, nil
}

// Calls returns how many times the oracle was asked.
func (o *StaticOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// extractQuery pulls the quoted user query out of a prompt built by BuildPrompt.
func extractQuery(prompt string) string {
	const marker = "User query: "
	i := strings.Index(prompt, marker)
	if i < 0 {
		return prompt
	}
	rest := prompt[i+len(marker):]
	if j := strings.Index(rest, "\n"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}
