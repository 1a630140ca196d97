package ports

import "context"

// Oracle is an external, possibly unreliable, text classification service.
// It receives a fully built prompt and returns the raw completion; all parsing
// and validation is the caller's job.
type Oracle interface {
	Classify(ctx context.Context, prompt string) (string, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, prompt string) (string, error)

// Classify calls f.
func (f OracleFunc) Classify(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
