package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// DefaultAnthropicModel is a small, fast model; routing needs one word back.
	DefaultAnthropicModel = "claude-3-5-haiku-latest"

	defaultMaxTokens = 16
	systemPrompt     = "You route agricultural questions to specialist agents. Answer with one agent name and nothing else."
)

// Anthropic classifies through the Anthropic Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// AnthropicOption configures the adapter.
type AnthropicOption func(*anthropicConfig)

type anthropicConfig struct {
	model     string
	maxTokens int64
	request   []option.RequestOption
}

// WithAnthropicModel overrides the model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(c *anthropicConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithAnthropicRequestOptions passes raw SDK options (base URL, retries, HTTP client).
func WithAnthropicRequestOptions(opts ...option.RequestOption) AnthropicOption {
	return func(c *anthropicConfig) {
		c.request = append(c.request, opts...)
	}
}

// NewAnthropic creates the adapter. An empty apiKey falls back to the
// ANTHROPIC_API_KEY environment variable, as the SDK does.
func NewAnthropic(apiKey string, opts ...AnthropicOption) *Anthropic {
	cfg := &anthropicConfig{model: DefaultAnthropicModel, maxTokens: defaultMaxTokens}
	for _, opt := range opts {
		opt(cfg)
	}

	reqOpts := []option.RequestOption{}
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	reqOpts = append(reqOpts, cfg.request...)

	return &Anthropic{
		client:    anthropic.NewClient(reqOpts...),
		model:     cfg.model,
		maxTokens: cfg.maxTokens,
	}
}

// Classify implements ports.Oracle.
func (a *Anthropic) Classify(ctx context.Context, prompt string) (string, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic classify: %w", err)
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
