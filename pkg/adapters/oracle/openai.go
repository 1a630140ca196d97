package oracle

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// DefaultOpenAIModel is the model used when none is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI classifies through the OpenAI Responses API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// OpenAIOption configures the adapter.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	model   string
	baseURL string
	request []option.RequestOption
}

// WithOpenAIModel overrides the model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(c *openAIConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithOpenAIBaseURL points the client at a compatible endpoint.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) {
		c.baseURL = url
	}
}

// WithOpenAIRequestOptions passes raw SDK options.
func WithOpenAIRequestOptions(opts ...option.RequestOption) OpenAIOption {
	return func(c *openAIConfig) {
		c.request = append(c.request, opts...)
	}
}

// NewOpenAI creates the adapter. An empty apiKey falls back to OPENAI_API_KEY.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	cfg := &openAIConfig{model: DefaultOpenAIModel}
	for _, opt := range opts {
		opt(cfg)
	}

	reqOpts := []option.RequestOption{}
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	reqOpts = append(reqOpts, cfg.request...)

	client := openai.NewClient(reqOpts...)
	return &OpenAI{client: &client, model: cfg.model}
}

// Classify implements ports.Oracle.
func (o *OpenAI) Classify(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:           shared.ResponsesModel(o.model),
		Instructions:    openai.String(systemPrompt),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(prompt)},
		MaxOutputTokens: openai.Int(defaultMaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai classify: %w", err)
	}
	return resp.OutputText(), nil
}
