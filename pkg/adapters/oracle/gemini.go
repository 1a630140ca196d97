package oracle

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// DefaultGeminiModel is the model used when none is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini classifies through the Gemini API generateContent call.
type Gemini struct {
	client *genai.Client
	model  string
}

// GeminiOption configures the adapter.
type GeminiOption func(*geminiConfig)

type geminiConfig struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// WithGeminiModel overrides the model.
func WithGeminiModel(model string) GeminiOption {
	return func(c *geminiConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithGeminiBaseURL points the client at another endpoint.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(c *geminiConfig) {
		c.baseURL = url
	}
}

// WithGeminiHTTPClient overrides the HTTP client.
func WithGeminiHTTPClient(hc *http.Client) GeminiOption {
	return func(c *geminiConfig) {
		c.httpClient = hc
	}
}

// NewGemini creates the adapter. An empty apiKey falls back to the
// GEMINI_API_KEY or GOOGLE_API_KEY environment variables, as the SDK does.
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*Gemini, error) {
	cfg := &geminiConfig{model: DefaultGeminiModel}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: client, model: cfg.model}, nil
}

// Classify implements ports.Oracle.
func (g *Gemini) Classify(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		MaxOutputTokens:   defaultMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("gemini classify: %w", err)
	}
	return resp.Text(), nil
}
