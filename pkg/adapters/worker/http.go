package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aretw0/furrow/pkg/domain"
)

const maxResponseBytes = 1 << 20

// HTTP calls a remote domain service:
//
//	POST {base}/query  {"instruction", "query", "context"} -> {"success", "response", "redirect_to", "error"}
//	GET  {base}/health -> 2xx when healthy
type HTTP struct {
	desc    domain.WorkerDescriptor
	baseURL string
	client  *http.Client
	headers map[string]string
}

// HTTPOption configures an HTTP worker.
type HTTPOption func(*HTTP)

// WithHTTPClient overrides the client. Timeouts are applied by the agent adapter.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// WithHeader adds a header to every request, e.g. an API key.
func WithHeader(key, value string) HTTPOption {
	return func(h *HTTP) {
		h.headers[key] = value
	}
}

// NewHTTP creates a remote worker.
func NewHTTP(desc domain.WorkerDescriptor, baseURL string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		desc:    desc.Clone(),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type queryRequest struct {
	Instruction string                     `json:"instruction"`
	Query       string                     `json:"query"`
	Context     domain.ConversationContext `json:"context"`
}

type queryResponse struct {
	Success    bool              `json:"success"`
	Response   string            `json:"response"`
	Text       string            `json:"text"`
	RedirectTo domain.WorkerName `json:"redirect_to"`
	Error      string            `json:"error"`
}

// ProcessQuery implements ports.Worker.
func (h *HTTP) ProcessQuery(ctx context.Context, task domain.Task) (domain.DispatchResult, error) {
	body, err := json.Marshal(queryRequest{
		Instruction: task.Instruction,
		Query:       task.Query,
		Context:     task.Context,
	})
	if err != nil {
		return domain.DispatchResult{}, fmt.Errorf("encode task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return domain.DispatchResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	h.setHeaders(req)

	resp, err := h.client.Do(req)
	if err != nil {
		return domain.DispatchResult{}, fmt.Errorf("call %s: %w", h.desc.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return domain.DispatchResult{}, fmt.Errorf("%s returned %d: %s", h.desc.Name, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out queryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return domain.DispatchResult{}, fmt.Errorf("decode %s response: %w", h.desc.Name, err)
	}

	text := out.Response
	if text == "" {
		text = out.Text
	}
	if !out.Success {
		res := domain.Failed(h.desc.Name, domain.ErrorWorkerFailure, nil)
		res.Err = out.Error
		res.RedirectTo = out.RedirectTo
		return res, nil
	}
	res := domain.Succeeded(h.desc.Name, text)
	res.RedirectTo = out.RedirectTo
	return res, nil
}

// Capabilities implements ports.Worker.
func (h *HTTP) Capabilities() domain.WorkerDescriptor {
	return h.desc.Clone()
}

// HealthCheck implements ports.Worker.
func (h *HTTP) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	h.setHeaders(req)

	resp, err := h.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode/100 == 2
}

func (h *HTTP) setHeaders(req *http.Request) {
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
}
