package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/furrow/internal/logging"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultOracleTimeout = 5 * time.Second
	defaultCacheSize     = 1024
	defaultCacheTTL      = 5 * time.Minute
)

type cachedDecision struct {
	worker     domain.WorkerName
	confidence domain.Confidence
}

// OracleClassifier wraps an external oracle and validates its answers
// against the candidate worker names.
type OracleClassifier struct {
	oracle  ports.Oracle
	timeout time.Duration
	cache   *expirable.LRU[string, cachedDecision]
	logger  *slog.Logger
}

// OracleOption configures an OracleClassifier.
type OracleOption func(*OracleClassifier)

// WithOracleTimeout bounds every oracle call.
func WithOracleTimeout(d time.Duration) OracleOption {
	return func(c *OracleClassifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDecisionCache sets the size and TTL of the decision cache.
// A size <= 0 disables caching.
func WithDecisionCache(size int, ttl time.Duration) OracleOption {
	return func(c *OracleClassifier) {
		if size <= 0 {
			c.cache = nil
			return
		}
		c.cache = expirable.NewLRU[string, cachedDecision](size, nil, ttl)
	}
}

// WithOracleLogger sets the logger.
func WithOracleLogger(logger *slog.Logger) OracleOption {
	return func(c *OracleClassifier) {
		c.logger = logger
	}
}

// NewOracleClassifier creates a classifier around the given oracle.
// A nil oracle is allowed: every decision is then ConfidenceNone.
func NewOracleClassifier(oracle ports.Oracle, opts ...OracleOption) *OracleClassifier {
	c := &OracleClassifier{
		oracle:  oracle,
		timeout: defaultOracleTimeout,
		cache:   expirable.NewLRU[string, cachedDecision](defaultCacheSize, nil, defaultCacheTTL),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify asks the oracle which candidate should handle query.
// Failures of any kind yield ConfidenceNone; Classify never returns an error.
func (c *OracleClassifier) Classify(ctx context.Context, query string, candidates []domain.WorkerDescriptor) domain.RoutingDecision {
	if c.oracle == nil || len(candidates) == 0 || strings.TrimSpace(query) == "" {
		return domain.Uncertain(domain.SourceOracle)
	}

	key := cacheKey(query, candidates)
	if c.cache != nil {
		if hit, ok := c.cache.Get(key); ok {
			if d := findCandidate(candidates, hit.worker); d != nil {
				return domain.RoutingDecision{Chosen: d, Confidence: hit.confidence, Source: domain.SourceOracle}
			}
		}
	}

	raw, err := c.ask(ctx, BuildPrompt(query, candidates))
	if err != nil {
		c.logger.Warn("oracle call failed, deferring to fallback", "err", err)
		return domain.Uncertain(domain.SourceOracle)
	}

	chosen, confidence := ParseResponse(raw, candidates)
	if chosen == nil {
		c.logger.Info("oracle answer unusable", "answer", truncate(raw, 80), "kind", domain.ErrorClassificationUncertain)
		return domain.Uncertain(domain.SourceOracle)
	}

	if c.cache != nil {
		c.cache.Add(key, cachedDecision{worker: chosen.Name, confidence: confidence})
	}
	c.logger.Debug("oracle routed", "worker", chosen.Name, "confidence", confidence)
	return domain.RoutingDecision{Chosen: chosen, Confidence: confidence, Source: domain.SourceOracle}
}

// ask performs the oracle call under the configured timeout, turning a panic into an error.
func (c *OracleClassifier) ask(ctx context.Context, prompt string) (answer string, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("oracle panicked: %v", r)
		}
	}()
	return c.oracle.Classify(ctx, prompt)
}

// BuildPrompt renders the routing prompt enumerating the candidates.
func BuildPrompt(query string, candidates []domain.WorkerDescriptor) string {
	var b strings.Builder
	b.WriteString("You are a query router for an agricultural assistant. ")
	b.WriteString("Pick the single most appropriate agent for the user's query.\n\n")
	b.WriteString("Available agents:\n")
	names := make([]string, 0, len(candidates))
	for _, d := range candidates {
		summary := d.Summary
		if summary == "" {
			summary = "No description"
		}
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, summary)
		names = append(names, string(d.Name))
	}
	fmt.Fprintf(&b, "\nUser query: %q\n\n", query)
	fmt.Fprintf(&b, "Respond with ONLY the agent name (%s).", strings.Join(names, ", "))
	return b.String()
}

// ParseResponse validates a raw oracle answer against the candidate names.
// An exact (case-insensitive) match wins over containment; containment tries
// longer names first so a name that is a substring of another can't shadow it.
func ParseResponse(raw string, candidates []domain.WorkerDescriptor) (*domain.WorkerDescriptor, domain.Confidence) {
	answer := normalizeAnswer(raw)
	if answer == "" {
		return nil, domain.ConfidenceNone
	}

	for i := range candidates {
		if strings.EqualFold(answer, string(candidates[i].Name)) {
			d := candidates[i].Clone()
			return &d, domain.ConfidenceDirect
		}
	}

	byLength := slices.Clone(candidates)
	slices.SortStableFunc(byLength, func(a, b domain.WorkerDescriptor) int {
		return len(b.Name) - len(a.Name)
	})
	for i := range byLength {
		if strings.Contains(answer, strings.ToLower(string(byLength[i].Name))) {
			d := byLength[i].Clone()
			return &d, domain.ConfidencePartial
		}
	}
	return nil, domain.ConfidenceNone
}

func normalizeAnswer(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.Trim(s, " \t\r\n`*\"'.,:;!-_")
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func cacheKey(query string, candidates []domain.WorkerDescriptor) string {
	names := make([]string, 0, len(candidates))
	for _, d := range candidates {
		names = append(names, string(d.Name))
	}
	slices.Sort(names)
	return normalizeQuery(query) + "|" + strings.Join(names, ",")
}

func findCandidate(candidates []domain.WorkerDescriptor, name domain.WorkerName) *domain.WorkerDescriptor {
	for i := range candidates {
		if candidates[i].Name == name {
			d := candidates[i].Clone()
			return &d
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
