package classifier

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/aretw0/furrow/pkg/domain"
)

// Rule maps a keyword set to a worker.
type Rule struct {
	Worker   domain.WorkerName `yaml:"worker" json:"worker"`
	Keywords []string          `yaml:"keywords" json:"keywords"`
}

type compiledRule struct {
	worker   domain.WorkerName
	patterns []*regexp.Regexp
}

// FallbackMatcher is a deterministic rule-based classifier.
// Rules are evaluated in declared order and the first match wins.
// It is immutable after construction and safe for concurrent use.
type FallbackMatcher struct {
	rules    []compiledRule
	source   []Rule
	catchAll domain.WorkerName
}

// NewFallbackMatcher compiles the rule table. catchAll is returned by Classify
// when no rule matches and must not be empty.
func NewFallbackMatcher(rules []Rule, catchAll domain.WorkerName) (*FallbackMatcher, error) {
	if catchAll == "" {
		return nil, fmt.Errorf("fallback matcher requires a catch-all worker")
	}

	m := &FallbackMatcher{
		catchAll: catchAll,
		source:   make([]Rule, 0, len(rules)),
	}
	for i, r := range rules {
		if r.Worker == "" {
			return nil, fmt.Errorf("rule %d: missing worker", i)
		}
		patterns, err := compileKeywords(r.Keywords)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Worker, err)
		}
		if len(patterns) == 0 {
			continue
		}
		m.rules = append(m.rules, compiledRule{worker: r.Worker, patterns: patterns})
		m.source = append(m.source, Rule{Worker: r.Worker, Keywords: slices.Clone(r.Keywords)})
	}
	return m, nil
}

// NewDefaultMatcher builds a matcher over DefaultRules with the knowledge worker as catch-all.
func NewDefaultMatcher() *FallbackMatcher {
	m, err := NewFallbackMatcher(DefaultRules(), domain.WorkerKnowledge)
	if err != nil {
		panic(err) // default table is static
	}
	return m
}

// compileKeywords anchors each keyword at a word start and accepts a plural suffix,
// so "price" matches "prices" but "rain" does not match "grain".
func compileKeywords(keywords []string) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(strings.ToLower(kw))
		if kw == "" {
			continue
		}
		words := strings.Fields(kw)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		re, err := regexp.Compile(`(?i)\b` + strings.Join(words, `\s+`) + `(?:s|es)?\b`)
		if err != nil {
			return nil, fmt.Errorf("keyword %q: %w", kw, err)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

// Match returns the worker of the first matching rule. It never falls back
// to the catch-all.
func (m *FallbackMatcher) Match(query string) (domain.WorkerName, bool) {
	for _, r := range m.rules {
		for _, re := range r.patterns {
			if re.MatchString(query) {
				return r.worker, true
			}
		}
	}
	return "", false
}

// Classify returns the first matching rule's worker, or the catch-all.
func (m *FallbackMatcher) Classify(query string) domain.WorkerName {
	if w, ok := m.Match(query); ok {
		return w
	}
	return m.catchAll
}

// CatchAll returns the worker used when no rule matches.
func (m *FallbackMatcher) CatchAll() domain.WorkerName {
	return m.catchAll
}

// Rules returns a copy of the rule table in priority order.
func (m *FallbackMatcher) Rules() []Rule {
	out := make([]Rule, len(m.source))
	for i, r := range m.source {
		out[i] = Rule{Worker: r.Worker, Keywords: slices.Clone(r.Keywords)}
	}
	return out
}

// DefaultRules is the built-in rule table, in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Worker: domain.WorkerWeather,
			Keywords: []string{
				"weather", "temperature", "rainfall", "humidity", "climate", "forecast",
				"rain", "rainy", "sunny", "cloudy", "storm", "wind", "windy", "monsoon", "imd",
			},
		},
		{
			Worker: domain.WorkerVideo,
			Keywords: []string{
				"video", "youtube", "tutorial", "show me", "watch", "demonstration",
			},
		},
		{
			Worker: domain.WorkerMarket,
			Keywords: []string{
				"price", "market", "commodity", "commodities", "cost", "rate", "trading",
				"agmarknet", "mandi", "wholesale", "retail", "msp",
			},
		},
		{
			Worker: domain.WorkerFertilizer,
			Keywords: []string{
				"fertilizer", "fertiliser", "npk", "urea", "manure", "compost", "dap",
				"nitrogen", "phosphorus", "potassium", "soil nutrient", "organic carbon",
			},
		},
		{
			Worker: domain.WorkerImage,
			Keywords: []string{
				"image", "photo", "picture", "diagnose", "diagnosis", "uploaded", "attached",
			},
		},
	}
}
