package middleware

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
)

// Mask replaces the value of a masked user fact.
const Mask = "***"

type piiMiddleware struct {
	next     ports.ContextStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware masks user facts whose key matches one of the patterns
// before the snapshot is stored. The live conversation keeps the real
// values; a conversation restored from the store sees the mask.
func NewPIIMiddleware(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pii pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return func(next ports.ContextStore) ports.ContextStore {
		return &piiMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, conversationID string, conv *domain.ConversationContext) error {
	masked := conv.Clone()
	for k := range masked.UserFacts {
		// Internal facts such as the sealed payload are never masked.
		if strings.HasPrefix(k, "__") {
			continue
		}
		for _, p := range m.patterns {
			if p.MatchString(k) {
				masked.UserFacts[k] = Mask
				break
			}
		}
	}
	return m.next.Save(ctx, conversationID, &masked)
}

func (m *piiMiddleware) Load(ctx context.Context, conversationID string) (*domain.ConversationContext, error) {
	return m.next.Load(ctx, conversationID)
}

func (m *piiMiddleware) Delete(ctx context.Context, conversationID string) error {
	return m.next.Delete(ctx, conversationID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
