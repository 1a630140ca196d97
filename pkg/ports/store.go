package ports

import (
	"context"

	"github.com/aretw0/furrow/pkg/domain"
)

// ContextStore defines the interface for persisting conversation context.
// The in-process session store stays the source of truth; a ContextStore lets a
// conversation survive a restart.
type ContextStore interface {
	// Save persists the snapshot for a given conversation ID.
	Save(ctx context.Context, conversationID string, conv *domain.ConversationContext) error

	// Load retrieves the snapshot for a given conversation ID.
	// Returns domain.ErrConversationNotFound if the conversation does not exist.
	Load(ctx context.Context, conversationID string) (*domain.ConversationContext, error)

	// Delete removes the snapshot for a given conversation ID.
	Delete(ctx context.Context, conversationID string) error

	// List returns the IDs of the stored conversations.
	List(ctx context.Context) ([]string, error)
}
