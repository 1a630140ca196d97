package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunContextStoreContract runs a suite of tests to verify that a ContextStore implementation
// adheres to the defined interface contract.
func RunContextStoreContract(t *testing.T, store ContextStore) {
	ctx := context.Background()
	convID := "contract-test-conv-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		conv := domain.NewConversationContext(convID)
		conv.UserID = "farmer-1"
		conv.UserFacts["region"] = "Karnataka"
		conv.AppendTurn(domain.Turn{
			Speaker:   domain.UserSpeaker(),
			Text:      "wheat price in Mysuru",
			Timestamp: time.Now(),
		}, 8)
		conv.AppendTurn(domain.Turn{
			Speaker:   domain.WorkerSpeaker(domain.WorkerMarket),
			Text:      "Wheat is trading at 2,400/quintal.",
			Timestamp: time.Now(),
		}, 8)
		conv.Attachment = &domain.MediaRef{Handle: "img-1", MIMEType: "image/jpeg"}

		err := store.Save(ctx, convID, conv)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, convID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, convID, loaded.ConversationID)
		assert.Equal(t, "farmer-1", loaded.UserID)
		assert.Equal(t, "Karnataka", loaded.UserFacts["region"])
		require.Len(t, loaded.RecentTurns, 2)
		assert.Equal(t, domain.WorkerMarket, loaded.RecentTurns[1].Speaker.Worker)
		require.NotNil(t, loaded.Attachment)
		assert.Equal(t, "img-1", loaded.Attachment.Handle)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+convID)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, convID, domain.NewConversationContext(convID))
		require.NoError(t, err)

		err = store.Delete(ctx, convID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, convID)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound, "Load after Delete should return ErrConversationNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := convID + "-1"
		id2 := convID + "-2"
		_ = store.Save(ctx, id1, domain.NewConversationContext(id1))
		_ = store.Save(ctx, id2, domain.NewConversationContext(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
