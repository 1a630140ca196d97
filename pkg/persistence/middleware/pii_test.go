package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/furrow/pkg/adapters/memory"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_MasksMatchingFacts(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{"(?i)phone", "^aadhaar$"})
	require.NoError(t, err)
	store := mw(underlying)

	ctx := context.Background()
	conv := domain.NewConversationContext("c1")
	conv.UserFacts["Phone_Number"] = "+91 98450 00000"
	conv.UserFacts["aadhaar"] = "1234 5678 9012"
	conv.UserFacts["region"] = "Mandya"

	require.NoError(t, store.Save(ctx, "c1", conv))

	loaded, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.UserFacts["Phone_Number"])
	assert.Equal(t, middleware.Mask, loaded.UserFacts["aadhaar"])
	assert.Equal(t, "Mandya", loaded.UserFacts["region"])

	// The caller's copy is untouched.
	assert.Equal(t, "+91 98450 00000", conv.UserFacts["Phone_Number"])
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain_MaskThenSeal(t *testing.T) {
	underlying := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{"phone"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Chain(underlying, pii, enc)

	ctx := context.Background()
	conv := domain.NewConversationContext("c1")
	conv.UserFacts["phone"] = "98450"
	conv.UserFacts["crop"] = "paddy"
	require.NoError(t, store.Save(ctx, "c1", conv))

	raw, err := underlying.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Contains(t, raw.UserFacts, middleware.SealedFact)
	assert.NotContains(t, raw.UserFacts, "crop")

	loaded, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.UserFacts["phone"])
	assert.Equal(t, "paddy", loaded.UserFacts["crop"])

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)

	require.NoError(t, store.Delete(ctx, "c1"))
	_, err = store.Load(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}
