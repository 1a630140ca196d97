package domain_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendTurn_Window(t *testing.T) {
	conv := domain.NewConversationContext("c1")
	base := time.Now()
	for i := range 5 {
		conv.AppendTurn(domain.Turn{
			Speaker:   domain.UserSpeaker(),
			Text:      fmt.Sprintf("turn %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}, 3)
	}

	require.Len(t, conv.RecentTurns, 3)
	assert.Equal(t, "turn 2", conv.RecentTurns[0].Text)
	assert.Equal(t, "turn 4", conv.RecentTurns[2].Text)
	assert.Equal(t, base.Add(4*time.Second), conv.LastActivity)
}

func TestAppendTurn_NoWindow(t *testing.T) {
	conv := domain.NewConversationContext("c1")
	for range 20 {
		conv.AppendTurn(domain.Turn{Speaker: domain.SupervisorSpeaker(), Text: "x"}, 0)
	}
	assert.Len(t, conv.RecentTurns, 20)
}

func TestClone_IsDeep(t *testing.T) {
	conv := domain.NewConversationContext("c1")
	conv.UserFacts["crop"] = "cotton"
	conv.AppendTurn(domain.Turn{Speaker: domain.UserSpeaker(), Text: "hi"}, 8)
	conv.Attachment = &domain.MediaRef{Handle: "leaf.jpg"}

	cp := conv.Clone()
	cp.UserFacts["crop"] = "maize"
	cp.RecentTurns[0].Text = "changed"
	cp.Attachment.Handle = "other.jpg"

	assert.Equal(t, "cotton", conv.UserFacts["crop"])
	assert.Equal(t, "hi", conv.RecentTurns[0].Text)
	assert.Equal(t, "leaf.jpg", conv.Attachment.Handle)

	empty := (&domain.ConversationContext{}).Clone()
	assert.NotNil(t, empty.UserFacts)
}

func TestWorkerName_Title(t *testing.T) {
	tests := []struct {
		name domain.WorkerName
		want string
	}{
		{domain.WorkerMarket, "Market prices"},
		{domain.WorkerImage, "Image diagnosis"},
		{"soil_testing", "Soil testing"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.name.Title(), string(tt.name))
	}
}

func TestWorkerDescriptor(t *testing.T) {
	d := domain.WorkerDescriptor{Name: domain.WorkerImage, Tags: []string{"Media"}}
	assert.True(t, d.HasTag("media"))
	assert.False(t, d.HasTag("video"))

	cp := d.Clone()
	cp.Tags[0] = "other"
	assert.Equal(t, "Media", d.Tags[0])
}

func TestRoutingDecision(t *testing.T) {
	none := domain.Uncertain(domain.SourceOracle)
	assert.True(t, none.IsNone())
	assert.Empty(t, none.Worker())

	chosen := domain.RoutingDecision{
		Chosen:     &domain.WorkerDescriptor{Name: domain.WorkerWeather},
		Confidence: domain.ConfidenceDirect,
		Source:     domain.SourceOracle,
	}
	assert.False(t, chosen.IsNone())
	assert.Equal(t, domain.WorkerWeather, chosen.Worker())
}

func TestErrorKind_IsWorkerFailure(t *testing.T) {
	assert.True(t, domain.ErrorWorkerTimeout.IsWorkerFailure())
	assert.True(t, domain.ErrorCancelled.IsWorkerFailure())
	assert.False(t, domain.ErrorNoWorkerAvailable.IsWorkerFailure())
	assert.False(t, domain.ErrorNone.IsWorkerFailure())
}

func TestDispatchResult_Builders(t *testing.T) {
	ok := domain.Succeeded(domain.WorkerVideo, "watch this")
	assert.True(t, ok.Success)

	failed := domain.Failed(domain.WorkerVideo, domain.ErrorWorkerTimeout, errors.New("slow"))
	assert.False(t, failed.Success)
	assert.Equal(t, "slow", failed.Err)
}

func TestSupervisorError_Is(t *testing.T) {
	loop := &domain.SupervisorError{Kind: domain.ErrorRedirectLoopExceeded, Message: "too many hops"}
	assert.ErrorIs(t, loop, domain.ErrRedirectLoopExceeded)
	assert.NotErrorIs(t, loop, domain.ErrNoWorkerAvailable)

	wrapped := fmt.Errorf("turn: %w", &domain.SupervisorError{Kind: domain.ErrorNoWorkerAvailable})
	assert.ErrorIs(t, wrapped, domain.ErrNoWorkerAvailable)

	denied := &domain.SupervisorError{Kind: domain.ErrorInvalidRequest, Message: "Access denied to conversation."}
	assert.ErrorIs(t, denied, domain.ErrAccessDenied)

	invalid := &domain.SupervisorError{Kind: domain.ErrorInvalidRequest, Message: "Message is empty."}
	assert.NotErrorIs(t, invalid, domain.ErrAccessDenied)

	var serr *domain.SupervisorError
	require.ErrorAs(t, wrapped, &serr)
	assert.Equal(t, domain.ErrorNoWorkerAvailable, serr.Kind)
}
