package runtime_test

import (
	"testing"
	"time"

	"github.com/aretw0/furrow/internal/runtime"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstruction(t *testing.T) {
	for _, name := range domain.KnownWorkers() {
		got := runtime.Instruction(name, "tomato prices in Pune")
		assert.Contains(t, got, "tomato prices in Pune", name)
	}
	assert.Equal(t, "Please help with this query: aphids", runtime.Instruction("pests", "aphids"))
}

func TestBuildTask_FiltersContext(t *testing.T) {
	now := time.Now()
	conv := domain.NewConversationContext("c")
	conv.UserFacts["region"] = "Karnataka"
	conv.Attachment = &domain.MediaRef{Handle: "leaf.jpg"}
	conv.AppendTurn(domain.Turn{Speaker: domain.UserSpeaker(), Text: "q1", Timestamp: now}, 8)
	conv.AppendTurn(domain.Turn{Speaker: domain.WorkerSpeaker(domain.WorkerMarket), Text: "market says", Timestamp: now}, 8)
	conv.AppendTurn(domain.Turn{Speaker: domain.WorkerSpeaker(domain.WorkerWeather), Text: "weather says", Timestamp: now}, 8)
	conv.AppendTurn(domain.Turn{Speaker: domain.SupervisorSpeaker(), Text: "merged", Timestamp: now}, 8)

	weather := domain.WorkerDescriptor{Name: domain.WorkerWeather}
	task := runtime.BuildTask(weather, "rain in Hubli", conv.Clone())

	assert.Equal(t, "rain in Hubli", task.Query)
	assert.Equal(t, "Karnataka", task.Context.UserFacts["region"])
	assert.Nil(t, task.Context.Attachment)

	var texts []string
	for _, turn := range task.Context.RecentTurns {
		texts = append(texts, turn.Text)
	}
	assert.Equal(t, []string{"q1", "weather says", "merged"}, texts)

	// The source conversation is untouched.
	assert.Len(t, conv.RecentTurns, 4)
	require.NotNil(t, conv.Attachment)

	image := domain.WorkerDescriptor{Name: domain.WorkerImage, Tags: []string{"MEDIA"}}
	task = runtime.BuildTask(image, "what is wrong with this leaf", conv.Clone())
	require.NotNil(t, task.Context.Attachment)
	assert.Equal(t, "leaf.jpg", task.Context.Attachment.Handle)
}
