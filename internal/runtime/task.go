package runtime

import (
	"fmt"

	"github.com/aretw0/furrow/pkg/domain"
)

var instructionTemplates = map[domain.WorkerName]string{
	domain.WorkerWeather:    "Provide weather information for: %s. Include current conditions, forecasts, and relevant meteorological data.",
	domain.WorkerMarket:     "Provide market price and commodity information for: %s. Include current prices, trends, and market data.",
	domain.WorkerVideo:      "Find relevant educational videos for: %s. Provide video recommendations with descriptions.",
	domain.WorkerImage:      "Diagnose the attached crop image for: %s. Identify visible diseases or pests and suggest treatment.",
	domain.WorkerFertilizer: "Recommend fertilizer for: %s. Include nutrient quantities, timing, and application method.",
	domain.WorkerKnowledge:  "Provide comprehensive information about: %s. Search knowledge base and provide detailed, accurate information.",
}

const genericTemplate = "Please help with this query: %s"

// Instruction renders the worker-specific instruction for one sub-request.
// It only ever sees the sub-request text, never another worker's instruction.
func Instruction(worker domain.WorkerName, subRequest string) string {
	tmpl, ok := instructionTemplates[worker]
	if !ok {
		tmpl = genericTemplate
	}
	return fmt.Sprintf(tmpl, subRequest)
}

// BuildTask assembles the task for target from the conversation snapshot.
//
// Recent turns are filtered to what the target may see: user turns,
// supervisor answers and the target's own earlier answers. The attachment is
// only passed to media workers.
func BuildTask(target domain.WorkerDescriptor, subRequest string, conv domain.ConversationContext) domain.Task {
	ctx := conv.Clone()

	turns := ctx.RecentTurns[:0]
	for _, t := range ctx.RecentTurns {
		switch t.Speaker.Kind {
		case domain.SpeakerUser, domain.SpeakerSupervisor:
			turns = append(turns, t)
		case domain.SpeakerWorker:
			if t.Speaker.Worker == target.Name {
				turns = append(turns, t)
			}
		}
	}
	ctx.RecentTurns = turns

	if !target.HasTag(domain.TagMedia) {
		ctx.Attachment = nil
	}

	return domain.Task{
		Instruction: Instruction(target.Name, subRequest),
		Query:       subRequest,
		Context:     ctx,
	}
}
