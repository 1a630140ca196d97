package furrow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/pkg/adapters/worker"
	"github.com/aretw0/furrow/pkg/classifier"
	"github.com/aretw0/furrow/pkg/domain"
)

// ExampleNew wires two canned workers and asks a compound question.
func ExampleNew() {
	sup, err := furrow.New(
		furrow.WithWorker(worker.NewStatic(domain.WorkerWeather, "Light showers, 24°C.")),
		furrow.WithWorker(worker.NewStatic(domain.WorkerMarket, "Onions: 1,800 per quintal.")),
		furrow.WithWorker(worker.NewStatic(domain.WorkerKnowledge, "Here is what I know.")),
	)
	if err != nil {
		log.Fatal(err)
	}

	resp := sup.Handle(context.Background(), furrow.Request{
		UserID:  "farmer-42",
		Message: "Will it rain in Nashik tomorrow and what is the onion price?",
	})

	fmt.Println(resp.Workers)
	fmt.Println(resp.Response)
	// Output:
	// [weather market]
	// **Weather**
	// Light showers, 24°C.
	//
	// **Market prices**
	// Onions: 1,800 per quintal.
}

// ExampleWithOracle routes with a classification oracle. StaticOracle stands
// in for an LLM here; oracle.NewAnthropic or oracle.NewOpenAI are the real ones.
func ExampleWithOracle() {
	sup, err := furrow.New(
		furrow.WithWorker(worker.NewStatic(domain.WorkerFertilizer, "Apply 50 kg/ha of DAP at sowing.")),
		furrow.WithWorker(worker.NewStatic(domain.WorkerKnowledge, "Here is what I know.")),
		furrow.WithOracle(&classifier.StaticOracle{Default: "fertilizer"}),
	)
	if err != nil {
		log.Fatal(err)
	}

	resp := sup.Handle(context.Background(), furrow.Request{Message: "My wheat leaves look pale, what should I add?"})
	fmt.Println(resp.Response)
	// Output:
	// Apply 50 kg/ha of DAP at sowing.
}
