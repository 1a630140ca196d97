/*
Package furrow is a supervisor that routes farmers' free-form questions to
specialised domain workers (weather, market prices, general knowledge, image
diagnosis, fertilizer advice, videos) and merges their answers.

A Supervisor owns a capability registry, an optional classification oracle
(usually an LLM), a deterministic keyword fallback, and the per-conversation
context. Each call to Handle runs one turn:

  - the message is sanitised and split into per-domain sub-requests
  - each sub-request is routed (oracle first, keyword rules if the oracle is
    unsure or unreachable) and dispatched to exactly one worker
  - a worker may hand its sub-request to another worker once
  - the results are merged into one answer, with failed parts noted

Workers are anything implementing ports.Worker. Failures, timeouts and panics
inside a worker never escape: they become gaps in the answer. Only two
failures are surfaced to the caller, as *domain.SupervisorError: every worker
being unhealthy, and a turn exceeding its dispatch bound.

# Usage

	sup, err := furrow.New(
		furrow.WithWorker(worker.NewStatic(domain.WorkerWeather, "Sunny, 31°C.")),
		furrow.WithWorker(worker.NewStatic(domain.WorkerKnowledge, "Here is what I know.")),
		furrow.WithOracle(oracle.NewAnthropic(apiKey)),
	)
	if err != nil {
		log.Fatal(err)
	}

	resp := sup.Handle(ctx, furrow.Request{
		UserID:  "farmer-42",
		Message: "What's the weather in Mysuru today",
	})
	fmt.Println(resp.Response)

Run starts the periodic health refresh and inactivity cleanup; stop it by
cancelling its context.
*/
package furrow
