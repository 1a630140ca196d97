/*
Package domain contains the core domain models of the furrow supervisor.

It defines the entities exchanged between the supervisor, its classifiers and the
domain workers. This package is kept pure and free of external dependencies like
I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - WorkerDescriptor: What a worker handles, as advertised to the classifiers.
  - ConversationContext: Per-conversation state (facts, recent turns, attachment).
  - Task: The unit of work handed to a worker, rewritten for that worker.
  - DispatchResult: The immutable outcome of one dispatch.
  - RoutingDecision: Which worker a sub-request goes to, and how sure we are.
*/
package domain
