/*
Package ports defines the driven ports (interfaces) of the furrow supervisor.

These interfaces decouple the orchestration core from the domain workers, the
classification oracle and the persistence backends.

# Key Interfaces

  - Worker: A domain worker (weather, market, knowledge, ...) consumed through one contract.
  - Oracle: A text-in/text-out classification service (an LLM completion call).
  - ContextStore: Persists conversation context snapshots (e.g., Memory or Redis).
  - DistributedLocker: Provides distributed locking for handling concurrent conversation access.
*/
package ports
