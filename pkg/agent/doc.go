/*
Package agent wraps a ports.Worker so that nothing a worker does can escape
the supervisor as a panic, a hang or a raw error.

Every dispatch runs in its own goroutine under a bounded timeout. Whatever
happens, the caller gets a domain.DispatchResult back:

  - success: the worker's text
  - returned error, panic, or Success=false: ErrorWorkerFailure
  - deadline exceeded: ErrorWorkerTimeout
  - caller cancellation: ErrorCancelled

On timeout or cancellation the worker goroutine is abandoned; its late result
is dropped.
*/
package agent
