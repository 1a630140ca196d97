package domain

// ErrorKind classifies failures inside the supervisor.
type ErrorKind string

const (
	ErrorNone ErrorKind = ""

	// ErrorClassificationUncertain is handled by the fallback matcher and never surfaced.
	ErrorClassificationUncertain ErrorKind = "classification_uncertain"
	// ErrorWorkerFailure is a gap in the aggregated answer, not a top-level error.
	ErrorWorkerFailure ErrorKind = "worker_failure"
	// ErrorWorkerTimeout is treated exactly like ErrorWorkerFailure.
	ErrorWorkerTimeout ErrorKind = "worker_timeout"
	// ErrorCancelled means the caller went away while the worker was running.
	ErrorCancelled ErrorKind = "cancelled"

	ErrorNoWorkerAvailable    ErrorKind = "no_worker_available"
	ErrorRedirectLoopExceeded ErrorKind = "redirect_loop_exceeded"
	ErrorInvalidRequest       ErrorKind = "invalid_request"
)

// IsWorkerFailure reports whether the kind is a dispatch-level failure.
func (k ErrorKind) IsWorkerFailure() bool {
	switch k {
	case ErrorWorkerFailure, ErrorWorkerTimeout, ErrorCancelled:
		return true
	}
	return false
}

// Task is the unit handed to a worker.
type Task struct {
	Instruction string              `json:"instruction"`
	Query       string              `json:"query"`
	Context     ConversationContext `json:"context"`
}

// DispatchResult is the outcome of one dispatch. Treat it as immutable.
type DispatchResult struct {
	Worker     WorkerName `json:"worker"`
	Success    bool       `json:"success"`
	Text       string     `json:"text,omitempty"`
	ErrorKind  ErrorKind  `json:"error_kind,omitempty"`
	RedirectTo WorkerName `json:"redirect_to,omitempty"`
	// Err carries the worker's own failure description, for logs only.
	Err string `json:"error,omitempty"`
}

// Failed builds a failed result for the given worker.
func Failed(worker WorkerName, kind ErrorKind, err error) DispatchResult {
	res := DispatchResult{
		Worker:    worker,
		ErrorKind: kind,
	}
	if err != nil {
		res.Err = err.Error()
	}
	return res
}

// Succeeded builds a successful result.
func Succeeded(worker WorkerName, text string) DispatchResult {
	return DispatchResult{
		Worker:  worker,
		Success: true,
		Text:    text,
	}
}
