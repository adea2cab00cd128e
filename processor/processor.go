package processor

import (
	"context"
	"errors"
	"time"

	"github.com/jyterencekim/decaton/kafka"
)

// Processor is the user-supplied processing logic, invoked once per dispatch
// attempt. Returning nil completes the task unless completion was deferred
// via the processing context. Returning an error hands the failure to the
// engine's failure policy (retry with backoff, then discard).
type Processor[T any] interface {
	Process(ctx context.Context, pc Context, task T) error
}

// Func adapts a plain function to the Processor interface.
type Func[T any] func(ctx context.Context, pc Context, task T) error

func (f Func[T]) Process(ctx context.Context, pc Context, task T) error {
	return f(ctx, pc, task)
}

// Context is the per-task handle exposed to user logic.
type Context interface {
	// Metadata returns the task's metadata. Read-only.
	Metadata() Metadata

	// Key returns the record key the task was extracted from.
	Key() []byte

	// Partition returns the topic-partition the task came from.
	Partition() kafka.TopicPartition

	// Offset returns the task's log position within the partition.
	Offset() int64

	// Complete marks the task completed. Idempotent; later resolutions of
	// the same task are ignored.
	Complete()

	// DeferCompletion detaches the task's resolution from the Process call.
	// The task stays pending, holding its slot in the partition window,
	// until the returned handle is resolved. The handle may be used from
	// any goroutine.
	DeferCompletion() Completion

	// Retry schedules the task for redelivery no earlier than now+after,
	// with the attempt count incremented.
	Retry(after time.Duration)
}

// Completion resolves a deferred task. Exactly one of Complete or Retry
// takes effect; subsequent calls are no-ops.
type Completion interface {
	Complete()
	Retry(after time.Duration)
}

// ProcessError wraps errors returned by user processing logic.
type ProcessError struct {
	Cause error
}

func (e *ProcessError) Error() string {
	return e.Cause.Error()
}

func (e *ProcessError) Unwrap() error {
	return e.Cause
}

func NewProcessError(cause error) error {
	return &ProcessError{Cause: cause}
}

func AsProcessError(err error) (*ProcessError, bool) {
	var pe *ProcessError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
