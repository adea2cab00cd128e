package processor

import (
	"time"

	"github.com/jyterencekim/decaton/kafka"
)

// Envelope pairs an extracted task with its metadata, raw bytes and log
// position. It is owned by the pipeline; user code observes it only through
// the processing context and must not retain references past completion.
type Envelope[T any] struct {
	Task     T
	Metadata Metadata
	Raw      []byte
	Key      []byte
	Headers  []kafka.Header

	Partition kafka.TopicPartition
	Offset    int64
}

// Retried returns a copy of the envelope for redelivery: attempt incremented,
// eligible no earlier than now+after. The original envelope is not mutated.
func (e Envelope[T]) Retried(after time.Duration) Envelope[T] {
	e.Metadata.Attempt++
	e.Metadata.ScheduledAt = time.Now().Add(after)
	return e
}
