package errorhandler

import (
	"github.com/jyterencekim/decaton/kafka"
)

// ErrorContext describes a failed processing attempt. It carries everything
// a handler needs to decide between retrying, discarding and failing.
type ErrorContext struct {
	// Partition and Offset identify the record the task was extracted from.
	Partition kafka.TopicPartition
	Offset    int64

	// Key is the record key.
	Key []byte

	// Error is the failure from the processing attempt.
	Error error

	// Attempt is the number of the attempt that just failed, 1-indexed.
	Attempt int
}

func NewErrorContext(tp kafka.TopicPartition, offset int64, key []byte, err error, attempt int) ErrorContext {
	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)

	return ErrorContext{
		Partition: tp,
		Offset:    offset,
		Key:       keyCopy,
		Error:     err,
		Attempt:   attempt,
	}
}
