package runner

import (
	"github.com/jyterencekim/decaton/kafka"
)

// DiscardedTask reports a record the engine gave up on, either because its
// bytes could not be extracted into a task or because processing exhausted
// the failure policy. The record's position has been (or will be) committed
// past; this report is the last chance to observe it.
type DiscardedTask struct {
	Partition kafka.TopicPartition
	Offset    int64
	Key       []byte
	Raw       []byte

	// Error is the failure that led to the discard.
	Error error

	// Attempts is how many processing attempts were made. Zero when the
	// task never reached a processor (extraction failure).
	Attempts int

	// Phase is where the failure happened, "extraction" or "processing".
	Phase string
}
