package committer

import (
	"context"

	"github.com/jyterencekim/decaton/kafka"
)

// OffsetSource reports, per partition, the offset up to which every task is
// known resolved. The committer never commits past what the source reports.
type OffsetSource interface {
	CommittableOffsets() map[kafka.TopicPartition]kafka.Offset
}

// Committer drives offset acknowledgement to the transport.
type Committer interface {
	// Run blocks until the context is cancelled, committing on a fixed
	// interval and whenever enough resolutions have accumulated.
	Run(ctx context.Context) error

	// RecordResolved reports task resolutions; enough of them trigger an
	// early commit before the next interval tick.
	RecordResolved(count int)

	// DropPartitions forgets commit bookkeeping for revoked partitions.
	DropPartitions(partitions ...kafka.TopicPartition)
}
