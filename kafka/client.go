package kafka

import (
	"context"
	"errors"
)

var ErrNotSubscribed = errors.New("kafka: consumer is not subscribed")

// Consumer is the transport contract the processing engine runs against.
// Commit positions are decided by the engine, not the client, so offsets are
// committed explicitly per partition rather than by marking records.
type Consumer interface {
	Subscribe(topics []string, rebalanceCb RebalanceCallback) error
	Poll(ctx context.Context) ([]ConsumerRecord, error)
	CommitOffsets(ctx context.Context, offsets map[TopicPartition]Offset) error
	PausePartitions(partitions ...TopicPartition)
	ResumePartitions(partitions ...TopicPartition)
	GroupID() string
	Close()
}

// RebalanceCallback receives partition assignment changes. Callbacks run on
// the client's rebalance path and must not block on record processing.
type RebalanceCallback interface {
	OnAssigned(partitions []TopicPartition)
	OnRevoked(partitions []TopicPartition)
}
