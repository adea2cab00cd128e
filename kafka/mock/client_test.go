//go:build unit

package mockkafka

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jyterencekim/decaton/kafka"
)

type recordingCallback struct {
	assigned []kafka.TopicPartition
	revoked  []kafka.TopicPartition
}

func (r *recordingCallback) OnAssigned(partitions []kafka.TopicPartition) {
	r.assigned = append(r.assigned, partitions...)
}

func (r *recordingCallback) OnRevoked(partitions []kafka.TopicPartition) {
	r.revoked = append(r.revoked, partitions...)
}

func TestSubscribeAssignsQueuedPartitions(t *testing.T) {
	c := NewClient()
	c.AddRecords("tasks", 0, SimpleRecord("k", "v"))
	c.AddRecords("tasks", 1, SimpleRecord("k", "v"))
	c.AddRecords("other", 0, SimpleRecord("k", "v"))

	cb := &recordingCallback{}
	require.NoError(t, c.Subscribe([]string{"tasks"}, cb))

	assert.Len(t, cb.assigned, 2, "only partitions of subscribed topics")
	c.AssertSubscribed(t, "tasks")
}

func TestAddRecordsAfterSubscribeAssigns(t *testing.T) {
	c := NewClient()
	cb := &recordingCallback{}
	require.NoError(t, c.Subscribe([]string{"tasks"}, cb))

	c.AddRecords("tasks", 3, SimpleRecord("k", "v"))

	require.Len(t, cb.assigned, 1)
	assert.Equal(t, kafka.TopicPartition{Topic: "tasks", Partition: 3}, cb.assigned[0])
}

func TestPollReturnsQueuedRecordsWithSequentialOffsets(t *testing.T) {
	c := NewClient()
	c.AddRecords("tasks", 0, SimpleRecords("k1", "v1", "k2", "v2", "k3", "v3")...)
	require.NoError(t, c.Subscribe([]string{"tasks"}, &recordingCallback{}))

	records, err := c.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i, rec := range records {
		assert.Equal(t, int64(i), rec.Offset)
		assert.Equal(t, "tasks", rec.Topic)
	}

	records, err = c.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records, "queue drained")
}

func TestPollRoundRobinAcrossPartitions(t *testing.T) {
	c := NewClient(WithMaxPollRecords(4))
	c.AddRecords("tasks", 0, SimpleRecords("a", "1", "b", "2")...)
	c.AddRecords("tasks", 1, SimpleRecords("c", "3", "d", "4")...)
	require.NoError(t, c.Subscribe([]string{"tasks"}, &recordingCallback{}))

	records, err := c.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 4)

	partitions := map[int32]int{}
	for _, rec := range records {
		partitions[rec.Partition]++
	}
	assert.Equal(t, map[int32]int{0: 2, 1: 2}, partitions)
}

func TestPollSkipsPausedPartitions(t *testing.T) {
	tp := kafka.TopicPartition{Topic: "tasks", Partition: 0}

	c := NewClient()
	c.AddRecords("tasks", 0, SimpleRecord("k", "v"))
	require.NoError(t, c.Subscribe([]string{"tasks"}, &recordingCallback{}))

	c.PausePartitions(tp)
	c.AssertPaused(t, tp)

	records, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)

	c.ResumePartitions(tp)
	records, err = c.Poll(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCommitOffsets(t *testing.T) {
	tp := kafka.TopicPartition{Topic: "tasks", Partition: 0}
	c := NewClient()

	err := c.CommitOffsets(context.Background(), map[kafka.TopicPartition]kafka.Offset{
		tp: {Offset: 5},
	})
	require.NoError(t, err)

	c.AssertCommittedOffset(t, tp, 5)
	assert.Equal(t, 1, c.CommitCalls())
}

func TestCommitError(t *testing.T) {
	c := NewClient()
	c.SetCommitError(errors.New("commit refused"))

	err := c.CommitOffsets(context.Background(), map[kafka.TopicPartition]kafka.Offset{
		{Topic: "tasks", Partition: 0}: {Offset: 1},
	})
	require.Error(t, err)
	c.AssertNotCommitted(t, kafka.TopicPartition{Topic: "tasks", Partition: 0})
}

func TestRevokePartitions(t *testing.T) {
	tp := kafka.TopicPartition{Topic: "tasks", Partition: 0}

	c := NewClient()
	c.AddRecords("tasks", 0, SimpleRecord("k", "v"))
	cb := &recordingCallback{}
	require.NoError(t, c.Subscribe([]string{"tasks"}, cb))

	c.RevokePartitions(tp)

	require.Len(t, cb.revoked, 1)
	assert.Empty(t, c.AssignedPartitions())
}

func TestRecordBuilder(t *testing.T) {
	rec := Record("key", "value").
		WithOffset(9).
		WithLeaderEpoch(3).
		WithHeader("trace", []byte("abc")).
		Build()

	assert.Equal(t, []byte("key"), rec.Key)
	assert.Equal(t, []byte("value"), rec.Value)
	assert.Equal(t, int64(9), rec.Offset)
	assert.Equal(t, int32(3), rec.LeaderEpoch)
	require.Len(t, rec.Headers, 1)
	assert.Equal(t, "trace", rec.Headers[0].Key)
}
