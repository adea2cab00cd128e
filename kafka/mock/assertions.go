package mockkafka

import (
	"testing"

	"github.com/jyterencekim/decaton/kafka"
	"github.com/stretchr/testify/require"
)

// AssertCommitted verifies that an offset was committed for the topic-partition.
func (c *Client) AssertCommitted(tb testing.TB, tp kafka.TopicPartition) {
	tb.Helper()

	_, ok := c.CommittedOffset(tp)
	require.True(tb, ok, "committed offset not found for %s", tp)
}

// AssertNotCommitted verifies that no offset was committed for the topic-partition.
func (c *Client) AssertNotCommitted(tb testing.TB, tp kafka.TopicPartition) {
	tb.Helper()

	off, ok := c.CommittedOffset(tp)
	require.False(tb, ok, "expected no commit for %s, got offset %d", tp, off.Offset)
}

// AssertCommittedOffset verifies that a specific offset was committed.
func (c *Client) AssertCommittedOffset(tb testing.TB, tp kafka.TopicPartition, expectedOffset int64) {
	tb.Helper()

	actual, ok := c.CommittedOffset(tp)
	require.True(
		tb, ok,
		"expected offset %d to be committed for %s, but none found",
		expectedOffset, tp,
	)

	require.Equal(
		tb, expectedOffset, actual.Offset,
		"expected offset %d to be committed for %s, got %d", expectedOffset, tp, actual.Offset,
	)
}

// AssertCommittedAtMost verifies that the committed offset does not exceed max.
// Passes when nothing has been committed at all.
func (c *Client) AssertCommittedAtMost(tb testing.TB, tp kafka.TopicPartition, maxOffset int64) {
	tb.Helper()

	actual, ok := c.CommittedOffset(tp)
	if !ok {
		return
	}
	require.LessOrEqual(
		tb, actual.Offset, maxOffset,
		"expected committed offset <= %d for %s, got %d", maxOffset, tp, actual.Offset,
	)
}

// AssertCommittedAtLeast verifies that the committed offset is at least the expected value.
func (c *Client) AssertCommittedAtLeast(tb testing.TB, tp kafka.TopicPartition, minOffset int64) {
	tb.Helper()

	actual, ok := c.CommittedOffset(tp)
	require.True(
		tb, ok, "expected offset >= %d to be committed for %s, but none found", minOffset, tp,
	)

	require.GreaterOrEqual(
		tb, actual.Offset, minOffset,
		"expected committed offset >= %d for %s, got %d", minOffset, tp, actual.Offset,
	)
}

// AssertSubscribed verifies that the client is subscribed to the given topics.
func (c *Client) AssertSubscribed(tb testing.TB, topics ...string) {
	tb.Helper()

	subMap := make(map[string]bool)
	for _, s := range c.Subscriptions() {
		subMap[s] = true
	}

	for _, topic := range topics {
		if !subMap[topic] {
			tb.Errorf("expected client to be subscribed to topic %q, but it is not", topic)
		}
	}
}

// AssertAssigned verifies that the given partitions are currently assigned.
func (c *Client) AssertAssigned(tb testing.TB, partitions ...kafka.TopicPartition) {
	tb.Helper()

	assignedMap := make(map[kafka.TopicPartition]bool)
	for _, p := range c.AssignedPartitions() {
		assignedMap[p] = true
	}

	for _, p := range partitions {
		if !assignedMap[p] {
			tb.Errorf("expected partition %s to be assigned, but it is not", p)
		}
	}
}

// AssertPaused verifies that the given partition is currently paused.
func (c *Client) AssertPaused(tb testing.TB, tp kafka.TopicPartition) {
	tb.Helper()

	for _, p := range c.PausedPartitions() {
		if p == tp {
			return
		}
	}
	tb.Errorf("expected partition %s to be paused, but it is not", tp)
}

// AssertClosed verifies that Close() was called.
func (c *Client) AssertClosed(tb testing.TB) {
	tb.Helper()

	require.True(tb, c.IsClosed(), "expected client to be closed")
}
