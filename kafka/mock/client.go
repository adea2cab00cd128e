package mockkafka

import (
	"context"
	"sync"
	"time"

	"github.com/jyterencekim/decaton/kafka"
)

var _ kafka.Consumer = (*Client)(nil)

// Client is an in-memory kafka.Consumer for tests. Records are queued per
// partition with AddRecords and served by Poll in round-robin order across
// assigned partitions. Paused partitions are skipped by Poll, mirroring how
// a real client stops fetching for them.
type Client struct {
	mu sync.RWMutex

	recordQueues   map[kafka.TopicPartition][]kafka.ConsumerRecord
	queuePositions map[kafka.TopicPartition]int
	nextOffsets    map[kafka.TopicPartition]int64

	committedOffsets map[kafka.TopicPartition]kafka.Offset
	commitCalls      int

	subscriptions      []string
	rebalanceCb        kafka.RebalanceCallback
	assignedPartitions []kafka.TopicPartition
	paused             map[kafka.TopicPartition]struct{}

	groupID        string
	maxPollRecords int
	pollDelay      time.Duration

	pollErr   func() error
	commitErr func() error

	closed     bool
	subscribed bool
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		recordQueues:     make(map[kafka.TopicPartition][]kafka.ConsumerRecord),
		queuePositions:   make(map[kafka.TopicPartition]int),
		nextOffsets:      make(map[kafka.TopicPartition]int64),
		committedOffsets: make(map[kafka.TopicPartition]kafka.Offset),
		paused:           make(map[kafka.TopicPartition]struct{}),
		groupID:          "mock-group",
		maxPollRecords:   10,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Subscribe registers the rebalance callback and auto-assigns every partition
// that already has queued records for a subscribed topic.
func (c *Client) Subscribe(topics []string, rebalanceCb kafka.RebalanceCallback) error {
	c.mu.Lock()

	if c.subscribed {
		c.mu.Unlock()
		return nil // idempotent
	}

	c.subscriptions = topics
	c.rebalanceCb = rebalanceCb
	c.subscribed = true

	var partitions []kafka.TopicPartition
	for tp := range c.recordQueues {
		if c.topicSubscribedLocked(tp.Topic) {
			partitions = append(partitions, tp)
		}
	}
	c.assignedPartitions = append(c.assignedPartitions, partitions...)
	c.mu.Unlock()

	if len(partitions) > 0 && rebalanceCb != nil {
		rebalanceCb.OnAssigned(partitions)
	}

	return nil
}

func (c *Client) topicSubscribedLocked(topic string) bool {
	for _, t := range c.subscriptions {
		if t == topic {
			return true
		}
	}
	return false
}

// Poll returns up to maxPollRecords from assigned, unpaused partitions in
// round-robin order.
func (c *Client) Poll(ctx context.Context) ([]kafka.ConsumerRecord, error) {
	if c.pollDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollDelay):
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pollErr != nil {
		if err := c.pollErr(); err != nil {
			return nil, err
		}
	}

	var records []kafka.ConsumerRecord

	for len(records) < c.maxPollRecords {
		progressMade := false

		for _, tp := range c.assignedPartitions {
			if _, isPaused := c.paused[tp]; isPaused {
				continue
			}

			queue, exists := c.recordQueues[tp]
			if !exists {
				continue
			}

			pos := c.queuePositions[tp]
			if pos >= len(queue) {
				continue
			}

			records = append(records, queue[pos])
			c.queuePositions[tp]++
			progressMade = true

			if len(records) >= c.maxPollRecords {
				break
			}
		}

		if !progressMade {
			break
		}
	}

	return records, nil
}

func (c *Client) CommitOffsets(ctx context.Context, offsets map[kafka.TopicPartition]kafka.Offset) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if c.commitErr != nil {
		if err := c.commitErr(); err != nil {
			return err
		}
	}

	for tp, offset := range offsets {
		c.committedOffsets[tp] = offset
	}
	if len(offsets) > 0 {
		c.commitCalls++
	}

	return nil
}

func (c *Client) GroupID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.groupID
}

func (c *Client) PausePartitions(partitions ...kafka.TopicPartition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, tp := range partitions {
		c.paused[tp] = struct{}{}
	}
}

func (c *Client) ResumePartitions(partitions ...kafka.TopicPartition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, tp := range partitions {
		delete(c.paused, tp)
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
}

// AddRecords queues records for Poll on the given topic-partition, assigning
// sequential offsets to records whose offset is unset. If the client is
// already subscribed to the topic and the partition is new, it is assigned
// immediately and OnAssigned fires.
func (c *Client) AddRecords(topic string, partition int32, records ...kafka.ConsumerRecord) {
	c.mu.Lock()

	tp := kafka.TopicPartition{Topic: topic, Partition: partition}

	next := c.nextOffsets[tp]
	for i := range records {
		records[i].Topic = topic
		records[i].Partition = partition
		if records[i].Offset == 0 {
			records[i].Offset = next
		}
		if records[i].Offset >= next {
			next = records[i].Offset + 1
		}
	}
	c.nextOffsets[tp] = next
	c.recordQueues[tp] = append(c.recordQueues[tp], records...)

	var cb kafka.RebalanceCallback
	if c.subscribed && c.topicSubscribedLocked(topic) && !c.assignedLocked(tp) {
		c.assignedPartitions = append(c.assignedPartitions, tp)
		cb = c.rebalanceCb
	}
	c.mu.Unlock()

	if cb != nil {
		cb.OnAssigned([]kafka.TopicPartition{tp})
	}
}

func (c *Client) assignedLocked(tp kafka.TopicPartition) bool {
	for _, assigned := range c.assignedPartitions {
		if assigned == tp {
			return true
		}
	}
	return false
}

// RevokePartitions simulates a rebalance taking partitions away.
func (c *Client) RevokePartitions(partitions ...kafka.TopicPartition) {
	c.mu.Lock()
	remaining := c.assignedPartitions[:0]
	for _, assigned := range c.assignedPartitions {
		revoked := false
		for _, tp := range partitions {
			if assigned == tp {
				revoked = true
				break
			}
		}
		if !revoked {
			remaining = append(remaining, assigned)
		}
	}
	c.assignedPartitions = remaining
	cb := c.rebalanceCb
	c.mu.Unlock()

	if cb != nil {
		cb.OnRevoked(partitions)
	}
}

// SetCommitError configures an error returned by CommitOffsets calls.
// Pass nil to clear.
func (c *Client) SetCommitError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		c.commitErr = nil
	} else {
		c.commitErr = func() error { return err }
	}
}

// SetCommitErrorFunc configures a function consulted on every commit.
func (c *Client) SetCommitErrorFunc(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commitErr = fn
}

// SetPollError configures an error returned by Poll calls. Pass nil to clear.
func (c *Client) SetPollError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		c.pollErr = nil
	} else {
		c.pollErr = func() error { return err }
	}
}

// SetPollErrorFunc configures a function consulted on every poll.
func (c *Client) SetPollErrorFunc(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pollErr = fn
}

// CommittedOffset returns the last committed offset for the partition.
func (c *Client) CommittedOffset(tp kafka.TopicPartition) (kafka.Offset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	off, ok := c.committedOffsets[tp]
	return off, ok
}

// CommitCalls returns the number of non-empty CommitOffsets calls.
func (c *Client) CommitCalls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.commitCalls
}

// PausedPartitions returns the currently paused partitions.
func (c *Client) PausedPartitions() []kafka.TopicPartition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]kafka.TopicPartition, 0, len(c.paused))
	for tp := range c.paused {
		out = append(out, tp)
	}
	return out
}

// AssignedPartitions returns the currently assigned partitions.
func (c *Client) AssignedPartitions() []kafka.TopicPartition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]kafka.TopicPartition, len(c.assignedPartitions))
	copy(out, c.assignedPartitions)
	return out
}

// Subscriptions returns the subscribed topics.
func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.subscriptions))
	copy(out, c.subscriptions)
	return out
}

// IsClosed reports whether Close was called.
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
