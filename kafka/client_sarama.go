package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/jyterencekim/decaton/logger"
)

var _ Consumer = (*SaramaClient)(nil)

type SaramaClientConfig struct {
	BootstrapServers []string
	GroupID          string
	Version          string // Kafka protocol version, e.g. "3.6.0"; empty uses the sarama default
	StartFrom        string // oldest|newest
	TLSEnabled       bool
	SASLUser         string
	SASLPass         string
	MaxPollRecords   int
	PollTimeout      time.Duration
	ChannelCapacity  int

	Logger logger.Logger
}

func defaultSaramaConfig() SaramaClientConfig {
	return SaramaClientConfig{
		BootstrapServers: []string{"localhost:9092"},
		GroupID:          "default-group",
		StartFrom:        "newest",
		MaxPollRecords:   100,
		PollTimeout:      3 * time.Second,
		ChannelCapacity:  1024,
		Logger:           logger.NewNoopLogger(),
	}
}

type SaramaOption func(*SaramaClientConfig)

func WithSaramaBootstrapServers(servers []string) SaramaOption {
	return func(cfg *SaramaClientConfig) {
		cfg.BootstrapServers = servers
	}
}

func WithSaramaGroupID(id string) SaramaOption {
	return func(cfg *SaramaClientConfig) {
		cfg.GroupID = id
	}
}

func WithSaramaVersion(v string) SaramaOption {
	return func(cfg *SaramaClientConfig) {
		cfg.Version = v
	}
}

func WithSaramaStartFrom(pos string) SaramaOption {
	return func(cfg *SaramaClientConfig) {
		cfg.StartFrom = pos
	}
}

func WithSaramaSASL(user, pass string) SaramaOption {
	return func(cfg *SaramaClientConfig) {
		cfg.SASLUser = user
		cfg.SASLPass = pass
	}
}

func WithSaramaTLS() SaramaOption {
	return func(cfg *SaramaClientConfig) {
		cfg.TLSEnabled = true
	}
}

func WithSaramaLogger(l logger.Logger) SaramaOption {
	return func(cfg *SaramaClientConfig) {
		cfg.Logger = l.With("client", "sarama")
	}
}

// SaramaClient adapts a sarama consumer group to the Consumer interface.
// The group session runs in a background goroutine; records flow to Poll
// through a buffered channel.
type SaramaClient struct {
	config SaramaClientConfig
	client sarama.Client
	group  sarama.ConsumerGroup

	records chan ConsumerRecord

	mu          sync.RWMutex
	session     sarama.ConsumerGroupSession
	rebalanceCb RebalanceCallback
	topics      []string
	subscribed  bool

	cancel context.CancelFunc
	done   chan struct{}

	logger logger.Logger
}

func NewSaramaClient(opts ...SaramaOption) (*SaramaClient, error) {
	cfg := defaultSaramaConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	sc := sarama.NewConfig()
	sc.Consumer.Return.Errors = true
	if cfg.Version != "" {
		ver, err := sarama.ParseKafkaVersion(cfg.Version)
		if err != nil {
			return nil, fmt.Errorf("parse kafka version: %w", err)
		}
		sc.Version = ver
	}
	if cfg.TLSEnabled {
		sc.Net.TLS.Enable = true
	}
	if cfg.SASLUser != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User, sc.Net.SASL.Password = cfg.SASLUser, cfg.SASLPass
	}
	switch cfg.StartFrom {
	case "oldest":
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	client, err := sarama.NewClient(cfg.BootstrapServers, sc)
	if err != nil {
		return nil, fmt.Errorf("create sarama client: %w", err)
	}

	group, err := sarama.NewConsumerGroupFromClient(cfg.GroupID, client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("create sarama consumer group: %w", err)
	}

	return &SaramaClient{
		config:  cfg,
		client:  client,
		group:   group,
		records: make(chan ConsumerRecord, cfg.ChannelCapacity),
		done:    make(chan struct{}),
		logger:  cfg.Logger,
	}, nil
}

func (s *SaramaClient) Subscribe(topics []string, rebalanceCb RebalanceCallback) error {
	s.mu.Lock()
	if s.subscribed {
		s.mu.Unlock()
		return fmt.Errorf("already subscribed")
	}
	s.rebalanceCb = rebalanceCb
	s.topics = topics
	s.subscribed = true
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go s.consumeLoop(ctx)
	go s.drainGroupErrors()

	return nil
}

func (s *SaramaClient) consumeLoop(ctx context.Context) {
	defer close(s.done)

	for {
		// Consume returns on every rebalance; re-enter until cancelled.
		if err := s.group.Consume(ctx, s.topics, &saramaGroupHandler{client: s}); err != nil {
			s.logger.Warn("Consumer group session ended with error", "error", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *SaramaClient) drainGroupErrors() {
	for err := range s.group.Errors() {
		s.logger.Warn("Consumer group error", "error", err)
	}
}

func (s *SaramaClient) Poll(ctx context.Context) ([]ConsumerRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.PollTimeout)
	defer cancel()

	var records []ConsumerRecord

	select {
	case <-ctx.Done():
		return nil, nil
	case rec := <-s.records:
		records = append(records, rec)
	}

	for len(records) < s.config.MaxPollRecords {
		select {
		case rec := <-s.records:
			records = append(records, rec)
		default:
			return records, nil
		}
	}

	return records, nil
}

func (s *SaramaClient) CommitOffsets(ctx context.Context, offsets map[TopicPartition]Offset) error {
	if len(offsets) == 0 {
		return nil
	}

	s.mu.RLock()
	sess := s.session
	s.mu.RUnlock()

	if sess == nil {
		return ErrNotSubscribed
	}

	for tp, off := range offsets {
		sess.MarkOffset(tp.Topic, tp.Partition, off.Offset, "")
	}
	sess.Commit()

	return nil
}

func (s *SaramaClient) GroupID() string {
	return s.config.GroupID
}

func (s *SaramaClient) PausePartitions(partitions ...TopicPartition) {
	s.group.Pause(topicPartitionsToMap(partitions))
}

func (s *SaramaClient) ResumePartitions(partitions ...TopicPartition) {
	s.group.Resume(topicPartitionsToMap(partitions))
}

func (s *SaramaClient) Close() {
	s.mu.Lock()
	cancel := s.cancel
	subscribed := s.subscribed
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if subscribed {
		<-s.done
	}
	_ = s.group.Close()
	_ = s.client.Close()
}

type saramaGroupHandler struct {
	client *SaramaClient
}

func (h *saramaGroupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	h.client.mu.Lock()
	h.client.session = sess
	cb := h.client.rebalanceCb
	h.client.mu.Unlock()

	if cb != nil {
		cb.OnAssigned(mapToTopicPartitions(sess.Claims()))
	}
	return nil
}

func (h *saramaGroupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	h.client.mu.Lock()
	h.client.session = nil
	cb := h.client.rebalanceCb
	h.client.mu.Unlock()

	if cb != nil {
		cb.OnRevoked(mapToTopicPartitions(sess.Claims()))
	}
	return nil
}

func (h *saramaGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			select {
			case h.client.records <- convertSaramaMessage(msg):
			case <-sess.Context().Done():
				return nil
			}
		}
	}
}

func convertSaramaMessage(msg *sarama.ConsumerMessage) ConsumerRecord {
	headers := make([]Header, len(msg.Headers))
	for i, h := range msg.Headers {
		headers[i] = Header{Key: string(h.Key), Value: h.Value}
	}

	return ConsumerRecord{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Timestamp,
	}
}
