package committer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jyterencekim/decaton/kafka"
	"github.com/jyterencekim/decaton/logger"
)

var _ Committer = (*PeriodicCommitter)(nil)

type PeriodicCommitterConfig struct {
	// Interval is the fixed commit cadence.
	Interval time.Duration

	// MaxResolved triggers a commit before the interval elapses once this
	// many resolutions have been reported since the last commit.
	MaxResolved int

	Logger logger.Logger
}

type PeriodicCommitterOption func(*PeriodicCommitterConfig)

func WithInterval(d time.Duration) PeriodicCommitterOption {
	return func(cfg *PeriodicCommitterConfig) {
		if d > 0 {
			cfg.Interval = d
		}
	}
}

func WithMaxResolved(c int) PeriodicCommitterOption {
	return func(cfg *PeriodicCommitterConfig) {
		if c > 0 {
			cfg.MaxResolved = c
		}
	}
}

func WithLogger(l logger.Logger) PeriodicCommitterOption {
	return func(cfg *PeriodicCommitterConfig) {
		cfg.Logger = l.With("component", "committer")
	}
}

// PeriodicCommitter polls an OffsetSource and commits, per partition, the
// highest committable offset it has seen, never going backward. Commit
// failures are logged and retried on the next trigger; processing is not
// interrupted, at the cost of possible redelivery after a restart.
type PeriodicCommitter struct {
	config   PeriodicCommitterConfig
	consumer kafka.Consumer
	source   OffsetSource

	mu            sync.Mutex
	lastCommitted map[kafka.TopicPartition]int64

	resolved atomic.Int64
	kick     chan struct{}

	logger logger.Logger
}

func NewPeriodicCommitter(
	consumer kafka.Consumer, source OffsetSource, opts ...PeriodicCommitterOption,
) *PeriodicCommitter {
	cfg := PeriodicCommitterConfig{
		Interval:    5 * time.Second,
		MaxResolved: 1000,
		Logger:      logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &PeriodicCommitter{
		config:        cfg,
		consumer:      consumer,
		source:        source,
		lastCommitted: make(map[kafka.TopicPartition]int64),
		kick:          make(chan struct{}, 1),
		logger:        cfg.Logger,
	}
}

func (p *PeriodicCommitter) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// final best-effort commit so a clean shutdown does not
			// redeliver everything that already resolved
			commitCtx, cancel := context.WithTimeout(context.Background(), p.config.Interval)
			p.commitOnce(commitCtx)
			cancel()
			return nil

		case <-ticker.C:
			p.commitOnce(ctx)

		case <-p.kick:
			p.commitOnce(ctx)
		}
	}
}

// RecordResolved reports resolutions; once MaxResolved accumulate, a commit
// is scheduled immediately.
func (p *PeriodicCommitter) RecordResolved(count int) {
	if p.resolved.Add(int64(count)) < int64(p.config.MaxResolved) {
		return
	}

	p.resolved.Store(0)
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *PeriodicCommitter) DropPartitions(partitions ...kafka.TopicPartition) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, tp := range partitions {
		delete(p.lastCommitted, tp)
	}
}

// CommitNow forces a synchronous commit of everything currently committable.
func (p *PeriodicCommitter) CommitNow(ctx context.Context) error {
	return p.commitOnce(ctx)
}

func (p *PeriodicCommitter) commitOnce(ctx context.Context) error {
	offsets := p.source.CommittableOffsets()
	if len(offsets) == 0 {
		return nil
	}

	p.mu.Lock()
	toCommit := make(map[kafka.TopicPartition]kafka.Offset, len(offsets))
	for tp, off := range offsets {
		if last, ok := p.lastCommitted[tp]; ok && off.Offset <= last {
			continue
		}
		toCommit[tp] = off
	}
	p.mu.Unlock()

	if len(toCommit) == 0 {
		return nil
	}

	if err := p.consumer.CommitOffsets(ctx, toCommit); err != nil {
		p.logger.Warn("Commit failed, will retry on next trigger", "error", err, "partitions", len(toCommit))
		return err
	}

	p.mu.Lock()
	for tp, off := range toCommit {
		p.lastCommitted[tp] = off.Offset
	}
	p.mu.Unlock()

	p.logger.Debug("Committed offsets", "partitions", len(toCommit))

	return nil
}
