package decaton

import (
	"context"
	"errors"
	"sync"

	"github.com/jyterencekim/decaton/extractor"
	"github.com/jyterencekim/decaton/kafka"
	"github.com/jyterencekim/decaton/processor"
	"github.com/jyterencekim/decaton/runner"
)

const Version = "v0.1.0" // x-release-please-version

var (
	ErrAlreadyRunning = errors.New("subscription is already running")
	ErrClosed         = errors.New("subscription is closed")
)

// Subscription ties a consumer, an extractor and a processor together into a
// running processing pipeline for a set of topics. Create one per consumed
// task type; each owns its consumer.
type Subscription[T any] struct {
	consumer kafka.Consumer
	runner   *runner.Runner[T]
	topics   []string

	mu        sync.Mutex
	running   bool
	closed    bool
	closeOnce sync.Once
	closedCh  chan struct{}
}

func NewSubscription[T any](
	consumer kafka.Consumer,
	topics []string,
	ext extractor.Extractor[T],
	proc processor.Processor[T],
	opts ...runner.Option,
) *Subscription[T] {
	return &Subscription[T]{
		consumer: consumer,
		runner:   runner.New(consumer, ext, proc, opts...),
		topics:   topics,
		closedCh: make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled, Close is called, or processing fails
// fatally. The subscription cannot be reused after Run returns.
func (s *Subscription[T]) Run(ctx context.Context) error {
	if err := s.startRunning(); err != nil {
		return err
	}
	defer s.Close()
	// the consumer stays open through the runner's shutdown so the final
	// offset commit can still reach the broker
	defer s.consumer.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.closedCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	return s.runner.Run(runCtx, s.topics...)
}

func (s *Subscription[T]) startRunning() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	return nil
}

// Close stops processing. Safe to call more than once and from any
// goroutine. If Run was never called, the consumer is closed here.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		wasRunning := s.running
		s.running = false
		s.closed = true
		s.mu.Unlock()

		close(s.closedCh)
		if !wasRunning {
			s.consumer.Close()
		}
	})
}

// Discards exposes the tasks the pipeline gave up on. Optional to drain.
func (s *Subscription[T]) Discards() <-chan runner.DiscardedTask {
	return s.runner.Discards()
}
