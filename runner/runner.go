package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jyterencekim/decaton/committer"
	"github.com/jyterencekim/decaton/errorhandler"
	"github.com/jyterencekim/decaton/extractor"
	"github.com/jyterencekim/decaton/kafka"
	"github.com/jyterencekim/decaton/logger"
	"github.com/jyterencekim/decaton/otel"
	"github.com/jyterencekim/decaton/processor"
)

var ErrAlreadyRunning = errors.New("runner: already running")

// Runner is the dispatch scheduler: it pulls records from the consumer,
// extracts them into typed tasks, executes processors on a shared worker
// pool and feeds resolutions back into per-partition completion windows so
// the committer only ever acknowledges contiguous resolved prefixes.
//
// Records of one partition are registered in arrival order; their processing
// and completion may happen in any order.
type Runner[T any] struct {
	config    config
	consumer  kafka.Consumer
	ext       extractor.Extractor[T]
	proc      processor.Processor[T]
	handler   errorhandler.Handler
	logger    logger.Logger
	telemetry *otel.Telemetry

	pool      *workerPool
	retryQ    *retryQueue[T]
	committer committer.Committer

	// workCtx is handed to processors. It outlives Run's context by the
	// shutdown grace, so in-flight tasks can finish after cancellation.
	workCtx    context.Context
	workCancel context.CancelFunc

	mu         sync.RWMutex
	partitions map[kafka.TopicPartition]*partition[T]

	pendMu  sync.Mutex
	pending map[kafka.TopicPartition][]kafka.ConsumerRecord
	paused  map[kafka.TopicPartition]bool

	errCh        chan error
	discards     chan DiscardedTask
	discardDrops atomic.Int64

	running atomic.Bool
}

func New[T any](
	consumer kafka.Consumer,
	ext extractor.Extractor[T],
	proc processor.Processor[T],
	opts ...Option,
) *Runner[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Runner[T]{
		config:     cfg,
		consumer:   consumer,
		ext:        ext,
		proc:       proc,
		handler:    cfg.handler(),
		logger:     cfg.Logger.With("component", "runner"),
		telemetry:  cfg.Telemetry,
		retryQ:     newRetryQueue[T](),
		partitions: make(map[kafka.TopicPartition]*partition[T]),
		pending:    make(map[kafka.TopicPartition][]kafka.ConsumerRecord),
		paused:     make(map[kafka.TopicPartition]bool),
		errCh:      make(chan error, 1),
		discards:   make(chan DiscardedTask, cfg.DiscardBuffer),
	}
	r.committer = committer.NewPeriodicCommitter(consumer, r,
		committer.WithInterval(cfg.CommitInterval),
		committer.WithMaxResolved(cfg.CommitMaxResolved),
		committer.WithLogger(cfg.Logger),
	)
	return r
}

// Run subscribes and processes until ctx is cancelled or a fatal error
// occurs. On the way out it waits up to ShutdownGrace for in-flight tasks,
// commits what resolved, and abandons the rest for redelivery.
func (r *Runner[T]) Run(ctx context.Context, topics ...string) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer r.running.Store(false)

	r.workCtx, r.workCancel = context.WithCancel(context.Background())
	r.pool = newWorkerPool(r.config.WorkerPoolSize, r.config.WorkerQueueCapacity)

	if err := r.consumer.Subscribe(topics, r); err != nil {
		r.workCancel()
		r.pool.Stop()
		return err
	}

	retryCtx, cancelRetry := context.WithCancel(context.Background())
	retryDone := make(chan struct{})
	go func() {
		defer close(retryDone)
		r.retryQ.Run(retryCtx, r.redispatch)
	}()

	commitCtx, cancelCommit := context.WithCancel(context.Background())
	commitDone := make(chan struct{})
	go func() {
		defer close(commitDone)
		r.committer.Run(commitCtx)
	}()

	r.logger.Info("Runner started", "topics", topics, "group", r.consumer.GroupID())

	var fatal error
	var pollFailures uint

loop:
	for {
		select {
		case fatal = <-r.errCh:
			r.logger.Error("Stopping on fatal error", "error", fatal)
			break loop
		case <-ctx.Done():
			break loop
		default:
		}

		r.dispatchPending()

		if err := r.pollOnce(ctx); err != nil {
			pollFailures++
			wait := r.config.PollErrorBackoff.Next(pollFailures)
			r.logger.Warn("Poll failed", "error", err, "backoff", wait)
			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
			continue
		}
		pollFailures = 0
	}

	cancelRetry()
	<-retryDone

	// retries still scheduled are abandoned; free their slots so the drain
	// below only waits on tasks that are actually executing
	for _, item := range r.retryQ.Drain() {
		r.telemetry.TasksInFlight.Add(context.Background(), -1)
		item.p.release()
	}

	r.drainInFlight()

	// final commit covers everything that resolved during the drain
	cancelCommit()
	<-commitDone

	r.workCancel()
	r.pool.Stop()

	r.logger.Info("Runner stopped", "abandoned", r.InFlight())
	return fatal
}

func (r *Runner[T]) pollOnce(ctx context.Context) error {
	start := time.Now()
	records, err := r.consumer.Poll(ctx)
	r.telemetry.PollDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	if len(records) > 0 {
		r.telemetry.TasksConsumed.Add(ctx, int64(len(records)))
	}

	for _, rec := range records {
		r.route(rec)
	}
	return nil
}

// route hands one record to its partition, buffering it and pausing the
// partition when the in-flight limit is hit.
func (r *Runner[T]) route(rec kafka.ConsumerRecord) {
	tp := rec.TopicPartition()
	p := r.partition(tp)

	r.pendMu.Lock()
	buffered := r.paused[tp] || len(r.pending[tp]) > 0
	r.pendMu.Unlock()
	if buffered {
		r.buffer(tp, rec)
		return
	}

	ok, err := p.TrySubmit(r.workCtx, rec)
	if err != nil {
		r.emitError(err)
		return
	}
	if !ok {
		r.buffer(tp, rec)
	}
}

func (r *Runner[T]) buffer(tp kafka.TopicPartition, rec kafka.ConsumerRecord) {
	r.pendMu.Lock()
	r.pending[tp] = append(r.pending[tp], rec)
	pause := !r.paused[tp]
	if pause {
		r.paused[tp] = true
	}
	r.pendMu.Unlock()

	if pause {
		r.consumer.PausePartitions(tp)
		r.logger.Debug("Paused partition, in-flight limit reached", "partition", tp.String())
	}
}

// dispatchPending drains buffered records back into their partitions as
// capacity frees up, resuming a partition once its buffer empties.
func (r *Runner[T]) dispatchPending() {
	r.pendMu.Lock()
	tps := make([]kafka.TopicPartition, 0, len(r.pending))
	for tp := range r.pending {
		tps = append(tps, tp)
	}
	r.pendMu.Unlock()

	for _, tp := range tps {
		r.mu.RLock()
		p, ok := r.partitions[tp]
		r.mu.RUnlock()
		if !ok {
			// revoked since the snapshot; OnRevoked already dropped the buffer
			continue
		}
		for {
			r.pendMu.Lock()
			queue := r.pending[tp]
			if len(queue) == 0 {
				drained := r.paused[tp]
				delete(r.pending, tp)
				delete(r.paused, tp)
				r.pendMu.Unlock()
				if drained {
					r.consumer.ResumePartitions(tp)
					r.logger.Debug("Resumed partition", "partition", tp.String())
				}
				break
			}
			rec := queue[0]
			r.pendMu.Unlock()

			ok, err := p.TrySubmit(r.workCtx, rec)
			if err != nil {
				r.emitError(err)
				return
			}
			if !ok {
				break
			}

			r.pendMu.Lock()
			if q := r.pending[tp]; len(q) > 0 {
				r.pending[tp] = q[1:]
			}
			r.pendMu.Unlock()
		}
	}
}

func (r *Runner[T]) partition(tp kafka.TopicPartition) *partition[T] {
	r.mu.RLock()
	p, ok := r.partitions[tp]
	r.mu.RUnlock()
	if ok {
		return p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok = r.partitions[tp]; ok {
		return p
	}
	p = newPartition(tp, r)
	r.partitions[tp] = p
	return p
}

// redispatch runs a redelivered envelope; called by the retry queue when its
// delay elapses. The task's in-flight slot was never released, so no
// capacity check is needed.
func (r *Runner[T]) redispatch(env processor.Envelope[T], p *partition[T]) {
	if p.revoked.Load() {
		r.telemetry.TasksInFlight.Add(context.Background(), -1)
		p.release()
		return
	}
	if err := r.pool.Submit(r.workCtx, func() { p.execute(env) }); err != nil {
		r.telemetry.TasksInFlight.Add(context.Background(), -1)
		p.release()
	}
}

// OnAssigned implements kafka.RebalanceCallback.
func (r *Runner[T]) OnAssigned(partitions []kafka.TopicPartition) {
	for _, tp := range partitions {
		r.partition(tp)
	}
	r.logger.Info("Partitions assigned", "count", len(partitions))
}

// OnRevoked implements kafka.RebalanceCallback. Revoked partitions are
// abandoned without committing: their windows are dropped, in-flight
// resolutions become no-ops, and the new owner redelivers from the last
// committed position.
func (r *Runner[T]) OnRevoked(partitions []kafka.TopicPartition) {
	r.mu.Lock()
	for _, tp := range partitions {
		if p, ok := r.partitions[tp]; ok {
			p.revoked.Store(true)
			delete(r.partitions, tp)
		}
	}
	r.mu.Unlock()

	r.pendMu.Lock()
	for _, tp := range partitions {
		delete(r.pending, tp)
		delete(r.paused, tp)
	}
	r.pendMu.Unlock()

	r.committer.DropPartitions(partitions...)
	r.logger.Info("Partitions revoked", "count", len(partitions))
}

// CommittableOffsets implements committer.OffsetSource.
func (r *Runner[T]) CommittableOffsets() map[kafka.TopicPartition]kafka.Offset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[kafka.TopicPartition]kafka.Offset, len(r.partitions))
	for tp, p := range r.partitions {
		if off, ok := p.committable(); ok {
			out[tp] = off
		}
	}
	return out
}

// Discards exposes tasks the engine gave up on. Reports are dropped when the
// channel is full, never blocked on; DiscardDrops counts the losses.
func (r *Runner[T]) Discards() <-chan DiscardedTask {
	return r.discards
}

func (r *Runner[T]) DiscardDrops() int64 {
	return r.discardDrops.Load()
}

// InFlight returns the number of unresolved tasks across all partitions.
func (r *Runner[T]) InFlight() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, p := range r.partitions {
		n += p.inFlightCount()
	}
	return n
}

func (r *Runner[T]) extract(raw []byte) (T, error) {
	return r.ext.Extract(raw)
}

func (r *Runner[T]) emitDiscard(d DiscardedTask) {
	select {
	case r.discards <- d:
	default:
		r.discardDrops.Add(1)
	}
}

func (r *Runner[T]) emitError(err error) {
	select {
	case r.errCh <- err:
	default:
	}
}

func (r *Runner[T]) drainInFlight() {
	deadline := time.Now().Add(r.config.ShutdownGrace)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		n := r.InFlight()
		if n == 0 {
			return
		}
		if time.Now().After(deadline) {
			r.logger.Warn("Shutdown grace expired, abandoning in-flight tasks", "count", n)
			return
		}
		<-ticker.C
	}
}
