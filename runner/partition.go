package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jyterencekim/decaton/errorhandler"
	"github.com/jyterencekim/decaton/kafka"
	"github.com/jyterencekim/decaton/logger"
	"github.com/jyterencekim/decaton/otel"
	"github.com/jyterencekim/decaton/processor"
	"github.com/jyterencekim/decaton/tracker"
)

// partition owns everything per-partition: the completion window deciding
// what is safe to commit, and the in-flight budget bounding how many tasks
// may be unresolved at once. Registration happens on the poll goroutine in
// arrival order; resolutions come from worker and user goroutines.
type partition[T any] struct {
	tp kafka.TopicPartition
	r  *Runner[T]

	window *tracker.PartitionWindow

	mu       sync.Mutex
	inFlight int

	revoked     atomic.Bool
	leaderEpoch atomic.Int32

	logger logger.Logger
}

func newPartition[T any](tp kafka.TopicPartition, r *Runner[T]) *partition[T] {
	return &partition[T]{
		tp:     tp,
		r:      r,
		window: tracker.NewPartitionWindow(),
		logger: r.config.Logger.With("partition", tp.String()),
	}
}

// TrySubmit registers the record in the window and hands the extracted task
// to the worker pool. It returns false without side effects when the
// partition is at its in-flight limit; the caller buffers the record and
// pauses the partition. Extraction failures consume the record: the position
// resolves discarded immediately so it never blocks the commit prefix.
func (p *partition[T]) TrySubmit(ctx context.Context, rec kafka.ConsumerRecord) (bool, error) {
	p.mu.Lock()
	if p.inFlight >= p.r.config.MaxInFlightPerPartition {
		p.mu.Unlock()
		return false, nil
	}
	p.inFlight++
	p.mu.Unlock()

	if err := p.window.Register(rec.Offset); err != nil {
		p.release()
		return false, err
	}
	p.leaderEpoch.Store(rec.LeaderEpoch)

	task, err := p.r.extract(rec.Value)
	if err != nil {
		p.release()
		p.discardUnextractable(rec, err)
		return true, nil
	}

	meta := processor.Metadata{Timestamp: rec.Timestamp}
	if v, ok := kafka.HeaderValue(rec.Headers, processor.HeaderSourceApplicationID); ok {
		meta.SourceApplicationID = string(v)
	}

	env := processor.Envelope[T]{
		Task:     task,
		Metadata: meta,
		Raw:       rec.Value,
		Key:       rec.Key,
		Headers:   rec.Headers,
		Partition: p.tp,
		Offset:    rec.Offset,
	}

	p.r.telemetry.TasksInFlight.Add(ctx, 1)
	if err := p.r.pool.Submit(ctx, func() { p.execute(env) }); err != nil {
		// shutting down; the entry stays pending and is redelivered later
		p.r.telemetry.TasksInFlight.Add(context.Background(), -1)
		p.release()
		return true, nil
	}
	return true, nil
}

// discardUnextractable resolves a record whose bytes never became a task.
func (p *partition[T]) discardUnextractable(rec kafka.ConsumerRecord, cause error) {
	if err := p.window.Resolve(rec.Offset, tracker.StateDiscarded); err != nil {
		p.r.emitError(err)
		return
	}
	p.r.committer.RecordResolved(1)

	ctx := context.Background()
	p.r.telemetry.ExtractionFailures.Add(ctx, 1)
	p.r.telemetry.TasksDiscarded.Add(ctx, 1,
		metric.WithAttributes(otel.AttrFailurePhase.String(otel.PhaseExtraction)))

	p.logger.Warn("Discarding record, extraction failed", "offset", rec.Offset, "error", cause)
	p.r.emitDiscard(DiscardedTask{
		Partition: p.tp,
		Offset:    rec.Offset,
		Key:       rec.Key,
		Raw:       rec.Value,
		Error:     cause,
		Phase:     otel.PhaseExtraction,
	})
}

// execute runs one processing attempt on a worker goroutine. Used both for
// first dispatches and for redeliveries out of the retry queue.
func (p *partition[T]) execute(env processor.Envelope[T]) {
	handle := &completionHandle[T]{p: p, env: env}
	tc := &taskContext[T]{handle: handle}

	ctx := p.r.workCtx
	ctx = p.r.telemetry.Propagator.Extract(ctx, otel.NewKafkaHeadersCarrier(&env.Headers))
	ctx, span := p.r.telemetry.Tracer.Start(ctx, "process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", p.tp.Topic),
			attribute.Int64("messaging.kafka.offset", env.Offset),
			attribute.Int("decaton.attempt", env.Metadata.Attempt),
		),
	)
	defer span.End()

	start := time.Now()
	err := p.safeProcess(ctx, tc, env.Task)
	p.r.telemetry.ProcessDuration.Record(ctx, time.Since(start).Seconds())

	status := p.settle(ctx, handle, tc, env, err)
	span.SetAttributes(otel.AttrProcessStatus.String(status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "processing attempt failed")
	}
}

func (p *partition[T]) safeProcess(ctx context.Context, tc processor.Context, task T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = processor.NewProcessError(fmt.Errorf("processor panic: %v", r))
		}
	}()
	return p.r.proc.Process(ctx, tc, task)
}

// settle decides the attempt's outcome after Process returns and reports the
// status used for instrumentation.
func (p *partition[T]) settle(
	ctx context.Context, handle *completionHandle[T], tc *taskContext[T], env processor.Envelope[T], err error,
) string {
	if out, ok := handle.outcome(); ok {
		// resolved synchronously inside Process
		return out
	}

	if err == nil {
		if tc.deferred.Load() {
			handle.markDeferred(ctx)
			return otel.StatusDeferred
		}
		handle.Complete()
		return otel.StatusSuccess
	}

	// a deferred handle loses to an error return; the error decides
	action := p.r.handler.Handle(ctx, errorhandler.NewErrorContext(
		p.tp, env.Offset, env.Key, err, env.Metadata.Attempt+1,
	))

	switch action.Type() {
	case errorhandler.ActionTypeRetry:
		retry := action.(errorhandler.ActionRetry)
		handle.Retry(retry.After())
		return otel.StatusRetried

	case errorhandler.ActionTypeFail:
		p.r.emitError(fmt.Errorf("runner: failure policy stopped subscription: %w", err))
		return otel.StatusFailed

	default:
		handle.discard(ctx, err)
		return otel.StatusDiscarded
	}
}

// finish records the final resolution for env's position and frees its
// in-flight slot.
func (p *partition[T]) finish(env processor.Envelope[T], state tracker.State) {
	p.r.telemetry.TasksInFlight.Add(context.Background(), -1)
	p.release()

	if p.revoked.Load() {
		// window was abandoned on revocation; nothing to resolve
		return
	}

	if err := p.window.Resolve(env.Offset, state); err != nil {
		if errors.Is(err, tracker.ErrUnknownPosition) {
			p.r.emitError(err)
		}
		return
	}
	p.r.committer.RecordResolved(1)
}

// scheduleRetry keeps env's position pending and queues a fresh envelope for
// redelivery. The in-flight slot stays held, so the redispatch needs no new
// capacity and head-of-line records keep the commit position capped.
func (p *partition[T]) scheduleRetry(env processor.Envelope[T], after time.Duration) {
	if p.revoked.Load() {
		p.r.telemetry.TasksInFlight.Add(context.Background(), -1)
		p.release()
		return
	}

	next := env.Retried(after)
	p.r.telemetry.RetriesScheduled.Add(context.Background(), 1)
	p.logger.Debug("Scheduled redelivery",
		"offset", env.Offset, "attempt", next.Metadata.Attempt, "after", after)
	p.r.retryQ.Schedule(next, p)
}

func (p *partition[T]) release() {
	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()
}

func (p *partition[T]) inFlightCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

func (p *partition[T]) hasCapacity() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight < p.r.config.MaxInFlightPerPartition
}

func (p *partition[T]) committable() (kafka.Offset, bool) {
	pos, ok := p.window.CommittablePosition()
	if !ok {
		return kafka.Offset{}, false
	}
	return kafka.Offset{LeaderEpoch: p.leaderEpoch.Load(), Offset: pos}, true
}

// completionHandle resolves one dispatch attempt exactly once, from any
// goroutine. Complete and Retry race; the first claim wins and the rest are
// no-ops.
type completionHandle[T any] struct {
	p   *partition[T]
	env processor.Envelope[T]

	done     atomic.Bool
	result   atomic.Value // string, one of the otel status values
	deferred atomic.Bool  // deferred gauge was incremented
}

var _ processor.Completion = (*completionHandle[struct{}])(nil)

func (h *completionHandle[T]) Complete() {
	if !h.done.CompareAndSwap(false, true) {
		return
	}
	h.result.Store(otel.StatusSuccess)
	h.settleDeferredGauge()
	h.p.finish(h.env, tracker.StateCompleted)
}

func (h *completionHandle[T]) Retry(after time.Duration) {
	if !h.done.CompareAndSwap(false, true) {
		return
	}
	h.result.Store(otel.StatusRetried)
	h.settleDeferredGauge()
	h.p.scheduleRetry(h.env, after)
}

func (h *completionHandle[T]) discard(ctx context.Context, cause error) {
	if !h.done.CompareAndSwap(false, true) {
		return
	}
	h.result.Store(otel.StatusDiscarded)
	h.settleDeferredGauge()

	h.p.r.telemetry.TasksDiscarded.Add(ctx, 1,
		metric.WithAttributes(otel.AttrFailurePhase.String(otel.PhaseProcessing)))
	h.p.r.emitDiscard(DiscardedTask{
		Partition: h.p.tp,
		Offset:    h.env.Offset,
		Key:       h.env.Key,
		Raw:       h.env.Raw,
		Error:     cause,
		Attempts:  h.env.Metadata.Attempt + 1,
		Phase:     otel.PhaseProcessing,
	})
	h.p.finish(h.env, tracker.StateDiscarded)
}

func (h *completionHandle[T]) markDeferred(ctx context.Context) {
	if h.deferred.CompareAndSwap(false, true) {
		h.p.r.telemetry.TasksDeferred.Add(ctx, 1)
	}
}

func (h *completionHandle[T]) settleDeferredGauge() {
	if h.deferred.CompareAndSwap(true, false) {
		h.p.r.telemetry.TasksDeferred.Add(context.Background(), -1)
	}
}

func (h *completionHandle[T]) outcome() (string, bool) {
	if !h.done.Load() {
		return "", false
	}
	out, _ := h.result.Load().(string)
	return out, true
}

// taskContext is the processor.Context handed to user logic for one attempt.
type taskContext[T any] struct {
	handle   *completionHandle[T]
	deferred atomic.Bool
}

var _ processor.Context = (*taskContext[struct{}])(nil)

func (tc *taskContext[T]) Metadata() processor.Metadata { return tc.handle.env.Metadata }

func (tc *taskContext[T]) Key() []byte { return tc.handle.env.Key }

func (tc *taskContext[T]) Partition() kafka.TopicPartition { return tc.handle.p.tp }

func (tc *taskContext[T]) Offset() int64 { return tc.handle.env.Offset }

func (tc *taskContext[T]) Complete() { tc.handle.Complete() }

func (tc *taskContext[T]) DeferCompletion() processor.Completion {
	tc.deferred.Store(true)
	return tc.handle
}

func (tc *taskContext[T]) Retry(after time.Duration) { tc.handle.Retry(after) }
