package runner

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/jyterencekim/decaton/processor"
)

// retryQueue holds task envelopes scheduled for redelivery after a backoff.
// Entries become eligible exactly once, in due-time order. Entries belonging
// to revoked partitions are dropped when they fire.
type retryQueue[T any] struct {
	mu    sync.Mutex
	items retryHeap[T]
	kick  chan struct{}
}

type retryItem[T any] struct {
	env processor.Envelope[T]
	p   *partition[T]
}

func newRetryQueue[T any]() *retryQueue[T] {
	return &retryQueue[T]{kick: make(chan struct{}, 1)}
}

func (q *retryQueue[T]) Schedule(env processor.Envelope[T], p *partition[T]) {
	q.mu.Lock()
	heap.Push(&q.items, retryItem[T]{env: env, p: p})
	q.mu.Unlock()
	select {
	case q.kick <- struct{}{}:
	default:
	}
}

// Drain removes and returns everything still scheduled. Used at shutdown to
// release the slots of retries that will never fire in this process.
func (q *retryQueue[T]) Drain() []retryItem[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := []retryItem[T](q.items)
	q.items = nil
	return items
}

func (q *retryQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Run fires due entries until ctx is cancelled. Entries still scheduled at
// cancellation are abandoned; their window positions stay pending, so the
// records are redelivered by the broker after restart.
func (q *retryQueue[T]) Run(ctx context.Context, redispatch func(processor.Envelope[T], *partition[T])) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		q.mu.Lock()
		var wait time.Duration
		if q.items.Len() == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(q.items[0].env.Metadata.ScheduledAt)
		}
		q.mu.Unlock()

		if wait <= 0 {
			q.mu.Lock()
			item := heap.Pop(&q.items).(retryItem[T])
			q.mu.Unlock()
			redispatch(item.env, item.p)
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return
		case <-q.kick:
		case <-timer.C:
		}
	}
}

type retryHeap[T any] []retryItem[T]

func (h retryHeap[T]) Len() int { return len(h) }
func (h retryHeap[T]) Less(i, j int) bool {
	return h[i].env.Metadata.ScheduledAt.Before(h[j].env.Metadata.ScheduledAt)
}
func (h retryHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *retryHeap[T]) Push(x any) { *h = append(*h, x.(retryItem[T])) }

func (h *retryHeap[T]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = retryItem[T]{}
	*h = old[:n-1]
	return item
}
