//go:build unit

package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jyterencekim/decaton/processor"
)

func scheduledEnvelope(offset int64, after time.Duration) processor.Envelope[string] {
	return processor.Envelope[string]{Offset: offset}.Retried(after)
}

func TestRetryQueueFiresInDueOrder(t *testing.T) {
	q := newRetryQueue[string]()

	var mu sync.Mutex
	var fired []int64
	redispatch := func(env processor.Envelope[string], p *partition[string]) {
		mu.Lock()
		fired = append(fired, env.Offset)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(ctx, redispatch)
	}()

	// scheduled out of due order
	q.Schedule(scheduledEnvelope(3, 30*time.Millisecond), nil)
	q.Schedule(scheduledEnvelope(1, 5*time.Millisecond), nil)
	q.Schedule(scheduledEnvelope(2, 15*time.Millisecond), nil)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 3
	}, 5*time.Second, time.Millisecond)

	mu.Lock()
	assert.Equal(t, []int64{1, 2, 3}, fired)
	mu.Unlock()

	cancel()
	<-done
}

func TestRetryQueueDrain(t *testing.T) {
	q := newRetryQueue[string]()

	q.Schedule(scheduledEnvelope(1, time.Hour), nil)
	q.Schedule(scheduledEnvelope(2, time.Hour), nil)
	require.Equal(t, 2, q.Len())

	items := q.Drain()
	assert.Len(t, items, 2)
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain())
}

func TestRetryQueueStopsOnCancel(t *testing.T) {
	q := newRetryQueue[string]()
	q.Schedule(scheduledEnvelope(1, time.Hour), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(ctx, func(processor.Envelope[string], *partition[string]) {
			t.Error("nothing should fire")
		})
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retry queue did not stop")
	}
	assert.Equal(t, 1, q.Len(), "unfired entries stay for Drain")
}

func TestWorkerPoolExecutesSubmitted(t *testing.T) {
	p := newWorkerPool(2, 8)
	defer p.Stop()

	var wg sync.WaitGroup
	var count int64
	var mu sync.Mutex

	for i := 0; i < 10; i++ {
		wg.Add(1)
		err := p.Submit(context.Background(), func() {
			defer wg.Done()
			mu.Lock()
			count++
			mu.Unlock()
		})
		require.NoError(t, err)
	}

	wg.Wait()
	mu.Lock()
	assert.Equal(t, int64(10), count)
	mu.Unlock()
}

func TestWorkerPoolSubmitAfterStop(t *testing.T) {
	p := newWorkerPool(1, 1)
	p.Stop()

	err := p.Submit(context.Background(), func() {})
	assert.Error(t, err)
}

func TestWorkerPoolSubmitHonorsContext(t *testing.T) {
	p := newWorkerPool(1, 1)
	defer p.Stop()

	gate := make(chan struct{})
	defer close(gate)

	// occupy the single worker and fill the queue
	require.NoError(t, p.Submit(context.Background(), func() { <-gate }))
	require.NoError(t, p.Submit(context.Background(), func() {}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
