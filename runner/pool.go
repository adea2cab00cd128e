package runner

import (
	"context"
	"sync"
)

// workerPool executes queued task functions on a fixed set of goroutines
// shared by every partition. The queue is bounded; Submit blocks once it
// fills, which throttles the poll loop when processors fall behind.
type workerPool struct {
	queue chan func()
	stop  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

func newWorkerPool(size, capacity int) *workerPool {
	p := &workerPool{
		queue: make(chan func(), capacity),
		stop:  make(chan struct{}),
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *workerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case fn := <-p.queue:
			fn()
		}
	}
}

func (p *workerPool) Submit(ctx context.Context, fn func()) error {
	select {
	case <-p.stop:
		return context.Canceled
	default:
	}

	select {
	case p.queue <- fn:
		return nil
	case <-p.stop:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop halts the workers after their current task. Queued functions that
// never started are dropped.
func (p *workerPool) Stop() {
	p.once.Do(func() { close(p.stop) })
	p.wg.Wait()
}
