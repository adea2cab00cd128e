package runner

import (
	"runtime"
	"time"

	"github.com/hugolhafner/dskit/backoff"

	"github.com/jyterencekim/decaton/errorhandler"
	"github.com/jyterencekim/decaton/logger"
	"github.com/jyterencekim/decaton/otel"
)

const (
	defaultMaxInFlightPerPartition = 10
	defaultMaxRetryAttempts        = 3
	defaultRetryBackoff            = time.Second
	defaultPollErrorBackoff        = time.Second
	defaultCommitInterval          = 5 * time.Second
	defaultCommitMaxResolved       = 1000
	defaultShutdownGrace           = 30 * time.Second
	defaultDiscardBuffer           = 128
)

type config struct {
	Logger logger.Logger

	// Handler decides what happens to a task whose processor returned an
	// error. When nil, a bounded-retry handler built from MaxRetryAttempts
	// and RetryBackoff is used, discarding after the attempts run out.
	Handler errorhandler.Handler

	MaxRetryAttempts int
	RetryBackoff     backoff.Backoff

	// MaxInFlightPerPartition caps how many tasks of a single partition may
	// be unresolved at once. Deferred tasks count against the cap until
	// their completion resolves.
	MaxInFlightPerPartition int

	// WorkerPoolSize is the number of goroutines executing processor calls,
	// shared across all partitions. WorkerQueueCapacity bounds the dispatch
	// queue feeding them.
	WorkerPoolSize      int
	WorkerQueueCapacity int

	CommitInterval    time.Duration
	CommitMaxResolved int

	PollErrorBackoff backoff.Backoff

	// ShutdownGrace is how long Run waits for in-flight tasks to resolve
	// after its context is cancelled, before committing what completed and
	// abandoning the rest.
	ShutdownGrace time.Duration

	// DiscardBuffer sizes the channel carrying discard reports. Reports are
	// dropped, not blocked on, when nobody drains the channel.
	DiscardBuffer int

	Telemetry *otel.Telemetry
}

func defaultConfig() config {
	workers := runtime.GOMAXPROCS(0) * 2
	return config{
		Logger:                  logger.NewNoopLogger(),
		MaxRetryAttempts:        defaultMaxRetryAttempts,
		RetryBackoff:            backoff.NewFixed(defaultRetryBackoff),
		MaxInFlightPerPartition: defaultMaxInFlightPerPartition,
		WorkerPoolSize:          workers,
		WorkerQueueCapacity:     workers * 4,
		CommitInterval:          defaultCommitInterval,
		CommitMaxResolved:       defaultCommitMaxResolved,
		PollErrorBackoff:        backoff.NewFixed(defaultPollErrorBackoff),
		ShutdownGrace:           defaultShutdownGrace,
		DiscardBuffer:           defaultDiscardBuffer,
		Telemetry:               otel.Noop(),
	}
}

func (c config) handler() errorhandler.Handler {
	if c.Handler != nil {
		return c.Handler
	}
	return errorhandler.WithMaxAttempts(c.MaxRetryAttempts, c.RetryBackoff, errorhandler.LogAndDiscard(c.Logger))
}
