package runner

import (
	"time"

	"github.com/hugolhafner/dskit/backoff"

	"github.com/jyterencekim/decaton/errorhandler"
	"github.com/jyterencekim/decaton/logger"
	"github.com/jyterencekim/decaton/otel"
)

type Option func(*config)

func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithErrorHandler replaces the default bounded-retry handler.
func WithErrorHandler(h errorhandler.Handler) Option {
	return func(c *config) {
		c.Handler = h
	}
}

// WithMaxRetryAttempts sets how many times the default handler redelivers a
// failing task before discarding it. Ignored when WithErrorHandler is set.
func WithMaxRetryAttempts(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.MaxRetryAttempts = n
		}
	}
}

// WithRetryBackoff sets the delay policy used by the default handler between
// redeliveries. Ignored when WithErrorHandler is set.
func WithRetryBackoff(b backoff.Backoff) Option {
	return func(c *config) {
		if b != nil {
			c.RetryBackoff = b
		}
	}
}

func WithMaxInFlightPerPartition(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.MaxInFlightPerPartition = n
		}
	}
}

func WithWorkerPoolSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.WorkerPoolSize = n
			c.WorkerQueueCapacity = n * 4
		}
	}
}

func WithCommitInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.CommitInterval = d
		}
	}
}

func WithCommitMaxResolved(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.CommitMaxResolved = n
		}
	}
}

func WithPollErrorBackoff(b backoff.Backoff) Option {
	return func(c *config) {
		if b != nil {
			c.PollErrorBackoff = b
		}
	}
}

func WithShutdownGrace(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.ShutdownGrace = d
		}
	}
}

func WithDiscardBuffer(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.DiscardBuffer = n
		}
	}
}

func WithTelemetry(t *otel.Telemetry) Option {
	return func(c *config) {
		if t != nil {
			c.Telemetry = t
		}
	}
}
