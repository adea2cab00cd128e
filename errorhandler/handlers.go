package errorhandler

import (
	"context"

	"github.com/hugolhafner/dskit/backoff"
	"github.com/jyterencekim/decaton/logger"
)

// Discard gives up on every failure without logging.
func Discard() Handler {
	return HandlerFunc(
		func(ctx context.Context, ec ErrorContext) Action {
			return ActionDiscard{}
		},
	)
}

// LogAndDiscard logs the failure and gives up on the task.
func LogAndDiscard(logger logger.Logger) Handler {
	return HandlerFunc(
		func(ctx context.Context, ec ErrorContext) Action {
			logger.Error(
				"error processing task, discarding",
				"error", ec.Error,
				"key", string(ec.Key),
				"partition", ec.Partition,
				"offset", ec.Offset,
				"attempt", ec.Attempt,
			)
			return ActionDiscard{}
		},
	)
}

// LogAndFail logs the failure and stops the subscription.
func LogAndFail(logger logger.Logger) Handler {
	return HandlerFunc(
		func(ctx context.Context, ec ErrorContext) Action {
			logger.Error(
				"error processing task, failing",
				"error", ec.Error,
				"key", string(ec.Key),
				"partition", ec.Partition,
				"offset", ec.Offset,
				"attempt", ec.Attempt,
			)
			return ActionFail{}
		},
	)
}

// WithMaxAttempts retries with the given backoff strategy until the task has
// been attempted maxAttempts times, then delegates to the fallback handler.
// The backoff delay is carried in the action; the scheduler applies it via
// delayed redelivery, no goroutine sleeps here.
func WithMaxAttempts(maxAttempts int, b backoff.Backoff, fallback Handler) Handler {
	if fallback == nil {
		fallback = Discard()
	}

	return HandlerFunc(
		func(ctx context.Context, ec ErrorContext) Action {
			if ec.Attempt < maxAttempts {
				return RetryAfter(b.Next(uint(ec.Attempt)))
			}

			return fallback.Handle(ctx, ec)
		},
	)
}

// ActionLogger logs the action decided by the next handler.
func ActionLogger(l logger.Logger, level logger.LogLevel, next Handler) Handler {
	return HandlerFunc(
		func(ctx context.Context, ec ErrorContext) Action {
			action := next.Handle(ctx, ec)

			l.Log(
				level,
				"Failure policy decision",
				"action", action.Type().String(),
				"error", ec.Error,
				"key", string(ec.Key),
				"partition", ec.Partition,
				"offset", ec.Offset,
				"attempt", ec.Attempt,
			)
			return action
		},
	)
}
