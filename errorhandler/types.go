package errorhandler

import (
	"context"
	"time"
)

type ActionType int

const (
	ActionTypeRetry   ActionType = iota // redeliver the task after a delay
	ActionTypeDiscard                   // give up, report, commit past the task
	ActionTypeFail                      // fatal: stop the subscription
)

func (a ActionType) String() string {
	switch a {
	case ActionTypeRetry:
		return "Retry"
	case ActionTypeDiscard:
		return "Discard"
	case ActionTypeFail:
		return "Fail"
	default:
		return "Unknown"
	}
}

var _ Action = ActionRetry{}
var _ Action = ActionDiscard{}
var _ Action = ActionFail{}

type Action interface {
	Type() ActionType
}

// ActionRetry schedules redelivery no earlier than now+After(). The delay is
// honored by the dispatch scheduler's holding area; handlers must not sleep.
type ActionRetry struct {
	after time.Duration
}

func RetryAfter(after time.Duration) ActionRetry {
	return ActionRetry{after: after}
}

func (a ActionRetry) Type() ActionType {
	return ActionTypeRetry
}

func (a ActionRetry) After() time.Duration {
	return a.after
}

type ActionDiscard struct{}

func (a ActionDiscard) Type() ActionType {
	return ActionTypeDiscard
}

type ActionFail struct{}

func (a ActionFail) Type() ActionType {
	return ActionTypeFail
}

// Handler decides what the engine does with a failed processing attempt.
type Handler interface {
	Handle(ctx context.Context, ec ErrorContext) Action
}

type HandlerFunc func(ctx context.Context, ec ErrorContext) Action

func (f HandlerFunc) Handle(ctx context.Context, ec ErrorContext) Action {
	return f(ctx, ec)
}
