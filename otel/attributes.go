package otel

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	AttrProcessStatus = attribute.Key("decaton.process.status")
	AttrPollStatus    = attribute.Key("decaton.poll.status")
	AttrFailureAction = attribute.Key("decaton.failure.action")
	AttrFailurePhase  = attribute.Key("decaton.failure.phase")
)

// Process status values
const (
	StatusSuccess   = "success"
	StatusDeferred  = "deferred"
	StatusRetried   = "retried"
	StatusDiscarded = "discarded"
	StatusFailed    = "failed"
	StatusError     = "error"
)

// Failure phase values
const (
	PhaseExtraction = "extraction"
	PhaseProcessing = "processing"
)
