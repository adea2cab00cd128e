package processor

import (
	"time"
)

// HeaderSourceApplicationID is the record header carrying the producing
// application's identifier. Its value, when present, is surfaced as
// Metadata.SourceApplicationID.
const HeaderSourceApplicationID = "source_application_id"

// Metadata carries per-task information attached at extraction time.
// It is immutable once constructed; retries produce a new envelope with a
// fresh Metadata value rather than mutating the original.
type Metadata struct {
	// Timestamp is the record (or task) timestamp, if known.
	Timestamp time.Time

	// SourceApplicationID identifies the producing application, if the
	// record carried one.
	SourceApplicationID string

	// Attempt is the retry count. Zero on first dispatch.
	Attempt int

	// ScheduledAt is the earliest time this task may be dispatched.
	// Zero means immediately eligible.
	ScheduledAt time.Time
}
