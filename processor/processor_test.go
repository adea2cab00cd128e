//go:build unit

package processor

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jyterencekim/decaton/kafka"
)

func TestEnvelopeRetried(t *testing.T) {
	env := Envelope[string]{
		Task: "job",
		Metadata: Metadata{
			Timestamp: time.Now(),
			Attempt:   0,
		},
		Partition: kafka.TopicPartition{Topic: "tasks", Partition: 1},
		Offset:    7,
	}

	before := time.Now()
	next := env.Retried(50 * time.Millisecond)

	assert.Equal(t, 1, next.Metadata.Attempt)
	assert.False(t, next.Metadata.ScheduledAt.Before(before.Add(50*time.Millisecond)))
	assert.Equal(t, env.Task, next.Task)
	assert.Equal(t, env.Offset, next.Offset)

	// original untouched
	assert.Equal(t, 0, env.Metadata.Attempt)
	assert.True(t, env.Metadata.ScheduledAt.IsZero())
}

func TestEnvelopeRetriedChained(t *testing.T) {
	env := Envelope[string]{Task: "job"}

	second := env.Retried(time.Millisecond).Retried(time.Millisecond)
	assert.Equal(t, 2, second.Metadata.Attempt)
}

func TestProcessError(t *testing.T) {
	cause := errors.New("boom")
	err := NewProcessError(cause)

	assert.ErrorIs(t, err, cause)

	pe, ok := AsProcessError(fmt.Errorf("wrapped: %w", err))
	require.True(t, ok)
	assert.Same(t, cause, pe.Cause)

	_, ok = AsProcessError(cause)
	assert.False(t, ok)
}
