//go:build e2e

package e2e

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jyterencekim/decaton"
	"github.com/jyterencekim/decaton/extractor"
	"github.com/jyterencekim/decaton/processor"
	"github.com/jyterencekim/decaton/runner"
)

func TestBasicProcessing(t *testing.T) {
	addr := ensureContainer(t)
	topic := "e2e-basic"
	group := "e2e-basic-group"

	produceStrings(t, addr, topic, "a", "b", "c", "d", "e")

	var mu sync.Mutex
	seen := make(map[string]struct{})
	proc := processor.Func[string](
		func(ctx context.Context, pc processor.Context, task string) error {
			mu.Lock()
			seen[task] = struct{}{}
			mu.Unlock()
			return nil
		},
	)

	sub := decaton.NewSubscription(
		newTestConsumer(t, addr, group),
		[]string{topic},
		extractor.String(),
		proc,
		runner.WithLogger(testLogger()),
		runner.WithCommitInterval(500*time.Millisecond),
	)

	done := make(chan error, 1)
	go func() { done <- sub.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 5
	}, consumeWait, 100*time.Millisecond)

	require.Eventually(t, func() bool {
		off, ok := committedOffset(t, addr, group, topic)
		return ok && off == 5
	}, eventualWait, 200*time.Millisecond)

	sub.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(30 * time.Second):
		t.Fatal("subscription did not shut down")
	}
}

func TestProcessingFailureIsRetriedThenCommitted(t *testing.T) {
	addr := ensureContainer(t)
	topic := "e2e-retry"
	group := "e2e-retry-group"

	produceStrings(t, addr, topic, "flaky")

	var mu sync.Mutex
	attempts := 0
	proc := processor.Func[string](
		func(ctx context.Context, pc processor.Context, task string) error {
			mu.Lock()
			defer mu.Unlock()
			attempts++
			if attempts == 1 {
				return assert.AnError
			}
			return nil
		},
	)

	sub := decaton.NewSubscription(
		newTestConsumer(t, addr, group),
		[]string{topic},
		extractor.String(),
		proc,
		runner.WithLogger(testLogger()),
		runner.WithCommitInterval(500*time.Millisecond),
		runner.WithMaxRetryAttempts(3),
	)

	done := make(chan error, 1)
	go func() { done <- sub.Run(context.Background()) }()
	defer func() {
		sub.Close()
		<-done
	}()

	require.Eventually(t, func() bool {
		off, ok := committedOffset(t, addr, group, topic)
		return ok && off == 1
	}, consumeWait, 200*time.Millisecond)

	mu.Lock()
	assert.Equal(t, 2, attempts)
	mu.Unlock()
}
