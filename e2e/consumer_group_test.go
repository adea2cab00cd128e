//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jyterencekim/decaton"
	"github.com/jyterencekim/decaton/extractor"
	"github.com/jyterencekim/decaton/processor"
	"github.com/jyterencekim/decaton/runner"
)

// Two subscriptions in one group split the work; together they process every
// record exactly until commit, and nothing is lost when one leaves.
func TestConsumerGroupSharing(t *testing.T) {
	addr := ensureContainer(t)
	topic := "e2e-group"
	group := "e2e-group-shared"

	values := make([]string, 20)
	for i := range values {
		values[i] = fmt.Sprintf("task-%d", i)
	}
	produceStrings(t, addr, topic, values...)

	var mu sync.Mutex
	seen := make(map[string]int)

	newMember := func() (*decaton.Subscription[string], chan error) {
		proc := processor.Func[string](
			func(ctx context.Context, pc processor.Context, task string) error {
				mu.Lock()
				seen[task]++
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
			runner.WithCommitInterval(300*time.Millisecond),
		)
		done := make(chan error, 1)
		go func() { done <- sub.Run(context.Background()) }()
		return sub, done
	}

	sub1, done1 := newMember()
	sub2, done2 := newMember()
	defer func() {
		sub1.Close()
		sub2.Close()
		<-done1
		<-done2
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == len(values)
	}, consumeWait, 200*time.Millisecond)
}
