//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/jyterencekim/decaton/kafka"
	"github.com/jyterencekim/decaton/logger"
)

const (
	consumeWait  = 30 * time.Second
	eventualWait = 15 * time.Second
)

var (
	testContainer  *redpanda.Container
	bootstrapAddr  string
	containerOnce  sync.Once
	containerError error
)

func TestMain(m *testing.M) {
	code := m.Run()

	if testContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = testContainer.Terminate(ctx)
	}

	os.Exit(code)
}

func ensureContainer(t *testing.T) string {
	t.Helper()

	containerOnce.Do(
		func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			container, err := redpanda.Run(
				ctx,
				"docker.redpanda.com/redpandadata/redpanda:v24.2.1",
				redpanda.WithAutoCreateTopics(),
			)
			if err != nil {
				containerError = fmt.Errorf("failed to start redpanda container: %w", err)
				return
			}

			testContainer = container

			addr, err := container.KafkaSeedBroker(ctx)
			if err != nil {
				containerError = fmt.Errorf("failed to get kafka seed broker: %w", err)
				return
			}

			bootstrapAddr = addr
		},
	)

	require.NoError(t, containerError, "container initialization failed")
	require.NotEmpty(t, bootstrapAddr, "bootstrap address not set")

	return bootstrapAddr
}

func newTestConsumer(t *testing.T, addr, group string) kafka.Consumer {
	t.Helper()

	consumer, err := kafka.NewKgoClient(
		kafka.WithBootstrapServers([]string{addr}),
		kafka.WithGroupID(group),
		kafka.WithPollTimeout(time.Second),
	)
	require.NoError(t, err)
	return consumer
}

func produceStrings(t *testing.T, addr, topic string, values ...string) {
	t.Helper()

	client, err := kgo.NewClient(
		kgo.SeedBrokers(addr),
		kgo.DefaultProduceTopic(topic),
	)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for i, v := range values {
		rec := &kgo.Record{
			Key:   []byte(fmt.Sprintf("key-%d", i)),
			Value: []byte(v),
		}
		require.NoError(t, client.ProduceSync(ctx, rec).FirstErr())
	}
}

// committedOffset reads the group's committed offset for partition 0 of the
// topic straight from the broker.
func committedOffset(t *testing.T, addr, group, topic string) (int64, bool) {
	t.Helper()

	client, err := kgo.NewClient(kgo.SeedBrokers(addr))
	require.NoError(t, err)
	defer client.Close()

	adm := kadm.NewClient(client)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := adm.FetchOffsets(ctx, group)
	require.NoError(t, err)

	offset, ok := resp.Lookup(topic, 0)
	if !ok || offset.At < 0 {
		return 0, false
	}
	return offset.At, true
}

func testLogger() logger.Logger {
	return logger.NewNoopLogger()
}
