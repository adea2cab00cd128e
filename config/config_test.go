//go:build unit

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "decaton.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverFranz, cfg.Kafka.Driver)
	assert.Equal(t, "newest", cfg.Kafka.StartFrom)
	assert.Equal(t, 500, cfg.Kafka.MaxPollRecords)
	assert.Equal(t, time.Second, cfg.Kafka.PollTimeout)
	assert.Equal(t, 10, cfg.Processing.MaxInFlightPerPartition)
	assert.Equal(t, 30*time.Second, cfg.Processing.ShutdownGrace)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.Backoff)
	assert.Equal(t, 5*time.Second, cfg.Commit.Interval)
	assert.Equal(t, 1000, cfg.Commit.MaxResolved)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
schema_version: v1
kafka:
  brokers: ["broker-1:9092", "broker-2:9092"]
  topics: ["orders"]
  group_id: order-workers
  driver: sarama
  start_from: oldest
processing:
  max_in_flight_per_partition: 32
  worker_pool_size: 8
retry:
  max_attempts: 5
  backoff: 250ms
commit:
  interval: 2s
  max_resolved: 500
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"orders"}, cfg.Kafka.Topics)
	assert.Equal(t, "order-workers", cfg.Kafka.GroupID)
	assert.Equal(t, DriverSarama, cfg.Kafka.Driver)
	assert.Equal(t, "oldest", cfg.Kafka.StartFrom)
	assert.Equal(t, 32, cfg.Processing.MaxInFlightPerPartition)
	assert.Equal(t, 8, cfg.Processing.WorkerPoolSize)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Backoff)
	assert.Equal(t, 2*time.Second, cfg.Commit.Interval)
	assert.Equal(t, 500, cfg.Commit.MaxResolved)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
kafka:
  group_id: from-yaml
log_level: warn
`)

	t.Setenv("DECATON__KAFKA__GROUP_ID", "from-env")
	t.Setenv("DECATON__LOG_LEVEL", "error")
	t.Setenv("DECATON__RETRY__MAX_ATTEMPTS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Kafka.GroupID)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DriverFranz, cfg.Kafka.Driver)
}

func TestLoadRejectsUnknownSchemaVersion(t *testing.T) {
	path := writeConfig(t, "schema_version: v9\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadDriver(t *testing.T) {
	path := writeConfig(t, `
kafka:
  driver: pulsar
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadStartFrom(t *testing.T) {
	path := writeConfig(t, `
kafka:
  start_from: middle
`)

	_, err := Load(path)
	require.Error(t, err)
}
