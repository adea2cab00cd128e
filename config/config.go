package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Driver selects the consumer client implementation.
type Driver string

const (
	DriverFranz  Driver = "franz"
	DriverSarama Driver = "sarama"
)

type KafkaCfg struct {
	Brokers   []string `koanf:"brokers"`
	Topics    []string `koanf:"topics"`
	GroupID   string   `koanf:"group_id"`
	Driver    Driver   `koanf:"driver"`     // franz|sarama
	StartFrom string   `koanf:"start_from"` // oldest|newest (sarama only)
	Version   string   `koanf:"version"`
	TLSEn     bool     `koanf:"tls_enabled"`
	SASLUser  string   `koanf:"sasl_user"`
	SASLPass  string   `koanf:"sasl_pass"`

	MaxPollRecords int           `koanf:"max_poll_records"`
	PollTimeout    time.Duration `koanf:"poll_timeout"`
}

type ProcessingCfg struct {
	MaxInFlightPerPartition int           `koanf:"max_in_flight_per_partition"`
	WorkerPoolSize          int           `koanf:"worker_pool_size"`
	ShutdownGrace           time.Duration `koanf:"shutdown_grace"`
}

type RetryCfg struct {
	MaxAttempts int           `koanf:"max_attempts"`
	Backoff     time.Duration `koanf:"backoff"`
}

type CommitCfg struct {
	Interval    time.Duration `koanf:"interval"`
	MaxResolved int           `koanf:"max_resolved"`
}

type Config struct {
	Kafka      KafkaCfg      `koanf:"kafka"`
	Processing ProcessingCfg `koanf:"processing"`
	Retry      RetryCfg      `koanf:"retry"`
	Commit     CommitCfg     `koanf:"commit"`
	LogLevel   string        `koanf:"log_level"` // debug|info|warn|error
}

// Load merges YAML (if present) with env-vars
// (prefix `DECATON__`, delimiter `__`).
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	sv := k.String("schema_version")
	if sv != "" && sv != "v1" {
		return Config{}, fmt.Errorf("config schema_version %q not supported (want v1)", sv)
	}

	_ = k.Load(env.Provider("DECATON__", "__", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "DECATON__"))
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, cfg.validate()
}

func applyDefaults(c *Config) {
	if c.Kafka.Driver == "" {
		c.Kafka.Driver = DriverFranz
	}
	if c.Kafka.StartFrom == "" {
		c.Kafka.StartFrom = "newest"
	}
	if c.Kafka.MaxPollRecords == 0 {
		c.Kafka.MaxPollRecords = 500
	}
	if c.Kafka.PollTimeout == 0 {
		c.Kafka.PollTimeout = time.Second
	}
	if c.Processing.MaxInFlightPerPartition == 0 {
		c.Processing.MaxInFlightPerPartition = 10
	}
	if c.Processing.ShutdownGrace == 0 {
		c.Processing.ShutdownGrace = 30 * time.Second
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.Backoff == 0 {
		c.Retry.Backoff = time.Second
	}
	if c.Commit.Interval == 0 {
		c.Commit.Interval = 5 * time.Second
	}
	if c.Commit.MaxResolved == 0 {
		c.Commit.MaxResolved = 1000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c Config) validate() error {
	if c.Kafka.Driver != DriverFranz && c.Kafka.Driver != DriverSarama {
		return fmt.Errorf("config: unknown kafka driver %q", c.Kafka.Driver)
	}
	if c.Kafka.StartFrom != "oldest" && c.Kafka.StartFrom != "newest" {
		return fmt.Errorf("config: start_from must be oldest or newest, got %q", c.Kafka.StartFrom)
	}
	return nil
}
