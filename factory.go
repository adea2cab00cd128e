package decaton

import (
	"github.com/hugolhafner/dskit/backoff"

	"github.com/jyterencekim/decaton/config"
	"github.com/jyterencekim/decaton/kafka"
	"github.com/jyterencekim/decaton/logger"
	"github.com/jyterencekim/decaton/runner"
)

// NewConsumer builds a consumer client from loaded configuration, picking
// the driver it names.
func NewConsumer(cfg config.Config, l logger.Logger) (kafka.Consumer, error) {
	switch cfg.Kafka.Driver {
	case config.DriverSarama:
		opts := []kafka.SaramaOption{
			kafka.WithSaramaBootstrapServers(cfg.Kafka.Brokers),
			kafka.WithSaramaGroupID(cfg.Kafka.GroupID),
			kafka.WithSaramaStartFrom(cfg.Kafka.StartFrom),
			kafka.WithSaramaLogger(l),
		}
		if cfg.Kafka.Version != "" {
			opts = append(opts, kafka.WithSaramaVersion(cfg.Kafka.Version))
		}
		if cfg.Kafka.TLSEn {
			opts = append(opts, kafka.WithSaramaTLS())
		}
		if cfg.Kafka.SASLUser != "" {
			opts = append(opts, kafka.WithSaramaSASL(cfg.Kafka.SASLUser, cfg.Kafka.SASLPass))
		}
		return kafka.NewSaramaClient(opts...)

	default:
		return kafka.NewKgoClient(
			kafka.WithBootstrapServers(cfg.Kafka.Brokers),
			kafka.WithGroupID(cfg.Kafka.GroupID),
			kafka.WithMaxPollRecords(cfg.Kafka.MaxPollRecords),
			kafka.WithPollTimeout(cfg.Kafka.PollTimeout),
			kafka.WithKgoLogger(l),
		)
	}
}

// RunnerOptions translates loaded configuration into runner options.
func RunnerOptions(cfg config.Config, l logger.Logger) []runner.Option {
	return []runner.Option{
		runner.WithLogger(l),
		runner.WithMaxInFlightPerPartition(cfg.Processing.MaxInFlightPerPartition),
		runner.WithWorkerPoolSize(cfg.Processing.WorkerPoolSize),
		runner.WithShutdownGrace(cfg.Processing.ShutdownGrace),
		runner.WithMaxRetryAttempts(cfg.Retry.MaxAttempts),
		runner.WithRetryBackoff(backoff.NewFixed(cfg.Retry.Backoff)),
		runner.WithCommitInterval(cfg.Commit.Interval),
		runner.WithCommitMaxResolved(cfg.Commit.MaxResolved),
	}
}

// ParseLogLevel maps a configured level name to a logger level, defaulting
// to info for anything unrecognized.
func ParseLogLevel(s string) logger.LogLevel {
	switch s {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}
