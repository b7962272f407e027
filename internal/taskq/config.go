package taskq

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config tunes a Queue. Zero values select the defaults applied in New.
type Config struct {
	Shards         int           `envconfig:"SHARDS"`
	QueueSize      int           `envconfig:"QUEUE_SIZE"`
	EnqueueTimeout time.Duration `envconfig:"ENQUEUE_TIMEOUT"`
	MaxAttempts    int           `envconfig:"MAX_ATTEMPTS"`
	BaseBackoff    time.Duration `envconfig:"BASE_BACKOFF"`
	MaxInterval    time.Duration `envconfig:"MAX_INTERVAL"`

	// ErrorHandler receives the final error of a job that exhausted its
	// retries or failed irrecoverably. It must not block.
	ErrorHandler func(error) `ignored:"true"`
}

// LoadConfig reads TQ_* environment overrides into a Config.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("TQ", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
