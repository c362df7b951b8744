package coil

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// Config holds the process-wide tunables read by the *FromConfig
// constructors (NewPoolFromConfig, NewQueueFromConfig,
// job.NewSupervisorFromConfig, job.NewRetryFromConfig) and by the
// ConfigureTelemetry functions. Every field carries json/yaml/env tags
// for file and environment loading; PoolWorkers, QueueCapacity and
// QueuePolicy also carry validate tags.
type Config struct {
	// PoolWorkers is the default worker count for a Supervisor-owned Pool.
	PoolWorkers int `json:"poolWorkers" yaml:"poolWorkers" validate:"min=1" env:"POOL_WORKERS"`

	// QueueCapacity is the bound NewQueueFromConfig gives its Queue.
	QueueCapacity int `json:"queueCapacity" yaml:"queueCapacity" validate:"min=1" env:"QUEUE_CAPACITY"`

	// QueuePolicy is the OverflowPolicy name ("raise", "block", or "drop")
	// NewQueueFromConfig gives its Queue.
	QueuePolicy string `json:"queuePolicy" yaml:"queuePolicy" validate:"oneof=raise block drop" env:"QUEUE_POLICY"`

	// RetryMaxConsecutiveFailures is the Retry.MaxConsecutiveFailures
	// NewRetryFromConfig sets. Zero means unbounded.
	RetryMaxConsecutiveFailures int `json:"retryMaxConsecutiveFailures" yaml:"retryMaxConsecutiveFailures" env:"RETRY_MAX_CONSECUTIVE_FAILURES"`

	// RetryMaxTotalFailures is the Retry.MaxTotalFailures
	// NewRetryFromConfig sets. Zero means unbounded.
	RetryMaxTotalFailures int `json:"retryMaxTotalFailures" yaml:"retryMaxTotalFailures" env:"RETRY_MAX_TOTAL_FAILURES"`

	// BusTelemetryEnabled selects, through coil.ConfigureTelemetry and
	// bus.ConfigureTelemetry, whether cloudevents are emitted from bus
	// sends and Pool lifecycle transitions.
	BusTelemetryEnabled bool `json:"busTelemetryEnabled" yaml:"busTelemetryEnabled" env:"BUS_TELEMETRY_ENABLED"`
}

// DefaultConfig returns the defaults LoadConfigFile starts from before
// applying the file and environment overrides.
func DefaultConfig() *Config {
	return &Config{
		PoolWorkers:   4,
		QueueCapacity: 64,
		QueuePolicy:   "raise",
	}
}

// LoadConfigFile reads a YAML or TOML config file, selecting the format
// by extension (.yaml/.yml or .toml), then applies environment
// overrides via ApplyEnvOverrides. It returns ErrConfigUnknownFormat for
// any other extension.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, ErrConfigUnknownFormat
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envOverrides lists each field's env tag alongside a setter, since
// golobby/cast converts a string into a typed value but Config's fields
// have no common interface to range over generically.
var envOverrides = []struct {
	key string
	set func(cfg *Config, raw string) error
}{
	{"POOL_WORKERS", func(cfg *Config, raw string) error {
		return castInto(raw, &cfg.PoolWorkers)
	}},
	{"QUEUE_CAPACITY", func(cfg *Config, raw string) error {
		return castInto(raw, &cfg.QueueCapacity)
	}},
	{"QUEUE_POLICY", func(cfg *Config, raw string) error {
		cfg.QueuePolicy = raw
		return nil
	}},
	{"RETRY_MAX_CONSECUTIVE_FAILURES", func(cfg *Config, raw string) error {
		return castInto(raw, &cfg.RetryMaxConsecutiveFailures)
	}},
	{"RETRY_MAX_TOTAL_FAILURES", func(cfg *Config, raw string) error {
		return castInto(raw, &cfg.RetryMaxTotalFailures)
	}},
	{"BUS_TELEMETRY_ENABLED", func(cfg *Config, raw string) error {
		return castInto(raw, &cfg.BusTelemetryEnabled)
	}},
}

// castInto converts raw to dst's pointed-to type via golobby/cast and
// stores it, a reflect-driven conversion for struct-tag-directed field
// assignment.
func castInto(raw string, dst any) error {
	v := reflect.ValueOf(dst).Elem()
	converted, err := cast.FromType(raw, v.Type())
	if err != nil {
		return err
	}
	v.Set(reflect.ValueOf(converted))
	return nil
}

// ApplyEnvOverrides mutates cfg in place with any COIL_-prefixed
// environment variable matching one of its env tags. cfg must be
// non-nil.
func ApplyEnvOverrides(cfg *Config) error {
	if cfg == nil {
		return ErrConfigNil
	}
	for _, o := range envOverrides {
		raw, ok := os.LookupEnv("COIL_" + o.key)
		if !ok {
			continue
		}
		if err := o.set(cfg, raw); err != nil {
			return err
		}
	}
	return nil
}
