// Package config loads the pkgdocs YAML configuration, applies per-domain
// defaults and validates the result.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	derrors "git.home.luguber.info/inful/pkgdocs/internal/errors"
)

// SandboxBackend selects how commands reach the build sandbox.
type SandboxBackend string

const (
	SandboxLXC    SandboxBackend = "lxc"
	SandboxDocker SandboxBackend = "docker"
)

// QueueBackend selects where the build queue and lock flag live.
type QueueBackend string

const (
	QueueSQLite QueueBackend = "sqlite"
	QueueRedis  QueueBackend = "redis"
)

// Config is the orchestrator configuration.
type Config struct {
	Version  string         `yaml:"version"`
	Paths    PathsConfig    `yaml:"paths"`
	Sandbox  SandboxConfig  `yaml:"sandbox"`
	Build    BuildConfig    `yaml:"build"`
	Storage  StorageConfig  `yaml:"storage"`
	Queue    QueueConfig    `yaml:"queue"`
	Registry RegistryConfig `yaml:"registry"`
	Notify   NotifyConfig   `yaml:"notify,omitempty"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty"`
}

// PathsConfig holds the local working directories.
type PathsConfig struct {
	// Sources receives extracted package sources (<sources>/<name>/<version>).
	Sources string `yaml:"sources"`
	// Destination receives copied documentation (<destination>/<name>/<version>).
	Destination string `yaml:"destination"`
	// TempRoot is scanned for stale workspaces; defaults to the system temp dir.
	TempRoot string `yaml:"temp_root,omitempty"`
}

// SandboxConfig describes the isolated build environment.
type SandboxConfig struct {
	Backend   SandboxBackend `yaml:"backend"`
	Container string         `yaml:"container"`
	User      string         `yaml:"user"`
	// ChrootPath is the host path of the sandbox root filesystem.
	ChrootPath string `yaml:"chroot_path"`
	// DocTool is the documentation build tool installed in the sandbox.
	DocTool string `yaml:"doc_tool,omitempty"`
	// Compiler is queried for its version banner.
	Compiler string `yaml:"compiler,omitempty"`
	// Timeout bounds a single sandbox command; empty or "0" means none.
	Timeout string `yaml:"timeout,omitempty"`
}

// BuildConfig holds skip policies.
type BuildConfig struct {
	SkipIfLogged bool `yaml:"skip_if_logged"`
	SkipIfExists bool `yaml:"skip_if_exists"`
}

// StorageConfig locates the release database and blob store.
type StorageConfig struct {
	Database string `yaml:"database"`
	Objects  string `yaml:"objects"`
}

// QueueConfig configures the durable backlog.
type QueueConfig struct {
	Backend       QueueBackend `yaml:"backend"`
	Database      string       `yaml:"database,omitempty"`
	RedisAddr     string       `yaml:"redis_addr,omitempty"`
	RedisPassword string       `yaml:"redis_password,omitempty"`
	RedisDB       int          `yaml:"redis_db,omitempty"`
	Namespace     string       `yaml:"namespace,omitempty"`
	MaxAttempts   int          `yaml:"max_attempts,omitempty"`
	// Interval is the idle sleep between queue checks.
	Interval string `yaml:"interval,omitempty"`
}

// RegistryConfig points at the package registry downloads.
type RegistryConfig struct {
	DownloadURL string      `yaml:"download_url"`
	Retry       RetryConfig `yaml:"retry,omitempty"`
}

// NotifyConfig enables build outcome events on NATS.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Listen         string `yaml:"listen,omitempty"`
	SampleInterval string `yaml:"sample_interval,omitempty"`
}

// Load reads, expands, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, derrors.ConfigNotFound(path)
	}

	// #nosec G304 - path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references first.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryConfig, derrors.SeverityFatal, "failed to parse config file")
	}
	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration populated only with defaults.
func Default() *Config {
	cfg := &Config{}
	_ = ApplyDefaults(cfg)
	return cfg
}

// SandboxTimeout returns the parsed sandbox timeout (zero when unset).
func (c *Config) SandboxTimeout() time.Duration {
	d, err := time.ParseDuration(c.Sandbox.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// QueueInterval returns the parsed idle interval.
func (c *Config) QueueInterval() time.Duration {
	d, err := time.ParseDuration(c.Queue.Interval)
	if err != nil || d <= 0 {
		return DefaultQueueInterval
	}
	return d
}

// MetricsSampleInterval returns the parsed queue-length sampling interval.
func (c *Config) MetricsSampleInterval() time.Duration {
	d, err := time.ParseDuration(c.Metrics.SampleInterval)
	if err != nil || d <= 0 {
		return DefaultSampleInterval
	}
	return d
}
