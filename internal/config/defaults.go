package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultQueueInterval  = 60 * time.Second
	DefaultSampleInterval = 15 * time.Second
	DefaultMaxAttempts    = 5
	DefaultDocTool        = "cratesfyi"
	DefaultCompiler       = "rustc"
	DefaultDownloadURL    = "https://static.crates.io/crates"
	DefaultNotifySubject  = "pkgdocs.builds"
	DefaultQueueNamespace = "pkgdocs"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// defaultAppliers run in order; later domains may rely on earlier ones.
var defaultAppliers = []DefaultApplier{
	&PathsDefaultApplier{},
	&SandboxDefaultApplier{},
	&StorageDefaultApplier{},
	&QueueDefaultApplier{},
	&RegistryDefaultApplier{},
	&NotifyDefaultApplier{},
	&MetricsDefaultApplier{},
}

// ApplyDefaults fills every unset field with its default.
func ApplyDefaults(cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = "1"
	}
	for _, applier := range defaultAppliers {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// PathsDefaultApplier handles local directory defaults.
type PathsDefaultApplier struct{}

func (p *PathsDefaultApplier) Domain() string { return "paths" }

func (p *PathsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Paths.Sources == "" {
		cfg.Paths.Sources = filepath.Join("data", "sources")
	}
	if cfg.Paths.Destination == "" {
		cfg.Paths.Destination = filepath.Join("data", "docs")
	}
	if cfg.Paths.TempRoot == "" {
		cfg.Paths.TempRoot = os.TempDir()
	}
	return nil
}

// SandboxDefaultApplier handles sandbox defaults.
type SandboxDefaultApplier struct{}

func (s *SandboxDefaultApplier) Domain() string { return "sandbox" }

func (s *SandboxDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Sandbox.Backend == "" {
		cfg.Sandbox.Backend = SandboxLXC
	}
	if cfg.Sandbox.Container == "" {
		cfg.Sandbox.Container = "cratesfyi-container"
	}
	if cfg.Sandbox.User == "" {
		cfg.Sandbox.User = "cratesfyi"
	}
	if cfg.Sandbox.ChrootPath == "" {
		cfg.Sandbox.ChrootPath = filepath.Join("/var/lib/lxc", cfg.Sandbox.Container, "rootfs")
	}
	if cfg.Sandbox.DocTool == "" {
		cfg.Sandbox.DocTool = DefaultDocTool
	}
	if cfg.Sandbox.Compiler == "" {
		cfg.Sandbox.Compiler = DefaultCompiler
	}
	return nil
}

// StorageDefaultApplier handles database and blob store defaults.
type StorageDefaultApplier struct{}

func (s *StorageDefaultApplier) Domain() string { return "storage" }

func (s *StorageDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Storage.Database == "" {
		cfg.Storage.Database = filepath.Join("data", "pkgdocs.db")
	}
	if cfg.Storage.Objects == "" {
		cfg.Storage.Objects = filepath.Join("data", "objects")
	}
	return nil
}

// QueueDefaultApplier handles queue defaults.
type QueueDefaultApplier struct{}

func (q *QueueDefaultApplier) Domain() string { return "queue" }

func (q *QueueDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Queue.Backend == "" {
		cfg.Queue.Backend = QueueSQLite
	}
	if cfg.Queue.Database == "" {
		cfg.Queue.Database = cfg.Storage.Database
	}
	if cfg.Queue.RedisAddr == "" {
		cfg.Queue.RedisAddr = "localhost:6379"
	}
	if cfg.Queue.Namespace == "" {
		cfg.Queue.Namespace = DefaultQueueNamespace
	}
	if cfg.Queue.MaxAttempts <= 0 {
		cfg.Queue.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Queue.Interval == "" {
		cfg.Queue.Interval = DefaultQueueInterval.String()
	}
	return nil
}

// RegistryDefaultApplier handles registry download defaults.
type RegistryDefaultApplier struct{}

func (r *RegistryDefaultApplier) Domain() string { return "registry" }

func (r *RegistryDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Registry.DownloadURL == "" {
		cfg.Registry.DownloadURL = DefaultDownloadURL
	}
	rc := &cfg.Registry.Retry
	if mode := NormalizeRetryBackoff(string(rc.Backoff)); mode != "" {
		rc.Backoff = mode
	} else {
		rc.Backoff = RetryBackoffLinear
	}
	if rc.InitialDelay == "" {
		rc.InitialDelay = "1s"
	}
	if rc.MaxDelay == "" {
		rc.MaxDelay = "30s"
	}
	if rc.MaxRetries <= 0 {
		rc.MaxRetries = 2
	}
	return nil
}

// NotifyDefaultApplier handles NATS defaults.
type NotifyDefaultApplier struct{}

func (n *NotifyDefaultApplier) Domain() string { return "notify" }

func (n *NotifyDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
	return nil
}

// MetricsDefaultApplier handles metrics defaults. An empty listen address
// keeps the endpoint disabled.
type MetricsDefaultApplier struct{}

func (m *MetricsDefaultApplier) Domain() string { return "metrics" }

func (m *MetricsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Metrics.SampleInterval == "" {
		cfg.Metrics.SampleInterval = DefaultSampleInterval.String()
	}
	return nil
}
