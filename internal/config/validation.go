package config

import (
	"fmt"
	"net/url"
	"time"

	derrors "git.home.luguber.info/inful/pkgdocs/internal/errors"
)

// ValidateConfig validates the complete configuration structure.
func ValidateConfig(cfg *Config) error {
	validator := newConfigurationValidator(cfg)
	return validator.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validatePaths(); err != nil {
		return err
	}
	if err := cv.validateSandbox(); err != nil {
		return err
	}
	if err := cv.validateQueue(); err != nil {
		return err
	}
	if err := cv.validateRegistry(); err != nil {
		return err
	}
	if err := cv.validateMetrics(); err != nil {
		return err
	}
	return nil
}

func (cv *configurationValidator) validatePaths() error {
	p := cv.config.Paths
	if p.Sources == p.Destination {
		return derrors.ValidationFailed("paths", "sources and destination must differ")
	}
	return nil
}

func (cv *configurationValidator) validateSandbox() error {
	s := cv.config.Sandbox
	switch s.Backend {
	case SandboxLXC, SandboxDocker:
	default:
		return derrors.ValidationFailed("sandbox.backend", fmt.Sprintf("unsupported backend %q", s.Backend))
	}
	if s.Container == "" {
		return derrors.ValidationFailed("sandbox.container", "must not be empty")
	}
	if s.User == "" {
		return derrors.ValidationFailed("sandbox.user", "must not be empty")
	}
	if s.Timeout != "" {
		if err := validateDuration(s.Timeout, true); err != nil {
			return derrors.ValidationFailed("sandbox.timeout", err.Error())
		}
	}
	return nil
}

func (cv *configurationValidator) validateQueue() error {
	q := cv.config.Queue
	switch q.Backend {
	case QueueSQLite:
		if q.Database == "" {
			return derrors.ValidationFailed("queue.database", "required for sqlite backend")
		}
	case QueueRedis:
		if q.RedisAddr == "" {
			return derrors.ValidationFailed("queue.redis_addr", "required for redis backend")
		}
	default:
		return derrors.ValidationFailed("queue.backend", fmt.Sprintf("unsupported backend %q", q.Backend))
	}
	if err := validateDuration(q.Interval, false); err != nil {
		return derrors.ValidationFailed("queue.interval", err.Error())
	}
	return nil
}

func (cv *configurationValidator) validateRegistry() error {
	r := cv.config.Registry
	u, err := url.Parse(r.DownloadURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return derrors.ValidationFailed("registry.download_url", "must be an absolute URL")
	}
	if err := validateDuration(r.Retry.InitialDelay, false); err != nil {
		return derrors.ValidationFailed("registry.retry.initial_delay", err.Error())
	}
	if err := validateDuration(r.Retry.MaxDelay, false); err != nil {
		return derrors.ValidationFailed("registry.retry.max_delay", err.Error())
	}
	return nil
}

func (cv *configurationValidator) validateMetrics() error {
	if err := validateDuration(cv.config.Metrics.SampleInterval, false); err != nil {
		return derrors.ValidationFailed("metrics.sample_interval", err.Error())
	}
	return nil
}

// validateDuration parses raw; zero is only accepted when allowZero is set.
func validateDuration(raw string, allowZero bool) error {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q", raw)
	}
	if d < 0 || (d == 0 && !allowZero) {
		return fmt.Errorf("duration %q must be positive", raw)
	}
	return nil
}
