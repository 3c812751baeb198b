package config

import (
	"fmt"
	"os"
	"time"

	"github.com/aiponge/servicekit/logger"
)

// Environment variable keys recognized directly by Load, in addition to the
// automatically bound nested variants. Interval values are milliseconds.
const (
	EnvHealthCheckInterval = "REGISTRY_HEALTH_CHECK_INTERVAL"
	EnvUnhealthyThreshold  = "REGISTRY_UNHEALTHY_THRESHOLD"
	EnvShutdownTimeout     = "SHUTDOWN_TIMEOUT_MS"
	EnvServiceHost         = "SERVICE_HOST"
)

// Defaults applied when neither file nor environment provides a value.
const (
	DefaultHealthCheckIntervalMS = 10000
	DefaultUnhealthyThresholdMS  = 30000
	DefaultShutdownTimeoutMS     = 30000
	DefaultServiceHost           = "localhost"
)

// ServiceConfig contains the essential configuration fields every service
// needs. Projects extend this by embedding it in their own config structs.
//
// Example:
//
//	type MyConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Queue queue.Config `yaml:"queue" mapstructure:"queue"`
//	}
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string        `yaml:"environment" mapstructure:"environment" validate:"omitempty,oneof=development staging production"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// GetServiceConfig returns the base ServiceConfig.
// When embedded in a larger config struct, this method is promoted
// so the embedding struct automatically satisfies the Config interface.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// RegistryConfig controls health probing of registered service instances.
// The interval fields are milliseconds to match the environment keys.
type RegistryConfig struct {
	HealthCheckIntervalMS int64  `yaml:"health_check_interval" mapstructure:"health_check_interval" validate:"gte=0"`
	UnhealthyThresholdMS  int64  `yaml:"unhealthy_threshold" mapstructure:"unhealthy_threshold" validate:"gte=0"`
	DefaultHost           string `yaml:"default_host" mapstructure:"default_host"`
}

// HealthCheckInterval returns the probe interval as a duration.
func (c *RegistryConfig) HealthCheckInterval() time.Duration {
	return time.Duration(c.HealthCheckIntervalMS) * time.Millisecond
}

// UnhealthyThreshold returns the heartbeat-silence threshold as a duration.
func (c *RegistryConfig) UnhealthyThreshold() time.Duration {
	return time.Duration(c.UnhealthyThresholdMS) * time.Millisecond
}

// ShutdownConfig controls graceful shutdown behavior.
type ShutdownConfig struct {
	TimeoutMS int64 `yaml:"timeout_ms" mapstructure:"timeout_ms" validate:"gte=0"`
}

// Timeout returns the hard shutdown deadline as a duration.
func (c *ShutdownConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Config is the full lifecycle subsystem configuration. Hosting services
// load it standalone via Load or embed it in their own config struct.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Shutdown ShutdownConfig `yaml:"shutdown" mapstructure:"shutdown"`
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()

	if c.Registry.HealthCheckIntervalMS == 0 {
		c.Registry.HealthCheckIntervalMS = DefaultHealthCheckIntervalMS
	}
	if c.Registry.UnhealthyThresholdMS == 0 {
		c.Registry.UnhealthyThresholdMS = DefaultUnhealthyThresholdMS
	}
	if c.Registry.DefaultHost == "" {
		c.Registry.DefaultHost = DefaultServiceHost
	}
	if c.Shutdown.TimeoutMS == 0 {
		c.Shutdown.TimeoutMS = DefaultShutdownTimeoutMS
	}
}

// Validate checks the configuration using struct tags plus the logging
// section's own validation.
func (c *Config) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

// Load loads the lifecycle configuration for a service from config.yml,
// .env files and the environment, applies defaults, and validates the
// result. The service name fills Config.Name when no file provides one.
func Load(serviceName string, opts ...LoaderOption) (*Config, error) {
	cfg := &Config{}
	if err := LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}

	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	// SERVICE_HOST has no nested variant, bind it explicitly.
	if cfg.Registry.DefaultHost == "" {
		cfg.Registry.DefaultHost = os.Getenv(EnvServiceHost)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
