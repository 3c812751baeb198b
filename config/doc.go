// Package config provides configuration loading and validation for the
// lifecycle subsystem.
//
// It uses Viper to load configuration from config.yml and .env files,
// binds environment variables over file values, and validates the result
// with struct tags.
//
// # Usage
//
//	cfg, err := config.Load("notification")
//
// Interval environment keys are integers in milliseconds:
//
//	REGISTRY_HEALTH_CHECK_INTERVAL=10000
//	REGISTRY_UNHEALTHY_THRESHOLD=30000
//	SHUTDOWN_TIMEOUT_MS=30000
//	SERVICE_HOST=localhost
package config
