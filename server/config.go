package server

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds HTTP server configuration. Timeouts are in seconds.
type Config struct {
	Host         string `yaml:"host" mapstructure:"host"`
	Port         int    `yaml:"port" mapstructure:"port"`
	ReadTimeout  int    `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout int    `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  int    `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// ApplyDefaults fills unset fields: port 8080, 15s read and write
// timeouts, 60s idle.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 15
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	for name, v := range map[string]int{
		"server.read_timeout":  c.ReadTimeout,
		"server.write_timeout": c.WriteTimeout,
		"server.idle_timeout":  c.IdleTimeout,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be non-negative (got: %d)", name, v)
		}
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) readTimeout() time.Duration  { return time.Duration(c.ReadTimeout) * time.Second }
func (c *Config) writeTimeout() time.Duration { return time.Duration(c.WriteTimeout) * time.Second }
func (c *Config) idleTimeout() time.Duration  { return time.Duration(c.IdleTimeout) * time.Second }
