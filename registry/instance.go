package registry

import (
	"fmt"
	"time"
)

// Status is the health state of a registered instance.
type Status string

const (
	// StatusUnknown means no probe has completed since registration.
	StatusUnknown Status = "unknown"
	// StatusHealthy means the last probe or heartbeat succeeded.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy means the instance has been silent past the
	// configured threshold.
	StatusUnhealthy Status = "unhealthy"
)

// ServiceInstance is one registered backend instance. The identity fields
// are immutable after registration; Status and LastHeartbeat are owned by
// the registry and only mutate under its lock. Callers always receive
// copies.
type ServiceInstance struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Host           string            `json:"host"`
	Port           int               `json:"port"`
	Version        string            `json:"version,omitempty"`
	HealthEndpoint string            `json:"health_endpoint"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	RegisteredAt   time.Time         `json:"registered_at"`
	LastHeartbeat  time.Time         `json:"last_heartbeat"`
	Status         Status            `json:"status"`
}

// URL returns the instance base URL, http://{host}:{port}.
func (si *ServiceInstance) URL() string {
	return fmt.Sprintf("http://%s:%d", si.Host, si.Port)
}

// HealthURL returns the absolute health probe URL.
func (si *ServiceInstance) HealthURL() string {
	return si.URL() + si.HealthEndpoint
}

// clone returns a copy safe to hand outside the registry lock.
func (si *ServiceInstance) clone() *ServiceInstance {
	out := *si
	if si.Metadata != nil {
		out.Metadata = make(map[string]string, len(si.Metadata))
		for k, v := range si.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// RegisterOptions describe an instance to register.
type RegisterOptions struct {
	// Name is the unique service name. Required.
	Name string
	// Host defaults to the registry's configured default host.
	Host string
	// Port is the instance port. Required.
	Port int
	// Version is advisory, e.g. "1.4.2".
	Version string
	// HealthEndpoint is the probe path. Defaults to "/health".
	HealthEndpoint string
	// Metadata is free-form instance metadata.
	Metadata map[string]string
	// Checker selects how the instance is probed. Defaults to CheckerHTTP.
	Checker CheckerKind
}

// DiscoverOptions filter discovery results.
type DiscoverOptions struct {
	// HealthyOnly restricts results to instances with StatusHealthy.
	HealthyOnly bool
}

// WaitOptions bound WaitForService.
type WaitOptions struct {
	// Timeout is the total wait budget. Default: 30s.
	Timeout time.Duration
	// PollInterval is the time between discovery attempts. Default: 1s.
	PollInterval time.Duration
}
