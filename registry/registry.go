package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aiponge/servicekit/config"
	"github.com/aiponge/servicekit/errors"
	"github.com/aiponge/servicekit/logger"
	"github.com/aiponge/servicekit/observability"
	"github.com/aiponge/servicekit/scheduler"
)

const (
	defaultHealthEndpoint = "/health"
	defaultWaitTimeout    = 30 * time.Second
	defaultPollInterval   = time.Second

	// probeJobPrefix names the per-instance probe scheduler,
	// "health-check-{service}".
	probeJobPrefix = "health-check-"

	// probeStopTimeout bounds how long Deregister and Shutdown wait for an
	// in-flight probe. Probes themselves are capped well below this.
	probeStopTimeout = 10 * time.Second
)

// HealthSummary counts registered instances by status.
type HealthSummary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`
	Unknown   int `json:"unknown"`
}

// Registry tracks backend service instances and drives one periodic health
// probe per instance. A single registry-wide lock guards all instance
// state; expected cardinality is tens of instances, not thousands.
type Registry struct {
	cfg        config.RegistryConfig
	schedulers *scheduler.Registry
	log        *logger.Logger
	metrics    *observability.Metrics

	mu        sync.RWMutex
	instances map[string]*ServiceInstance
	probes    map[string]*scheduler.Scheduler
}

// Option customizes a registry.
type Option func(*Registry)

// WithLogger replaces the default component logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithMetrics attaches an observability recorder.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// New creates a service registry. Probe schedulers are registered in
// scheds so they appear in scheduler health reports and stop with
// everything else; passing nil gives the registry a private directory.
func New(cfg config.RegistryConfig, scheds *scheduler.Registry, opts ...Option) *Registry {
	if cfg.HealthCheckIntervalMS <= 0 {
		cfg.HealthCheckIntervalMS = config.DefaultHealthCheckIntervalMS
	}
	if cfg.UnhealthyThresholdMS <= 0 {
		cfg.UnhealthyThresholdMS = config.DefaultUnhealthyThresholdMS
	}
	if cfg.DefaultHost == "" {
		cfg.DefaultHost = config.DefaultServiceHost
	}
	if scheds == nil {
		scheds = scheduler.NewRegistry()
	}

	r := &Registry{
		cfg:        cfg,
		schedulers: scheds,
		log:        logger.Get("registry"),
		instances:  make(map[string]*ServiceInstance),
		probes:     make(map[string]*scheduler.Scheduler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores an instance with status unknown and arms its probe
// scheduler. Re-registering a name replaces the instance object with
// fresh timestamps but never creates a second probe job.
func (r *Registry) Register(opts RegisterOptions) (*ServiceInstance, error) {
	if opts.Name == "" {
		return nil, errors.MissingField("name")
	}
	if opts.Port <= 0 {
		return nil, errors.InvalidInput("port", fmt.Sprintf("service %s: port must be positive", opts.Name))
	}
	checker, err := NewChecker(opts.Checker)
	if err != nil {
		return nil, errors.InvalidInput("checker", err.Error())
	}

	host := opts.Host
	if host == "" {
		host = r.cfg.DefaultHost
	}
	endpoint := opts.HealthEndpoint
	if endpoint == "" {
		endpoint = defaultHealthEndpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	now := time.Now()
	inst := &ServiceInstance{
		ID:             uuid.NewString(),
		Name:           opts.Name,
		Host:           host,
		Port:           opts.Port,
		Version:        opts.Version,
		HealthEndpoint: endpoint,
		Metadata:       copyMetadata(opts.Metadata),
		RegisteredAt:   now,
		LastHeartbeat:  now,
		Status:         StatusUnknown,
	}

	r.mu.Lock()
	_, replaced := r.instances[opts.Name]
	r.instances[opts.Name] = inst

	probe := r.probes[opts.Name]
	created := false
	if probe == nil {
		probe, err = r.newProbe(opts.Name, checker)
		if err != nil {
			delete(r.instances, opts.Name)
			r.mu.Unlock()
			return nil, err
		}
		r.probes[opts.Name] = probe
		created = true
	}
	r.mu.Unlock()

	if created {
		r.schedulers.Register(probe)
		if err := probe.Start(); err != nil {
			return nil, fmt.Errorf("start probe for %s: %w", opts.Name, err)
		}
	}

	r.log.Info("Service registered", logger.Fields(
		logger.FieldService, opts.Name,
		logger.FieldInstanceID, inst.ID,
		"host", host,
		"port", opts.Port,
		"replaced", replaced,
	))
	if !replaced {
		r.metrics.AddActiveInstances(context.Background(), 1)
	}
	return inst.clone(), nil
}

// Deregister stops the probe scheduler and removes the instance. Returns
// whether an instance existed under the name.
func (r *Registry) Deregister(name string) bool {
	r.mu.Lock()
	_, existed := r.instances[name]
	delete(r.instances, name)
	probe := r.probes[name]
	delete(r.probes, name)
	r.mu.Unlock()

	if probe != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), probeStopTimeout)
		if err := probe.Stop(stopCtx); err != nil {
			r.log.Warn("Probe scheduler did not stop cleanly", logger.Fields(
				logger.FieldService, name,
				logger.FieldError, err.Error(),
			))
		}
		cancel()
		r.schedulers.Unregister(probe.Key())
	}

	if existed {
		r.log.Info("Service deregistered", logger.Fields(
			logger.FieldService, name,
		))
		r.metrics.AddActiveInstances(context.Background(), -1)
	}
	return existed
}

// Discover returns a copy of the named instance. With HealthyOnly set,
// instances that are unknown or unhealthy are treated as absent.
func (r *Registry) Discover(name string, opts DiscoverOptions) (*ServiceInstance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[name]
	if !ok {
		return nil, false
	}
	if opts.HealthyOnly && inst.Status != StatusHealthy {
		return nil, false
	}
	return inst.clone(), true
}

// DiscoverAll returns copies of all registered instances, sorted by name.
func (r *Registry) DiscoverAll(opts DiscoverOptions) []*ServiceInstance {
	r.mu.RLock()
	out := make([]*ServiceInstance, 0, len(r.instances))
	for _, inst := range r.instances {
		if opts.HealthyOnly && inst.Status != StatusHealthy {
			continue
		}
		out = append(out, inst.clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ServiceURL returns the base URL of the named instance, failing fast
// with the known service names when the name is not registered.
func (r *Registry) ServiceURL(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[name]
	if !ok {
		return "", errors.ServiceNotFound(name, r.knownLocked())
	}
	return inst.URL(), nil
}

// ServicePort returns the port of the named instance.
func (r *Registry) ServicePort(name string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[name]
	if !ok {
		return 0, errors.ServiceNotFound(name, r.knownLocked())
	}
	return inst.Port, nil
}

// HasService reports whether a name is registered.
func (r *Registry) HasService(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.instances[name]
	return ok
}

// ListServices returns the registered service names, sorted.
func (r *Registry) ListServices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.knownLocked()
}

// Heartbeat records out-of-band evidence that an instance is alive,
// bypassing the probe cycle: lastHeartbeat moves to now and the status
// becomes healthy immediately.
func (r *Registry) Heartbeat(name string) error {
	r.mu.Lock()
	inst, ok := r.instances[name]
	if !ok {
		known := r.knownLocked()
		r.mu.Unlock()
		return errors.ServiceNotFound(name, known)
	}
	from := inst.Status
	inst.LastHeartbeat = time.Now()
	inst.Status = StatusHealthy
	r.mu.Unlock()

	if from != StatusHealthy {
		r.log.Info("Service became healthy", logger.Fields(
			logger.FieldService, name,
			"previous_status", string(from),
			"reason", "heartbeat",
		))
		r.metrics.RecordStatusTransition(context.Background(), name, string(from), string(StatusHealthy))
	}
	return nil
}

// WaitForService blocks until the named service is healthy, polling at
// PollInterval up to Timeout. Returns false on timeout or context
// cancellation. Only the calling goroutine is suspended.
func (r *Registry) WaitForService(ctx context.Context, name string, opts WaitOptions) bool {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultWaitTimeout
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		if _, ok := r.Discover(name, DiscoverOptions{HealthyOnly: true}); ok {
			return true
		}
		select {
		case <-waitCtx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// HealthSummary counts instances by status for health reporting.
func (r *Registry) HealthSummary() HealthSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summary := HealthSummary{Total: len(r.instances)}
	for _, inst := range r.instances {
		switch inst.Status {
		case StatusHealthy:
			summary.Healthy++
		case StatusUnhealthy:
			summary.Unhealthy++
		default:
			summary.Unknown++
		}
	}
	return summary
}

// Shutdown stops every probe scheduler and clears all registry state.
// Instances are removed before probes stop, so a probe completing during
// shutdown finds nothing to write to.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	probes := r.probes
	count := len(r.instances)
	r.instances = make(map[string]*ServiceInstance)
	r.probes = make(map[string]*scheduler.Scheduler)
	r.mu.Unlock()

	var errs []error
	for name, probe := range probes {
		stopCtx, cancel := context.WithTimeout(ctx, probeStopTimeout)
		if err := probe.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop probe for %s: %w", name, err))
		}
		cancel()
		r.schedulers.Unregister(probe.Key())
	}

	r.log.Info("Service registry shut down", logger.Fields(
		"instances", count,
	))
	if count > 0 {
		r.metrics.AddActiveInstances(ctx, -int64(count))
	}
	if len(errs) > 0 {
		return fmt.Errorf("registry shutdown errors: %v", errs)
	}
	return nil
}

// knownLocked returns the sorted service names. Callers hold r.mu.
func (r *Registry) knownLocked() []string {
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func copyMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
