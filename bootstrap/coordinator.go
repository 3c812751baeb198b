package bootstrap

import (
	"fmt"
	"net"

	"github.com/aiponge/servicekit/config"
	"github.com/aiponge/servicekit/logger"
	"github.com/aiponge/servicekit/observability"
	"github.com/aiponge/servicekit/registry"
	"github.com/aiponge/servicekit/scheduler"
	"github.com/aiponge/servicekit/shutdown"
	"github.com/aiponge/servicekit/version"
)

// Coordinator owns the lifecycle subsystem wiring: logger, metrics
// recorder, scheduler registry, service registry, and the shutdown
// orchestrator. Construction wires the shutdown hooks once, explicitly,
// instead of hiding them behind registration side effects:
//
//	schedulers phase   -> scheduler.Registry.ShutdownAll
//	connections phase  -> registry.Registry.Shutdown
type Coordinator struct {
	cfg        *config.Config
	log        *logger.Logger
	metrics    *observability.Metrics
	schedulers *scheduler.Registry
	services   *registry.Registry
	orch       *shutdown.Orchestrator
}

// Option configures the Coordinator during creation.
type Option func(*coordOptions)

type coordOptions struct {
	logger  *logger.Logger
	metrics *observability.Metrics
	exit    func(code int)
}

func resolveOptions(opts []Option) *coordOptions {
	o := &coordOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger. If not set, the global logger is
// initialized from the config's Logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *coordOptions) { o.logger = l }
}

// WithMetrics sets a custom metrics recorder. If not set, instruments
// are created on the global meter.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *coordOptions) { o.metrics = m }
}

// WithExit replaces os.Exit on the shutdown orchestrator so tests can
// observe exit codes.
func WithExit(fn func(code int)) Option {
	return func(o *coordOptions) { o.exit = fn }
}

// New builds a fully wired coordinator from the given configuration.
// It applies defaults, validates, initializes logging, and connects the
// registries to the shutdown orchestrator.
func New(cfg *config.Config, opts ...Option) (*Coordinator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := resolveOptions(opts)

	var log *logger.Logger
	if o.logger != nil {
		log = o.logger
	} else {
		logger.Init(&cfg.Logging)
		log = logger.GetGlobalLogger()
	}
	logger.RegisterDefaults("bootstrap", "registry", "scheduler", "shutdown", "server")

	metrics := o.metrics
	if metrics == nil {
		m, err := observability.NewMetrics(observability.Meter("servicekit"))
		if err != nil {
			return nil, fmt.Errorf("creating metrics: %w", err)
		}
		metrics = m
	}

	schedulers := scheduler.NewRegistry()
	services := registry.New(cfg.Registry, schedulers, registry.WithMetrics(metrics))

	orchOpts := []shutdown.Option{}
	if o.exit != nil {
		orchOpts = append(orchOpts, shutdown.WithExit(o.exit))
	}
	orch := shutdown.New(cfg.Shutdown, orchOpts...)

	orch.RegisterPhasedHook(shutdown.PhaseSchedulers, schedulers.ShutdownAll, "scheduler-registry")
	orch.RegisterPhasedHook(shutdown.PhaseConnections, services.Shutdown, "service-registry")

	return &Coordinator{
		cfg:        cfg,
		log:        log.WithComponent("bootstrap"),
		metrics:    metrics,
		schedulers: schedulers,
		services:   services,
		orch:       orch,
	}, nil
}

// Config returns the validated configuration.
func (c *Coordinator) Config() *config.Config { return c.cfg }

// Logger returns the coordinator's logger.
func (c *Coordinator) Logger() *logger.Logger { return c.log }

// Metrics returns the wired metrics recorder.
func (c *Coordinator) Metrics() *observability.Metrics { return c.metrics }

// Schedulers returns the scheduler registry.
func (c *Coordinator) Schedulers() *scheduler.Registry { return c.schedulers }

// Services returns the service registry.
func (c *Coordinator) Services() *registry.Registry { return c.services }

// Orchestrator returns the shutdown orchestrator, for registering
// additional hooks or triggering shutdown programmatically.
func (c *Coordinator) Orchestrator() *shutdown.Orchestrator { return c.orch }

// Run arms shutdown handling, starts every registered scheduler, and
// blocks until the shutdown sequence completes. The listener may be
// nil when the hosting process owns no socket.
func (c *Coordinator) Run(listener net.Listener) error {
	c.orch.Setup(listener, 0)

	if err := c.schedulers.StartAll(); err != nil {
		return fmt.Errorf("starting schedulers: %w", err)
	}

	c.log.Info("Lifecycle coordinator running", logger.Fields(
		logger.FieldService, c.cfg.Name,
		"version", version.GetShortVersion(),
		"schedulers", len(c.schedulers.All()),
	))

	c.orch.Wait()
	return nil
}
