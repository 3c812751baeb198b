package shutdown

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aiponge/servicekit/config"
	"github.com/aiponge/servicekit/errors"
	"github.com/aiponge/servicekit/logger"
)

// Phase is an ordered bucket of shutdown hooks. All hooks in one phase
// complete before any hook in the next phase starts.
type Phase string

const (
	// PhaseDrain runs first, while the listener is already closed. Hooks
	// here await in-flight requests, e.g. http.Server.Shutdown.
	PhaseDrain Phase = "drain"
	// PhaseSchedulers stops background jobs.
	PhaseSchedulers Phase = "schedulers"
	// PhaseQueues flushes or closes work queues.
	PhaseQueues Phase = "queues"
	// PhaseConnections closes outbound connections and pools.
	PhaseConnections Phase = "connections"
	// PhaseDefault runs after every other phase.
	PhaseDefault Phase = "default"
)

// phaseOrder is the total order phases execute in.
var phaseOrder = []Phase{PhaseDrain, PhaseSchedulers, PhaseQueues, PhaseConnections, PhaseDefault}

// State is the orchestrator lifecycle state.
type State string

const (
	// StateRunning means no shutdown has been triggered yet.
	StateRunning State = "running"
	// StateShuttingDown means the sequence is executing.
	StateShuttingDown State = "shutting_down"
	// StateExited means the sequence completed. With the default exit
	// function the process is gone before this is observable.
	StateExited State = "exited"
)

// Hook is one piece of cleanup work. The context carries the remaining
// shutdown budget; hooks should honor cancellation.
type Hook func(ctx context.Context) error

type hookEntry struct {
	label string
	fn    Hook
}

// Orchestrator listens for termination signals and runs registered
// shutdown hooks in a fixed phase order, then exits the process. The
// first trigger wins; later signals and Trigger calls are no-ops.
type Orchestrator struct {
	log  *logger.Logger
	exit func(code int)

	mu       sync.Mutex
	state    State
	timeout  time.Duration
	listener net.Listener
	phased   map[Phase][]hookEntry
	plain    []hookEntry
	armed    bool

	sigCh chan os.Signal
	done  chan struct{}
}

// Option customizes an orchestrator.
type Option func(*Orchestrator)

// WithLogger replaces the default component logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithExit replaces os.Exit so tests can observe exit codes.
func WithExit(fn func(code int)) Option {
	return func(o *Orchestrator) { o.exit = fn }
}

// New creates an orchestrator in the running state. A zero timeout in
// cfg falls back to the default hard deadline.
func New(cfg config.ShutdownConfig, opts ...Option) *Orchestrator {
	if cfg.TimeoutMS <= 0 {
		cfg.TimeoutMS = config.DefaultShutdownTimeoutMS
	}

	o := &Orchestrator{
		log:     logger.Get("shutdown"),
		exit:    os.Exit,
		state:   StateRunning,
		timeout: cfg.Timeout(),
		phased:  make(map[Phase][]hookEntry),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// RegisterHook adds a plain hook. Plain hooks run after every phase,
// in registration order. The optional label names the hook in logs.
func (o *Orchestrator) RegisterHook(fn Hook, label ...string) {
	o.mu.Lock()
	name := pickLabel(label, fmt.Sprintf("hook-%d", len(o.plain)+1))
	if o.state != StateRunning {
		o.mu.Unlock()
		o.log.Warn("Hook registered during shutdown, it will not run", logger.Fields(
			"label", name,
		))
		return
	}
	o.plain = append(o.plain, hookEntry{label: name, fn: fn})
	o.mu.Unlock()
}

// RegisterPhasedHook adds a hook to a phase. Hooks within a phase run
// sequentially in registration order. An unknown phase folds into
// PhaseDefault.
func (o *Orchestrator) RegisterPhasedHook(phase Phase, fn Hook, label ...string) {
	if !knownPhase(phase) {
		phase = PhaseDefault
	}

	o.mu.Lock()
	name := pickLabel(label, fmt.Sprintf("%s-hook-%d", phase, len(o.phased[phase])+1))
	if o.state != StateRunning {
		o.mu.Unlock()
		o.log.Warn("Hook registered during shutdown, it will not run", logger.Fields(
			logger.FieldPhase, string(phase),
			"label", name,
		))
		return
	}
	o.phased[phase] = append(o.phased[phase], hookEntry{label: name, fn: fn})
	o.mu.Unlock()
}

// Setup arms signal handling for SIGINT and SIGTERM and records the
// listener to close when shutdown starts. listener may be nil; a
// positive timeout overrides the configured hard deadline. Safe to call
// once; the signal watcher survives for the life of the process.
func (o *Orchestrator) Setup(listener net.Listener, timeout time.Duration) {
	o.mu.Lock()
	o.listener = listener
	if timeout > 0 {
		o.timeout = timeout
	}
	arm := !o.armed
	o.armed = true
	deadline := o.timeout
	o.mu.Unlock()

	if !arm {
		return
	}

	o.sigCh = make(chan os.Signal, 2)
	signal.Notify(o.sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for sig := range o.sigCh {
			o.log.Info("Received termination signal", logger.Fields(
				"signal", sig.String(),
			))
			go o.run(fmt.Sprintf("signal %s", sig))
		}
	}()

	o.log.Info("Graceful shutdown armed", logger.Fields(
		"timeout_ms", deadline.Milliseconds(),
		"listener", listener != nil,
	))
}

// Trigger starts the shutdown sequence programmatically, for fatal
// error paths and tests. With the default exit function this call does
// not return. A second trigger is a no-op.
func (o *Orchestrator) Trigger(reason string) {
	o.run(reason)
}

// Wait blocks until the shutdown sequence has completed. With the
// default exit function the process exits first, so Wait effectively
// blocks for the remaining life of the process.
func (o *Orchestrator) Wait() {
	<-o.done
}

// run executes the full sequence: hard deadline timer, listener close,
// phased hooks in order, plain hooks, exit 0. A hook failure is logged
// and skipped past; a fault in the sequence itself exits 1.
func (o *Orchestrator) run(reason string) {
	o.mu.Lock()
	if o.state != StateRunning {
		o.mu.Unlock()
		o.log.Info("Shutdown already in progress, ignoring trigger", logger.Fields(
			logger.FieldReason, reason,
		))
		return
	}
	o.state = StateShuttingDown
	timeout := o.timeout
	listener := o.listener
	phased := o.phased
	plain := o.plain
	o.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Shutdown sequence failed", logger.Fields(
				logger.FieldError, fmt.Sprint(r),
			))
			o.exit(1)
		}
	}()

	o.log.Info("Graceful shutdown starting", logger.Fields(
		logger.FieldReason, reason,
		"timeout_ms", timeout.Milliseconds(),
	))
	start := time.Now()

	// Hard deadline. Fires on its own goroutine, so a hook that never
	// returns cannot outlive the budget.
	timer := time.AfterFunc(timeout, func() {
		err := errors.ShutdownTimeout(timeout)
		o.log.Error(err.Message, logger.Fields(
			"timeout_ms", timeout.Milliseconds(),
		))
		o.exit(1)
	})
	defer timer.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting new connections first. Draining what is already
	// in flight is the drain phase's job.
	if listener != nil {
		if err := listener.Close(); err != nil {
			o.log.Warn("Listener close failed", logger.Fields(
				logger.FieldError, err.Error(),
			))
		} else {
			o.log.Info("Listener closed, no longer accepting connections")
		}
	}

	for _, phase := range phaseOrder {
		hooks := phased[phase]
		if len(hooks) == 0 {
			continue
		}
		o.log.Info("Running shutdown phase", logger.Fields(
			logger.FieldPhase, string(phase),
			"hooks", len(hooks),
		))
		for _, h := range hooks {
			o.runHook(ctx, phase, h)
		}
	}

	for _, h := range plain {
		o.runHook(ctx, "", h)
	}

	o.mu.Lock()
	o.state = StateExited
	o.mu.Unlock()

	o.log.Info("Graceful shutdown complete", logger.Fields(
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	o.exit(0)
	close(o.done)
}

// runHook executes one hook, containing failures and panics so the
// rest of the sequence still runs.
func (o *Orchestrator) runHook(ctx context.Context, phase Phase, h hookEntry) {
	fields := logger.Fields("label", h.label)
	if phase != "" {
		fields[logger.FieldPhase] = string(phase)
	}

	defer func() {
		if r := recover(); r != nil {
			fields[logger.FieldError] = fmt.Sprint(r)
			o.log.Error("Shutdown hook panicked", fields)
		}
	}()

	start := time.Now()
	if err := h.fn(ctx); err != nil {
		o.log.Error("Shutdown hook failed", logger.MergeWithError(fields, err))
		return
	}
	o.log.Debug("Shutdown hook completed", logger.MergeWithDuration(fields, time.Since(start)))
}

func knownPhase(p Phase) bool {
	for _, known := range phaseOrder {
		if p == known {
			return true
		}
	}
	return false
}

func pickLabel(label []string, fallback string) string {
	if len(label) > 0 && label[0] != "" {
		return label[0]
	}
	return fallback
}
