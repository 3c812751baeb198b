package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aiponge/servicekit/logger"
	"github.com/aiponge/servicekit/observability"
)

// Status represents the execution state of a scheduler.
type Status string

const (
	// StatusIdle means the scheduler is armed and waiting for the next tick.
	StatusIdle Status = "idle"
	// StatusRunning means an execution is in flight.
	StatusRunning Status = "running"
	// StatusStopped means the scheduler is not armed.
	StatusStopped Status = "stopped"
)

// failureThreshold is the number of consecutive failed executions after
// which a scheduler reports unhealthy.
const failureThreshold = 5

// Handler is the work a scheduler executes on each tick. The context
// carries the execution deadline; handlers should honor cancellation.
type Handler func(ctx context.Context) error

// Result is the outcome of a manual trigger.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Options configures a scheduler.
type Options struct {
	// Name identifies the job, e.g. "token-cleanup".
	Name string
	// ServiceName is the owning service.
	ServiceName string
	// Interval is the tick period. Required.
	Interval time.Duration
	// Enabled gates arming entirely; a disabled scheduler never starts.
	Enabled bool
	// RunOnStart fires one execution immediately when the scheduler starts.
	RunOnStart bool
	// MaxRetries is advisory metadata for operators; executions are never
	// re-invoked at this layer.
	MaxRetries int
	// Timeout bounds a single execution. Zero means 90% of Interval with
	// a one second floor.
	Timeout time.Duration
}

// effectiveTimeout resolves the per-execution budget.
func (o Options) effectiveTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	t := o.Interval * 9 / 10
	if t < time.Second {
		t = time.Second
	}
	return t
}

// Info is a point-in-time snapshot of a scheduler for reporting.
type Info struct {
	Name                string    `json:"name"`
	ServiceName         string    `json:"service_name"`
	Status              Status    `json:"status"`
	CronExpression      string    `json:"cron_expression"`
	IntervalMS          int64     `json:"interval_ms"`
	RunCount            uint64    `json:"run_count"`
	ErrorCount          uint64    `json:"error_count"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastRun             time.Time `json:"last_run"`
	LastError           string    `json:"last_error,omitempty"`
	Healthy             bool      `json:"healthy"`
}

// triggerState classifies why a trigger did or did not execute.
type triggerState int

const (
	triggerExecuted triggerState = iota
	triggerBusy
	triggerStopped
)

// Scheduler runs a handler on a fixed interval with single-flight
// execution: a tick or manual trigger that arrives while an execution is
// in flight is dropped, never queued.
type Scheduler struct {
	opts    Options
	handler Handler
	timeout time.Duration
	log     *logger.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	status   Status
	started  bool
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	inFlight sync.WaitGroup

	runCount            uint64
	errorCount          uint64
	consecutiveFailures int
	lastRun             time.Time
	lastError           string
}

// Option customizes a scheduler beyond its Options.
type Option func(*Scheduler)

// WithMetrics attaches an observability recorder to the scheduler.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithLogger replaces the default component logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// New creates a scheduler for the given handler.
func New(opts Options, handler Handler, sopts ...Option) (*Scheduler, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("scheduler name is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("scheduler %s: handler is required", opts.Name)
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("scheduler %s: interval must be positive", opts.Name)
	}

	s := &Scheduler{
		opts:    opts,
		handler: handler,
		timeout: opts.effectiveTimeout(),
		status:  StatusStopped,
		log: logger.Get("scheduler").WithFields(logger.Fields(
			logger.FieldScheduler, opts.Name,
			logger.FieldService, opts.ServiceName,
		)),
	}
	for _, opt := range sopts {
		opt(s)
	}
	return s, nil
}

// Name returns the job name.
func (s *Scheduler) Name() string { return s.opts.Name }

// ServiceName returns the owning service name.
func (s *Scheduler) ServiceName() string { return s.opts.ServiceName }

// Key returns the registry key, "serviceName:name".
func (s *Scheduler) Key() string { return Key(s.opts.ServiceName, s.opts.Name) }

// Status returns the current execution state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start arms the ticker. Disabled schedulers do not arm, and starting an
// already-armed scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		s.log.Debug("Scheduler already started")
		return nil
	}
	if !s.opts.Enabled {
		s.mu.Unlock()
		s.log.Info("Scheduler disabled, not starting")
		return nil
	}
	s.started = true
	s.status = StatusIdle
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	s.log.Info("Scheduler started", logger.Fields(
		"interval_ms", s.opts.Interval.Milliseconds(),
		"run_on_start", s.opts.RunOnStart,
	))

	go s.run(stopCh, doneCh)
	return nil
}

// run is the ticker loop. Executions happen in this goroutine, so the
// loop only exits after an in-flight tick execution has finished.
func (s *Scheduler) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	if s.opts.RunOnStart {
		s.execute(context.Background())
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.execute(context.Background())
		}
	}
}

// Stop disarms the ticker and waits for any in-flight execution to
// finish. The context bounds the wait. Stopping a scheduler that is not
// started is a no-op.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	select {
	case <-doneCh:
	case <-ctx.Done():
		return fmt.Errorf("scheduler %s: stop: %w", s.opts.Name, ctx.Err())
	}

	// Cover manual triggers still in flight in caller goroutines.
	settled := make(chan struct{})
	go func() {
		s.inFlight.Wait()
		close(settled)
	}()
	select {
	case <-settled:
	case <-ctx.Done():
		return fmt.Errorf("scheduler %s: stop: %w", s.opts.Name, ctx.Err())
	}

	s.mu.Lock()
	s.status = StatusStopped
	s.mu.Unlock()

	s.log.Info("Scheduler stopped")
	return nil
}

// TriggerNow executes the handler immediately in the caller's goroutine.
// If an execution is already in flight the trigger is dropped and the
// result reports failure without touching the run counters.
func (s *Scheduler) TriggerNow(ctx context.Context) Result {
	res, _ := s.trigger(ctx)
	return res
}

// trigger runs one execution and reports why it did or did not run.
func (s *Scheduler) trigger(ctx context.Context) (Result, triggerState) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return Result{Success: false, Message: fmt.Sprintf("scheduler %s is not running", s.opts.Name)}, triggerStopped
	}
	if s.running {
		s.mu.Unlock()
		s.log.Debug("Execution already in progress, trigger dropped")
		return Result{Success: false, Message: fmt.Sprintf("scheduler %s is already executing", s.opts.Name)}, triggerBusy
	}
	s.running = true
	s.status = StatusRunning
	s.inFlight.Add(1)
	s.mu.Unlock()

	err := s.runOnce(ctx)
	if err != nil {
		return Result{Success: false, Message: err.Error()}, triggerExecuted
	}
	return Result{Success: true, Message: "completed"}, triggerExecuted
}

// execute is the tick path: same single-flight gate as trigger, without a
// result. Drops are logged at debug level.
func (s *Scheduler) execute(ctx context.Context) {
	s.mu.Lock()
	if !s.started || s.running {
		busy := s.running
		s.mu.Unlock()
		if busy {
			s.log.Debug("Execution already in progress, tick skipped")
		}
		return
	}
	s.running = true
	s.status = StatusRunning
	s.inFlight.Add(1)
	s.mu.Unlock()

	_ = s.runOnce(ctx)
}

// runOnce runs the handler under the execution budget and settles the
// counters. The single-flight latch must be held on entry.
func (s *Scheduler) runOnce(ctx context.Context) error {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.invoke(runCtx)
	if err == nil && runCtx.Err() != nil {
		// Handler returned after the budget without honoring cancellation.
		err = fmt.Errorf("execution exceeded %s budget", s.timeout)
	}
	cancel()
	elapsed := time.Since(start)

	s.mu.Lock()
	s.runCount++
	s.lastRun = start
	if err != nil {
		s.errorCount++
		s.consecutiveFailures++
		s.lastError = err.Error()
	} else {
		s.consecutiveFailures = 0
	}
	s.running = false
	s.inFlight.Done()
	if s.started {
		s.status = StatusIdle
	} else {
		s.status = StatusStopped
	}
	s.mu.Unlock()

	s.metrics.RecordSchedulerRun(ctx, s.opts.ServiceName, s.opts.Name, elapsed, err == nil)

	if err != nil {
		s.log.Error("Scheduled run failed", logger.MergeWithDuration(logger.ErrorFields("run", err), elapsed))
		return err
	}
	s.log.Debug("Scheduled run completed", logger.DurationFields("run", elapsed))
	return nil
}

// invoke calls the handler, converting a panic into an error so one bad
// run never takes down the loop.
func (s *Scheduler) invoke(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return s.handler(ctx)
}

// IsHealthy reports whether the scheduler is below the consecutive
// failure threshold.
func (s *Scheduler) IsHealthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveFailures < failureThreshold
}

// Info returns a snapshot for reporting.
func (s *Scheduler) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		Name:                s.opts.Name,
		ServiceName:         s.opts.ServiceName,
		Status:              s.status,
		CronExpression:      CronExpression(s.opts.Interval),
		IntervalMS:          s.opts.Interval.Milliseconds(),
		RunCount:            s.runCount,
		ErrorCount:          s.errorCount,
		ConsecutiveFailures: s.consecutiveFailures,
		LastRun:             s.lastRun,
		LastError:           s.lastError,
		Healthy:             s.consecutiveFailures < failureThreshold,
	}
}
