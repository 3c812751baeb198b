package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aiponge/servicekit/errors"
	"github.com/aiponge/servicekit/logger"
)

// stopAllTimeout bounds how long StopAll waits on each scheduler.
const stopAllTimeout = 10 * time.Second

// Key builds the registry key for a scheduler, "serviceName:name".
func Key(serviceName, name string) string {
	return serviceName + ":" + name
}

// ShutdownHook runs after all schedulers have stopped during ShutdownAll.
type ShutdownHook func(ctx context.Context) error

// HealthReport aggregates the state of every registered scheduler.
type HealthReport struct {
	Healthy         bool    `json:"healthy"`
	Schedulers      []Info  `json:"schedulers"`
	TotalSchedulers int     `json:"total_schedulers"`
	RunningCount    int     `json:"running_count"`
	ErrorRate       float64 `json:"error_rate"`
}

// Registry is a directory of schedulers with deterministic ordering.
// Schedulers are started in registration order and stopped in reverse.
type Registry struct {
	mu      sync.RWMutex
	entries []*Scheduler
	lookup  map[string]*Scheduler
	hooks   []ShutdownHook
}

// NewRegistry creates an empty scheduler registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make([]*Scheduler, 0),
		lookup:  make(map[string]*Scheduler),
	}
}

// Register adds a scheduler under its "serviceName:name" key. A duplicate
// key is logged and ignored so a re-registered service never ends up with
// two jobs for the same work.
func (r *Registry) Register(s *Scheduler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := s.Key()
	if _, exists := r.lookup[key]; exists {
		logger.Warn("Scheduler already registered, ignoring", logger.Fields(
			logger.FieldScheduler, key,
		))
		return
	}

	r.entries = append(r.entries, s)
	r.lookup[key] = s

	logger.Debug("Scheduler registered", logger.Fields(
		logger.FieldScheduler, key,
	))
}

// Unregister removes a scheduler by key. The scheduler is not stopped;
// callers own its lifecycle. Returns false if the key is unknown.
func (r *Registry) Unregister(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.lookup[key]
	if !exists {
		return false
	}
	delete(r.lookup, key)
	for i, entry := range r.entries {
		if entry == s {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}

	logger.Debug("Scheduler unregistered", logger.Fields(
		logger.FieldScheduler, key,
	))
	return true
}

// Get returns the scheduler registered under the key, or nil.
func (r *Registry) Get(key string) *Scheduler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup[key]
}

// GetByName returns the first scheduler (in registration order) whose job
// name matches, or nil.
func (r *Registry) GetByName(name string) *Scheduler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.entries {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// All returns the registered schedulers in registration order.
func (r *Registry) All() []*Scheduler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Scheduler, len(r.entries))
	copy(out, r.entries)
	return out
}

// StartAll starts every registered scheduler in registration order.
func (r *Registry) StartAll() error {
	schedulers := r.All()

	logger.Info("Starting all schedulers", logger.Fields(
		"count", len(schedulers),
	))

	var errs []error
	for _, s := range schedulers {
		if err := s.Start(); err != nil {
			errs = append(errs, fmt.Errorf("failed to start %s: %w", s.Key(), err))
			logger.Error("Scheduler start failed", logger.Fields(
				logger.FieldScheduler, s.Key(),
				logger.FieldError, err.Error(),
			))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("scheduler start errors: %v", errs)
	}
	return nil
}

// StopAll stops every scheduler in reverse registration order, waiting up
// to ten seconds per scheduler for in-flight executions.
func (r *Registry) StopAll(ctx context.Context) error {
	schedulers := r.All()

	logger.Info("Stopping all schedulers", logger.Fields(
		"count", len(schedulers),
	))

	var errs []error
	for i := len(schedulers) - 1; i >= 0; i-- {
		s := schedulers[i]
		stopCtx, cancel := context.WithTimeout(ctx, stopAllTimeout)
		if err := s.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", s.Key(), err))
			logger.Error("Scheduler stop failed", logger.Fields(
				logger.FieldScheduler, s.Key(),
				logger.FieldError, err.Error(),
			))
		}
		cancel()
	}

	if len(errs) > 0 {
		return fmt.Errorf("scheduler stop errors: %v", errs)
	}
	return nil
}

// Trigger fires an immediate execution of the scheduler with the given
// job name. An unknown name returns a SchedulerNotFound error; a
// scheduler that is stopped or already executing keeps its counters
// untouched and returns a conflict error alongside the result.
func (r *Registry) Trigger(ctx context.Context, name string) (Result, error) {
	s := r.GetByName(name)
	if s == nil {
		return Result{}, errors.SchedulerNotFound(name)
	}

	res, state := s.trigger(ctx)
	switch state {
	case triggerBusy:
		return res, errors.AlreadyRunning(name)
	case triggerStopped:
		return res, errors.Conflict(fmt.Sprintf("scheduler %q is not running", name))
	default:
		return res, nil
	}
}

// HealthReport aggregates scheduler health. The report is healthy when
// every scheduler is below its failure threshold; the error rate is total
// errors over total runs across all schedulers.
func (r *Registry) HealthReport() HealthReport {
	schedulers := r.All()

	report := HealthReport{
		Healthy:         true,
		Schedulers:      make([]Info, 0, len(schedulers)),
		TotalSchedulers: len(schedulers),
	}

	var totalRuns, totalErrors uint64
	for _, s := range schedulers {
		info := s.Info()
		report.Schedulers = append(report.Schedulers, info)
		if !info.Healthy {
			report.Healthy = false
		}
		if info.Status != StatusStopped {
			report.RunningCount++
		}
		totalRuns += info.RunCount
		totalErrors += info.ErrorCount
	}
	if totalRuns > 0 {
		report.ErrorRate = float64(totalErrors) / float64(totalRuns)
	}
	return report
}

// OnShutdown registers a hook to run after StopAll during ShutdownAll.
// Hooks run in registration order.
func (r *Registry) OnShutdown(hook ShutdownHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// ShutdownAll stops every scheduler, then runs the shutdown hooks in
// registration order. A failing hook is logged and never aborts the
// sequence. Hooks are cleared afterwards so a second call is a no-op
// beyond stopping.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	var errs []error
	if err := r.StopAll(ctx); err != nil {
		errs = append(errs, err)
	}

	r.mu.Lock()
	hooks := r.hooks
	r.hooks = nil
	r.mu.Unlock()

	for i, hook := range hooks {
		if err := hook(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown hook %d: %w", i, err))
			logger.Error("Scheduler shutdown hook failed", logger.Fields(
				"hook", i,
				logger.FieldError, err.Error(),
			))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("scheduler shutdown errors: %v", errs)
	}
	return nil
}
