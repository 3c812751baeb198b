package registry

import (
	"context"
	"net"
	"time"

	"github.com/aiponge/servicekit/logger"
	"github.com/aiponge/servicekit/scheduler"
)

// addressDiagnosticTimeout caps the best-effort reverse lookup that can
// follow a successful probe.
const addressDiagnosticTimeout = time.Second

// newProbe builds the probe scheduler for a service name. The handler
// resolves the current instance at every tick, so a re-registered
// instance is probed rather than a stale snapshot.
func (r *Registry) newProbe(name string, checker Checker) (*scheduler.Scheduler, error) {
	return scheduler.New(scheduler.Options{
		Name:        probeJobPrefix + name,
		ServiceName: name,
		Interval:    r.cfg.HealthCheckInterval(),
		Enabled:     true,
	}, r.probeHandler(name, checker),
		scheduler.WithMetrics(r.metrics),
	)
}

// probeHandler returns the scheduler handler that runs one probe. The
// probe error is returned so failures land in the scheduler's counters.
func (r *Registry) probeHandler(name string, checker Checker) scheduler.Handler {
	return func(ctx context.Context) error {
		r.mu.RLock()
		inst := r.instances[name]
		r.mu.RUnlock()
		if inst == nil {
			// Deregistered after the tick fired.
			return nil
		}

		start := time.Now()
		err := checker.Check(ctx, inst)
		r.metrics.RecordProbe(ctx, name, time.Since(start), err == nil)

		r.applyProbeResult(ctx, name, inst, err)
		if err == nil {
			r.diagnoseAddress(ctx, inst)
		}
		return err
	}
}

// diagnoseAddress logs what a reachable instance's address resolves to.
// Diagnostic only: it runs after the probe result is applied and never
// touches status. Host is immutable, so no lock is held here.
func (r *Registry) diagnoseAddress(ctx context.Context, inst *ServiceInstance) {
	ip := net.ParseIP(inst.Host)
	if ip == nil {
		r.log.Debug("Probe target is a hostname", logger.Fields(
			logger.FieldService, inst.Name,
			"host", inst.Host,
		))
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, addressDiagnosticTimeout)
	defer cancel()
	names, err := net.DefaultResolver.LookupAddr(lookupCtx, inst.Host)
	if err != nil || len(names) == 0 {
		return
	}
	r.log.Debug("Probe target reverse-resolves", logger.Fields(
		logger.FieldService, inst.Name,
		"host", inst.Host,
		"resolved_names", names,
	))
}

// applyProbeResult drives the status state machine. Success always
// refreshes the heartbeat; failure flips to unhealthy only once the
// instance has been silent past the threshold, never on the first miss.
// The write re-validates that the probed instance is still the
// registered one, so a probe completing after Deregister or re-register
// cannot resurrect removed state.
func (r *Registry) applyProbeResult(ctx context.Context, name string, probed *ServiceInstance, probeErr error) {
	now := time.Now()

	r.mu.Lock()
	cur := r.instances[name]
	if cur == nil || cur != probed {
		r.mu.Unlock()
		return
	}

	var from, to Status
	var silence time.Duration
	if probeErr == nil {
		cur.LastHeartbeat = now
		if cur.Status != StatusHealthy {
			from, to = cur.Status, StatusHealthy
			cur.Status = StatusHealthy
		}
	} else {
		silence = now.Sub(cur.LastHeartbeat)
		if silence > r.cfg.UnhealthyThreshold() && cur.Status != StatusUnhealthy {
			from, to = cur.Status, StatusUnhealthy
			cur.Status = StatusUnhealthy
		}
	}
	r.mu.Unlock()

	switch to {
	case StatusHealthy:
		r.log.Info("Service became healthy", logger.Fields(
			logger.FieldService, name,
			"previous_status", string(from),
		))
		r.metrics.RecordStatusTransition(ctx, name, string(from), string(to))
	case StatusUnhealthy:
		r.log.Warn("Service became unhealthy", logger.Fields(
			logger.FieldService, name,
			"previous_status", string(from),
			"silence_ms", silence.Milliseconds(),
			"threshold_ms", r.cfg.UnhealthyThresholdMS,
			logger.FieldError, probeErr.Error(),
		))
		r.metrics.RecordStatusTransition(ctx, name, string(from), string(to))
	default:
		if probeErr != nil {
			r.log.Debug("Probe failed", logger.Fields(
				logger.FieldService, name,
				"silence_ms", silence.Milliseconds(),
				logger.FieldError, probeErr.Error(),
			))
		}
	}
}
