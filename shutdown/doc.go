// Package shutdown coordinates graceful process termination.
//
// An Orchestrator owns the transition from running to exited. The first
// SIGINT, SIGTERM, or Trigger call starts the sequence; anything after
// that is a no-op. The sequence arms a hard deadline, closes the
// externally-owned listener, then runs hooks bucketed into phases:
//
//	drain -> schedulers -> queues -> connections -> default
//
// Hooks within a phase run sequentially in registration order, and a
// failing hook is logged and skipped past, never blocking the rest.
// Plain hooks registered without a phase run after every phase. A clean
// sequence exits 0; blowing the deadline exits 1 so a hung dependency
// cannot keep the process alive indefinitely.
//
//	orch := shutdown.New(cfg.Shutdown)
//	orch.RegisterPhasedHook(shutdown.PhaseDrain, func(ctx context.Context) error {
//	    return httpServer.Shutdown(ctx)
//	}, "http-drain")
//	orch.Setup(listener, 0)
//	orch.Wait()
package shutdown
