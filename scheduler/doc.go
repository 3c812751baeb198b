// Package scheduler provides interval-based background jobs with
// single-flight execution and a registry for coordinated lifecycle.
//
// A Scheduler runs one Handler on a fixed interval. Ticks and manual
// triggers that arrive while an execution is in flight are dropped, so a
// slow run never stacks up behind itself. Execution statistics (run
// count, error count, consecutive failures) feed health reporting.
//
// The Registry keys schedulers by "serviceName:name", starts them in
// registration order, stops them in reverse, and aggregates their health.
//
//	s, _ := scheduler.New(scheduler.Options{
//	    Name:        "token-cleanup",
//	    ServiceName: "auth",
//	    Interval:    5 * time.Minute,
//	    Enabled:     true,
//	}, cleanupExpiredTokens)
//
//	reg := scheduler.NewRegistry()
//	reg.Register(s)
//	reg.StartAll()
package scheduler
