// Package server hosts the lifecycle ops surface over HTTP using Gin.
//
// The server binds its own listener so the hosting process can hand it to
// the shutdown orchestrator, and Stop drains in-flight requests, which makes
// it a natural drain-phase hook:
//
//	srv := server.New(server.Config{Port: 8080})
//	srv.ApplyMiddleware()
//	srv.RegisterLifecycleRoutes("backend", coord.Services(), coord.Schedulers(), coord.Metrics())
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
//	coord.Orchestrator().RegisterPhasedHook(shutdown.PhaseDrain, srv.Stop, "http-drain")
//	coord.Run(srv.Listener())
//
// Built-in middleware (server/middleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: request ID generation and propagation
//   - RequestLogger: request logging with duration tracking
//
// Business routes stay with the hosting process; mount them on GinEngine.
package server
