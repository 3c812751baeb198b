// Package bootstrap wires the lifecycle subsystem into one coordinator.
//
// New builds the pieces in dependency order (logger, metrics, scheduler
// registry, service registry, shutdown orchestrator) and registers the
// two phased shutdown hooks the subsystem needs, deliberately and in
// one visible place: the schedulers phase stops every scheduler, and
// the connections phase clears the service registry. Hosting processes
// add their own hooks through the orchestrator.
//
//	cfg, _ := config.Load("backend")
//	coord, err := bootstrap.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	coord.Schedulers().Register(reindexJob)
//	coord.Services().Register(registry.RegisterOptions{Name: "user-service", Port: 4001})
//
//	srv := server.New(server.Config{Port: 8080})
//	srv.ApplyMiddleware()
//	srv.RegisterLifecycleRoutes(cfg.Name, coord.Services(), coord.Schedulers(), coord.Metrics())
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	coord.Orchestrator().RegisterPhasedHook(shutdown.PhaseDrain, srv.Stop, "http-drain")
//	coord.Run(srv.Listener()) // blocks until shutdown
package bootstrap
