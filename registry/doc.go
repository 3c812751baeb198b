// Package registry provides an in-memory service registry with active
// health probing for aiponge services.
//
// Each registered instance gets exactly one background probe scheduler
// that checks its health endpoint on a shared cadence. Probe results
// drive a small status state machine (unknown -> healthy -> unhealthy):
// a successful probe marks the instance healthy immediately, while a
// failing one only flips it to unhealthy after the instance has been
// silent past the configured threshold, so a single dropped probe never
// causes flapping.
//
// Callers route traffic with Discover/DiscoverAll, typically with
// HealthyOnly set, and can block on a dependency with WaitForService.
//
// # Usage
//
//	reg := registry.New(cfg.Registry, scheds)
//	inst, err := reg.Register(registry.RegisterOptions{
//	    Name: "user-service",
//	    Port: 4001,
//	})
//	...
//	if svc, ok := reg.Discover("user-service", registry.DiscoverOptions{HealthyOnly: true}); ok {
//	    resp, err := client.Get(svc.URL() + "/api/users")
//	}
package registry
