// Package endpoint provides the operational HTTP surface of the
// lifecycle subsystem: aggregate health, instance listing and
// heartbeats, scheduler reports and manual triggers, and build info.
//
// Handlers are plain gin handlers the hosting process mounts wherever
// it likes; RegisterRoutes wires the standard layout:
//
//	GET  /health                     aggregate instance + scheduler health
//	GET  /health/live                liveness
//	GET  /info                       version and uptime
//	GET  /services                   registered instances (?healthy=true)
//	POST /services/:name/heartbeat   out-of-band liveness evidence
//	GET  /schedulers                 scheduler health report
//	POST /schedulers/:name/trigger   immediate execution by job name
package endpoint
