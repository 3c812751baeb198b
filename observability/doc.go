// Package observability provides OpenTelemetry tracing and metrics for
// the lifecycle components: scheduler runs, health probes, instance
// status transitions, and the ops endpoints.
//
// Tracing:
//
//	cfg := observability.DefaultTracerConfig("my-service")
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanSchedulerRun)
//	defer span.End()
//
// Metrics:
//
//	mcfg := observability.DefaultMeterConfig("my-service")
//	mp, err := observability.InitMeter(ctx, &mcfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("my-service"))
//	metrics.RecordSchedulerRun(ctx, "auth", "token-cleanup", duration, true)
//
// A nil *Metrics records nothing, so components accept an optional
// recorder without guarding every call site.
//
// Health Checks:
//
//	health := observability.NewServiceHealth("my-service", "1.0.0")
//	health.AddComponent(checker.CheckHealth(ctx))
package observability
