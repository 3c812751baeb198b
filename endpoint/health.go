package endpoint

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aiponge/servicekit/observability"
	"github.com/aiponge/servicekit/registry"
	"github.com/aiponge/servicekit/scheduler"
	"github.com/aiponge/servicekit/version"
)

// Health returns a handler that aggregates instance and scheduler health.
// The response is 503 when any registered instance is unhealthy or any
// scheduler has crossed its failure threshold; instances that are still
// unknown do not degrade the aggregate.
func Health(serviceName string, reg *registry.Registry, scheds *scheduler.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := observability.NewServiceHealth(serviceName, version.Version)

		summary := reg.HealthSummary()
		instances := observability.HealthyComponent("instances")
		if summary.Unhealthy > 0 {
			instances = observability.UnhealthyComponent("instances",
				fmt.Sprintf("%d of %d instances unhealthy", summary.Unhealthy, summary.Total))
		}
		instances.Details = map[string]interface{}{
			"total":     summary.Total,
			"healthy":   summary.Healthy,
			"unhealthy": summary.Unhealthy,
			"unknown":   summary.Unknown,
		}
		sh.AddComponent(instances)

		report := scheds.HealthReport()
		jobs := observability.HealthyComponent("schedulers")
		if !report.Healthy {
			jobs = observability.UnhealthyComponent("schedulers", "one or more schedulers over failure threshold")
		}
		jobs.Details = map[string]interface{}{
			"total":      report.TotalSchedulers,
			"running":    report.RunningCount,
			"error_rate": report.ErrorRate,
		}
		sh.AddComponent(jobs)

		httpStatus := http.StatusOK
		if sh.Status == observability.HealthStatusDown {
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, gin.H{
			"status":     sh.Status,
			"service":    sh.Service,
			"version":    sh.Version,
			"components": sh.Components,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Liveness returns a handler that confirms the process is alive and able
// to serve HTTP. It never inspects downstream state.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
