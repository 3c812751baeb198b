package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aiponge/servicekit/errors"
	"github.com/aiponge/servicekit/observability"
	"github.com/aiponge/servicekit/scheduler"
)

// Schedulers returns a handler that reports the state of every
// registered scheduler: per-job snapshots plus aggregate counters. The
// report itself always serves 200; the aggregate health endpoint is the
// one that degrades.
func Schedulers(scheds *scheduler.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := scheds.HealthReport()
		c.JSON(http.StatusOK, gin.H{
			"healthy":          report.Healthy,
			"total_schedulers": report.TotalSchedulers,
			"running_count":    report.RunningCount,
			"error_rate":       report.ErrorRate,
			"schedulers":       report.Schedulers,
			"timestamp":        time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// TriggerScheduler returns a handler that fires an immediate execution
// of the scheduler with the given job name. A busy scheduler answers 409
// without touching its counters; an unknown name answers 404.
func TriggerScheduler(serviceName string, scheds *scheduler.Registry, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")

		oc := observability.NewOperationContext(serviceName, "trigger-scheduler", requestID(c), metrics)
		ctx, span := oc.StartSpan(c.Request.Context(), observability.SpanHTTPRequest)

		res, err := scheds.Trigger(ctx, name)
		if err != nil {
			appErr := errors.Wrap(err)
			oc.End(ctx, span, "error", appErr)
			c.JSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		oc.End(ctx, span, "ok", nil)

		c.JSON(http.StatusOK, gin.H{
			"scheduler": name,
			"success":   res.Success,
			"message":   res.Message,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
