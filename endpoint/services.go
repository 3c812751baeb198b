package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aiponge/servicekit/errors"
	"github.com/aiponge/servicekit/observability"
	"github.com/aiponge/servicekit/registry"
)

// Services returns a handler listing registered instances, sorted by
// name. With ?healthy=true only instances in the healthy state appear.
func Services(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		healthyOnly := c.Query("healthy") == "true"
		instances := reg.DiscoverAll(registry.DiscoverOptions{HealthyOnly: healthyOnly})

		c.JSON(http.StatusOK, gin.H{
			"services":  instances,
			"count":     len(instances),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Heartbeat returns a handler that records out-of-band liveness evidence
// for the named instance, marking it healthy immediately. Unknown names
// get a 404 carrying the registered service names.
func Heartbeat(serviceName string, reg *registry.Registry, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")

		oc := observability.NewOperationContext(serviceName, "heartbeat", requestID(c), metrics)
		ctx, span := oc.StartSpan(c.Request.Context(), observability.SpanHTTPRequest)

		if err := reg.Heartbeat(name); err != nil {
			appErr := errors.Wrap(err)
			oc.End(ctx, span, "error", appErr)
			c.JSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		oc.End(ctx, span, "ok", nil)

		c.JSON(http.StatusOK, gin.H{
			"service":   name,
			"status":    string(registry.StatusHealthy),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// requestID resolves the request id set by upstream middleware, falling
// back to the conventional header.
func requestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}
