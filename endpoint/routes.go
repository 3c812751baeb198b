package endpoint

import (
	"github.com/gin-gonic/gin"

	"github.com/aiponge/servicekit/observability"
	"github.com/aiponge/servicekit/registry"
	"github.com/aiponge/servicekit/scheduler"
)

// RegisterRoutes mounts the standard operational endpoints on the given
// router. metrics may be nil; the POST handlers then skip recording but
// behave the same.
func RegisterRoutes(r gin.IRouter, serviceName string, reg *registry.Registry, scheds *scheduler.Registry, metrics *observability.Metrics) {
	r.GET("/health", Health(serviceName, reg, scheds))
	r.GET("/health/live", Liveness(serviceName))
	r.GET("/info", Info(serviceName))
	r.GET("/services", Services(reg))
	r.POST("/services/:name/heartbeat", Heartbeat(serviceName, reg, metrics))
	r.GET("/schedulers", Schedulers(scheds))
	r.POST("/schedulers/:name/trigger", TriggerScheduler(serviceName, scheds, metrics))
}
