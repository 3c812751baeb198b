package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/aiponge/servicekit/endpoint"
	"github.com/aiponge/servicekit/logger"
	"github.com/aiponge/servicekit/observability"
	"github.com/aiponge/servicekit/registry"
	"github.com/aiponge/servicekit/scheduler"
	"github.com/aiponge/servicekit/server/middleware"
)

// Server hosts the lifecycle ops surface over HTTP, backed by Gin. It owns
// the listener so the shutdown orchestrator can take it over, and its Stop
// method satisfies the orchestrator's hook signature for the drain phase.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	listener   net.Listener
	config     Config
	log        *logger.Logger
}

// New creates a new Server. The Gin engine is created bare; call
// ApplyMiddleware to attach the standard stack before registering routes.
func New(cfg Config) *Server {
	// Gin mode follows the global zerolog level.
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.readTimeout(),
		WriteTimeout: cfg.writeTimeout(),
		IdleTimeout:  cfg.idleTimeout(),
	}

	return &Server{
		httpServer: httpServer,
		engine:     engine,
		config:     cfg,
		log:        logger.Get("server"),
	}
}

// GinEngine returns the underlying Gin engine so the hosting process can
// mount its own routes alongside the lifecycle endpoints.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// ApplyMiddleware applies the standard middleware stack to the engine:
// panic recovery, request-ID propagation, and request logging.
func (s *Server) ApplyMiddleware() {
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.RequestLogger())
}

// RegisterLifecycleRoutes mounts the health, service, and scheduler
// endpoints for the given registries on this server's engine.
func (s *Server) RegisterLifecycleRoutes(serviceName string, reg *registry.Registry, scheds *scheduler.Registry, metrics *observability.Metrics) {
	endpoint.RegisterRoutes(s.engine, serviceName, reg, scheds, metrics)
}

// Start binds the port and begins serving. It returns once the listener is
// bound so the caller knows the port is ready; serving continues in a
// goroutine. The bound listener is available via Listener for handing to
// the shutdown orchestrator.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.listener = listener

	go func() {
		err := s.httpServer.Serve(listener)
		// The orchestrator closes the listener before the drain hook runs,
		// so a closed-listener error here is part of normal shutdown.
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
			s.log.Error("Server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	s.log.Info("HTTP server started", map[string]interface{}{
		"addr": s.Addr(),
	})
	return nil
}

// Listener returns the bound listener, or nil before Start.
func (s *Server) Listener() net.Listener {
	return s.listener
}

// Addr returns the actual listen address once started (useful with port 0),
// or the configured address before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Stop gracefully shuts down the server, waiting for in-flight requests to
// complete. It matches the shutdown hook signature, so it can be registered
// directly on the drain phase. The wait is capped at 5 seconds inside the
// caller's deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Draining HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Server shutdown error", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.log.Info("HTTP server drained")
	return nil
}
