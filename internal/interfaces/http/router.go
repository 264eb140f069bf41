// Package http wires the gin engine: middleware chain, routes, and the HTTP
// server lifecycle.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/keygate/internal/config"
	"github.com/turtacn/keygate/internal/infrastructure/monitoring"
	"github.com/turtacn/keygate/internal/interfaces/http/handlers"
	"github.com/turtacn/keygate/internal/interfaces/http/middleware"
	"github.com/turtacn/keygate/pkg/logger"
)

// Router assembles the HTTP surface of the service.
type Router struct {
	engine  *gin.Engine
	config  *config.Config
	logger  logger.Logger
	server  *http.Server
	service *handlers.ServiceHandler
	keys    *handlers.KeyHandler
	health  *handlers.HealthHandler
	tracer  trace.Tracer
	metrics *monitoring.Metrics
}

// NewRouter creates the router. Routes are registered on Setup.
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	serviceHandler *handlers.ServiceHandler,
	keyHandler *handlers.KeyHandler,
	healthHandler *handlers.HealthHandler,
	tracer trace.Tracer,
	metrics *monitoring.Metrics,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	return &Router{
		engine:  gin.New(),
		config:  cfg,
		logger:  log,
		service: serviceHandler,
		keys:    keyHandler,
		health:  healthHandler,
		tracer:  tracer,
		metrics: metrics,
	}
}

// Setup registers the middleware chain and all routes.
func (r *Router) Setup() {
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Observability(r.tracer, r.metrics))
	r.engine.Use(middleware.RequestLogger(r.logger))

	corsConfig := cors.DefaultConfig()
	if len(r.config.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = r.config.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	r.engine.Use(cors.New(corsConfig))

	r.engine.GET("/live", r.health.Liveness)
	r.engine.GET("/ready", r.health.Readiness)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if r.config.Server.EnablePprof {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/v1")
	v1.Use(middleware.RequireSigner(&r.config.Auth, r.logger))
	{
		services := v1.Group("/services")
		{
			services.POST("", r.service.CreateService)
			services.GET("/:authority", r.service.GetService)

			keys := services.Group("/:authority/keys")
			{
				keys.POST("", r.keys.CreateKey)
				keys.GET("", r.keys.ListKeys)
				keys.GET("/:owner/:seq", r.keys.GetKey)
				keys.POST("/:owner/:seq/requests", r.keys.RecordRequest)
				keys.POST("/:owner/:seq/validate", r.keys.ValidateScope)
				keys.POST("/:owner/:seq/revoke", r.keys.Revoke)
				keys.POST("/:owner/:seq/reactivate", r.keys.Reactivate)
				keys.PUT("/:owner/:seq/rate-limit", r.keys.UpdateRateLimit)
				keys.PUT("/:owner/:seq/scopes", r.keys.UpdateScopes)
				keys.PUT("/:owner/:seq/expiration", r.keys.ExtendExpiration)
			}
		}
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "The requested resource was not found",
		})
	})
}

// Engine exposes the gin engine for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Start runs the HTTP server until the listener fails or Stop is called.
func (r *Router) Start() error {
	r.Setup()

	r.server = &http.Server{
		Addr:           r.config.Server.Addr(),
		Handler:        r.engine,
		ReadTimeout:    time.Duration(r.config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(r.config.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	r.logger.Info(context.Background(), "starting http server",
		logger.String("addr", r.server.Addr),
	)

	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains in-flight requests and shuts the server down.
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.logger.Info(ctx, "stopping http server")
	return r.server.Shutdown(ctx)
}
