package rest

import (
	"context"
	"net/http"
	"time"

	"nodegraph/interfaces/http/rest/handlers"
	"nodegraph/interfaces/http/rest/middleware"
	"nodegraph/pkg/common"
	pkgerrors "nodegraph/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// readyTimeout bounds the store ping behind /ready
const readyTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options toggles the optional parts of the router
type Options struct {
	EnableCORS     bool
	AllowedOrigins []string
	// MetricsHandler is mounted at /metrics when set
	MetricsHandler http.Handler
	// Metrics records every request when set
	Metrics middleware.HTTPMetrics
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus   handlers.CommandSender
	queryBus     handlers.QueryAsker
	graphql      http.Handler
	store        Pinger
	errorHandler *pkgerrors.ErrorHandler
	opts         Options
	logger       *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus handlers.CommandSender,
	queryBus handlers.QueryAsker,
	graphql http.Handler,
	store Pinger,
	errorHandler *pkgerrors.ErrorHandler,
	opts Options,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus:   commandBus,
		queryBus:     queryBus,
		graphql:      graphql,
		store:        store,
		errorHandler: errorHandler,
		opts:         opts,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.opts.Metrics != nil {
		router.Use(middleware.Metrics(rt.opts.Metrics))
	}

	if rt.opts.EnableCORS {
		origins := rt.opts.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.NotFound(rt.errorHandler.RouteNotFound)
	router.MethodNotAllowed(rt.errorHandler.MethodNotAllowed)

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.MetricsHandler != nil {
		router.Method(http.MethodGet, "/metrics", rt.opts.MetricsHandler)
	}

	router.Method(http.MethodGet, "/graphql", rt.graphql)
	router.Method(http.MethodPost, "/graphql", rt.graphql)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/nodes", func(r chi.Router) {
			nodeHandler := handlers.NewNodeHandler(rt.commandBus, rt.queryBus, rt.errorHandler, rt.logger)
			r.Get("/", nodeHandler.ListNodes)
			r.Post("/", nodeHandler.CreateNode)
			r.Get("/{nodeID}", nodeHandler.GetNode)
			r.Put("/{nodeID}", nodeHandler.UpdateNode)
			r.Post("/{nodeID}/children", nodeHandler.AddChildren)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	common.RespondStatus(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck reports ready only when the store answers a ping
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), readyTimeout)
	defer cancel()

	if err := rt.store.Ping(ctx); err != nil {
		rt.logger.Warn("Readiness check failed", zap.Error(err))
		common.RespondStatus(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  pkgerrors.PublicMessage(err),
		})
		return
	}
	common.RespondStatus(w, http.StatusOK, map[string]string{"status": "ready"})
}
