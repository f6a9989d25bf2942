// Package server exposes an engine over HTTP.
//
// Every mutating route turns into one engine message, so HTTP clients see
// the same semantics as any other message source. Error codes map onto
// statuses: MALFORMED_PAYLOAD and INVALID_INPUT are 400, NOT_FOUND is 404,
// UNSUPPORTED_FORMAT is 415, compiler failures are 502 and timeouts 504.
//
// POST /api/v1/collapse-all restores the fold a fresh update starts with:
// validated nodes collapsed, everything else expanded. On a graph without
// validation results it changes nothing; collapse single containers with
// POST /api/v1/nodes/{id}/collapse.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/dagscope/pkg/cache"
	"github.com/matzehuels/dagscope/pkg/compiler"
	"github.com/matzehuels/dagscope/pkg/engine"
	"github.com/matzehuels/dagscope/pkg/graph"
)

// Compiler compiles module files into an update payload. *compiler.Client
// satisfies it.
type Compiler interface {
	Compile(ctx context.Context, req compiler.CompileRequest) (graph.Payload, error)
}

// Server routes HTTP requests to an engine. The engine's Serve loop must be
// running; handlers submit messages with Engine.Send.
type Server struct {
	router  chi.Router
	engine  *engine.Engine
	logger  *log.Logger
	metrics http.Handler

	compiler Compiler
	modules  *cache.Modules

	exports cache.Cache
	keyer   cache.Keyer

	timeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithCompiler enables POST /api/v1/compile. Requests without explicit
// paths compile the modules picked in the selection.
func WithCompiler(c Compiler, modules *cache.Modules) Option {
	return func(s *Server) {
		s.compiler = c
		s.modules = modules
	}
}

// WithExportCache caches GET /api/v1/export responses by graph hash.
func WithExportCache(c cache.Cache, keyer cache.Keyer) Option {
	return func(s *Server) {
		s.exports = c
		s.keyer = keyer
	}
}

// WithTimeout bounds the time a handler waits for the engine.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// New creates a Server for e.
func New(e *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine:  e,
		logger:  log.Default(),
		timeout: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.keyer == nil {
		s.keyer = cache.NewDefaultKeyer()
	}
	s.router = s.buildRouter()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/messages", s.handleMessage)
		r.Post("/update", s.handleUpdate)
		r.Post("/rotate", s.handleSimple(engine.Rotate{}))
		r.Post("/expand-all", s.handleSimple(engine.ExpandAll{}))
		r.Post("/collapse-all", s.handleSimple(engine.CollapseAll{}))
		r.Post("/nodes/{id}/expand", s.handleNode(func(id string) engine.Message { return engine.Expand{NodeID: id} }))
		r.Post("/nodes/{id}/collapse", s.handleNode(func(id string) engine.Message { return engine.Collapse{NodeID: id} }))
		r.Post("/nodes/{id}/select", s.handleNode(func(id string) engine.Message { return engine.Select{NodeID: id} }))
		r.Delete("/selection", s.handleSimple(engine.Unselect{}))
		r.Get("/export", s.handleExport)
		r.Get("/graph", s.handleGraph)
		r.Get("/layout", s.handleLayout)
		if s.compiler != nil {
			r.Post("/compile", s.handleCompile)
		}
	})
	return r
}

// requestID tags each request with a uuid, reusing a client-supplied one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
