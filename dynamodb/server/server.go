// Package server exposes the surface of registered instances over HTTP.
//
// Every query node becomes a GET route, one per facet permutation:
//
//	GET    /<label>/<pattern>/{pk}/{sk}...   query
//	GET    /<label>/<entity>                 scan
//	POST   /<label>/<entity>                 create
//	PUT    /<label>/<entity>/{key facets}    patch
//	DELETE /<label>/<entity>/{key facets}    remove
//
// Responses are {"data": ..., "message": ...}.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/acksell/electro/dynamodb/instance"
	"github.com/acksell/electro/dynamodb/surface"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Config configures the server.
type Config struct {
	Port   int
	Logger zerolog.Logger
	// Registry receives the request metrics. A private registry is used when
	// nil.
	Registry *prometheus.Registry
}

// Route is one registered method and pattern.
type Route struct {
	Method  string
	Pattern string
}

func (r Route) String() string { return fmt.Sprintf("%6s %s", r.Method, r.Pattern) }

type Server struct {
	config     Config
	router     chi.Router
	routes     []Route
	requests   *prometheus.CounterVec
	httpServer *http.Server
}

// New registers the routes of every instance.
func New(instances []*instance.Instance, cfg Config) *Server {
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "electro",
			Subsystem: "surface",
			Name:      "requests_total",
			Help:      "Requests served per surface route.",
		}, []string{"route", "method", "status"}),
	}
	cfg.Registry.MustRegister(s.requests)

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.logging)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors)

	s.router.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	for _, inst := range instances {
		for _, n := range inst.Nodes {
			s.register(inst, n)
		}
	}
	return s
}

func (s *Server) register(inst *instance.Instance, n surface.Node) {
	h := &handler{node: n, logger: s.config.Logger.With().Str("label", inst.Label()).Logger()}
	var method string
	var fn http.HandlerFunc
	switch n.Verb {
	case surface.VerbQuery, surface.VerbScan:
		method, fn = http.MethodGet, h.query
	case surface.VerbCreate:
		method, fn = http.MethodPost, h.create
	case surface.VerbPatch:
		method, fn = http.MethodPut, h.patch
	case surface.VerbRemove:
		method, fn = http.MethodDelete, h.remove
	default:
		return
	}
	pattern := n.Route(inst.Label())
	s.router.Method(method, pattern, fn)
	s.routes = append(s.routes, Route{Method: method, Pattern: pattern})
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Routes lists the surface routes in registration order.
func (s *Server) Routes() []Route { return s.routes }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if r.URL.Path == "/metrics" {
			return
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.requests.WithLabelValues(route, r.Method, fmt.Sprint(ww.Status())).Inc()
		s.config.Logger.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

// cors allows browser clients during development.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
