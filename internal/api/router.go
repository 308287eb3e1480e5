package api

import (
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fleetopt/internal/metrics"
)

// Router wires every endpoint with metrics, rate limiting, CORS and panic
// recovery.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.metricsMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/optimize", s.OptimizeHandler).Methods(http.MethodPost)
	api.HandleFunc("/history", s.HistoryHandler).Methods(http.MethodGet)
	api.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet)
	api.HandleFunc("/sample", s.SampleHandler).Methods(http.MethodGet)
	api.HandleFunc("/stopsets", s.ListStopSetsHandler).Methods(http.MethodGet)
	api.HandleFunc("/stopsets/{name}", s.GetStopSetHandler).Methods(http.MethodGet)
	api.HandleFunc("/stopsets/{name}", s.PutStopSetHandler).Methods(http.MethodPut)
	api.HandleFunc("/stream", s.StreamHandler).Methods(http.MethodGet)
	api.HandleFunc("/debug", s.DebugJSON).Methods(http.MethodGet)

	metrics.RegisterDefault()
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/openapi.yaml", s.OpenAPIHandler).Methods(http.MethodGet)
	r.HandleFunc("/openapi.json", s.OpenAPIJSONHandler).Methods(http.MethodGet)
	r.HandleFunc("/docs", s.DocsHandler).Methods(http.MethodGet)

	// misses under /api are resolved by the subrouter, not r
	for _, rt := range []*mux.Router{r, api} {
		rt.NotFoundHandler = http.HandlerFunc(notFound)
		rt.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	}

	var h http.Handler = r
	h = handlers.CORS(
		handlers.AllowedOrigins(s.Config.AllowOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	if s.AccessLog != nil {
		h = handlers.LoggingHandler(s.AccessLog, h)
	}
	return h
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeProblem(w, http.StatusNotFound, "Not found", "no such endpoint", r.URL.Path)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeProblem(w, http.StatusMethodNotAllowed, "Method not allowed", r.Method+" is not supported here", r.URL.Path)
}

// metricsMiddleware labels requests by route template so path parameters
// do not explode label cardinality.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		m := httpsnoop.CaptureMetrics(next, w, r)
		status := strconv.Itoa(m.Code)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(m.Duration.Seconds())
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeProblem(w, http.StatusTooManyRequests, "Too many requests", "rate limit exceeded", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}
