package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	metricsprom "github.com/slok/go-http-metrics/metrics/prometheus"
	metricsmw "github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"
	"github.com/tendant/simple-blog/pkg/blog"
	"github.com/tendant/simple-blog/pkg/blog/api"
	"github.com/tendant/simple-blog/pkg/blog/auth"
	"github.com/tendant/simple-blog/pkg/blog/config"
)

// readinessKey is probed to check that the blob store answers
const readinessKey = "healthz/ready"

// HTTPServer wires the blog service into an HTTP router
type HTTPServer struct {
	config   *config.ServerConfig
	service  blog.Service
	store    blog.BlobStore
	sessions *auth.Sessions
	registry *prometheus.Registry
}

// NewHTTPServer creates a new HTTP server. A nil registry disables request
// metrics and the /metrics endpoint; nil sessions leave admin routes open.
func NewHTTPServer(cfg *config.ServerConfig, service blog.Service, store blog.BlobStore, sessions *auth.Sessions, registry *prometheus.Registry) *HTTPServer {
	return &HTTPServer{
		config:   cfg,
		service:  service,
		store:    store,
		sessions: sessions,
		registry: registry,
	}
}

// Routes builds the router
func (s *HTTPServer) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(s.requestLogger(), []string{"/healthz", "/healthz/ready", "/metrics"}))
	r.Use(api.RecoveryMiddleware)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-Match"},
		ExposedHeaders:   []string{"ETag"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(api.RequestSizeLimitMiddleware(api.DefaultMaxBodyBytes))

	r.Get("/healthz", s.handleHealth)
	r.Get("/healthz/ready", s.handleReady)

	measure := s.metricsMiddleware()
	if s.metricsEnabled() {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	requireAuth := api.RequireSession(s.sessions)

	r.With(measure("/articles")).Mount("/articles", api.NewArticleHandler(s.service, requireAuth).Routes())
	r.With(measure("/drafts")).Mount("/drafts", api.NewDraftHandler(s.service, requireAuth).Routes())
	if s.sessions != nil {
		r.With(measure("/auth")).Mount("/auth", api.NewAuthHandler(s.sessions).Routes())
	}

	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleReady reports ready once the blob store answers a metadata lookup.
// A missing object still proves the backend is reachable.
func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.store.GetObjectMeta(ctx, readinessKey); err != nil && !errors.Is(err, blog.ErrObjectNotFound) {
		slog.Warn("Blob store not ready", "error", err)
		http.Error(w, "blob store unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *HTTPServer) metricsEnabled() bool {
	return s.config.MetricsEnabled && s.registry != nil
}

// metricsMiddleware labels request metrics by mount point so slugs do not
// become label values.
func (s *HTTPServer) metricsMiddleware() func(handlerID string) func(http.Handler) http.Handler {
	if !s.metricsEnabled() {
		return func(string) func(http.Handler) http.Handler {
			return func(next http.Handler) http.Handler { return next }
		}
	}

	mdlw := metricsmw.New(metricsmw.Config{
		Recorder: metricsprom.NewRecorder(metricsprom.Config{Registry: s.registry}),
	})
	return func(handlerID string) func(http.Handler) http.Handler {
		return std.HandlerProvider(handlerID, mdlw)
	}
}

func (s *HTTPServer) requestLogger() *httplog.Logger {
	level := slog.LevelDebug
	if s.config.IsProduction() {
		level = slog.LevelInfo
	}
	return httplog.NewLogger("simple-blog", httplog.Options{
		JSON:     s.config.IsProduction(),
		LogLevel: level,
		Concise:  true,
	})
}
