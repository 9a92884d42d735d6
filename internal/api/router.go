// Package api serves the interview pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clarity-workers/internal/common/config"
	"clarity-workers/internal/common/logger"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type RouterOptions struct {
	AllowedOrigins []string
	Checks         map[string]ReadinessCheck
	// Catalog mounts the catalog editing routes when set.
	Catalog CatalogEditor
}

// NewRouter builds the HTTP handler for pipeline.
func NewRouter(pipeline Pipeline, opts RouterOptions, log logger.Logger) http.Handler {
	h := NewHandler(pipeline, log)
	h.catalog = opts.Catalog

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(h.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-Document-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Get("/ready", readiness(opts.Checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", h.StartSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/answers", h.RecordAnswer)
			r.Get("/questions", h.Questions)
			r.Post("/validate", h.Validate)
			r.Post("/analyze", h.Analyze)
			r.Put("/language", h.SetLanguage)
			r.Post("/research", h.RecordResearch)
			r.Get("/preview", h.Preview)
			r.Get("/document", h.Document)
			r.Get("/export", h.Export)
			r.Put("/overrides/{sectionID}", h.SetOverride)
			r.Delete("/overrides/{sectionID}", h.ResetOverride)
		})
		r.Get("/research/{area}/plan", h.ResearchPlan)
		if h.catalog != nil {
			r.Route("/catalog", catalogRoutes(h))
		}
	})

	return r
}

func readiness(checks map[string]ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failing := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failing[name] = err.Error()
			}
		}
		if len(failing) > 0 {
			respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "not ready", "failing": failing})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("HTTP request", map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"durationMs": time.Since(start).Milliseconds(),
				"requestId":  chimiddleware.GetReqID(r.Context()),
			})
		})
	}
}

// NewServer wraps handler in an http.Server configured from cfg. Every
// request is bounded by cfg.RequestTimeout.
func NewServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	timeout := config.GetDuration(cfg.RequestTimeout)
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           http.TimeoutHandler(handler, timeout, `{"success":false,"error":{"code":"TIMEOUT_ERROR","message":"Request timed out"}}`),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      timeout + 5*time.Second,
	}
}
