package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/devcoach-ai/devcoach/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid
// import cycles.
type HandlerSet struct {
	// Chat endpoints
	ChatStream http.HandlerFunc
	ChatSync   http.HandlerFunc
	ChatReport http.HandlerFunc
	ChatRAG    http.HandlerFunc
	ChatTools  http.HandlerFunc

	// Conversation memory admin
	ListMemory  http.HandlerFunc
	ClearMemory http.HandlerFunc

	// Document admin
	ReloadDocuments http.HandlerFunc
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	ChatRateLimiter    func(http.Handler) http.Handler

	// Readiness checks; nil means "not configured".
	VectorStoreCheck func(ctx context.Context) error
	RedisCheck       func(ctx context.Context) error
}

func NewRouter(cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe - always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe - checks the vector store and Redis
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":       "healthy",
			"vector_store": "healthy",
			"redis":        "healthy",
		}
		status := http.StatusOK

		if cfg.VectorStoreCheck != nil {
			if err := cfg.VectorStoreCheck(r.Context()); err != nil {
				health["vector_store"] = "unhealthy"
				health["status"] = "degraded"
				status = http.StatusServiceUnavailable
			}
		} else {
			health["vector_store"] = "not configured"
		}

		if cfg.RedisCheck != nil {
			if err := cfg.RedisCheck(r.Context()); err != nil {
				health["redis"] = "unhealthy"
				health["status"] = "degraded"
				status = http.StatusServiceUnavailable
			}
		} else {
			health["redis"] = "not configured"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/ai", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.ChatRateLimiter != nil {
				r.Use(cfg.ChatRateLimiter)
			}
			r.Get("/chat", h.ChatStream)
			r.Get("/chat/sync", h.ChatSync)
			r.Get("/chat/report", h.ChatReport)
			r.Get("/chat/rag", h.ChatRAG)
			r.Get("/chat/tools", h.ChatTools)
		})

		r.Get("/memory", h.ListMemory)
		r.Delete("/memory/{id}", h.ClearMemory)
		r.Post("/documents/reload", h.ReloadDocuments)
	})

	return r
}
