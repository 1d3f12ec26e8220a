package router

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/property-match-ai/internal/conversation"
	httpmiddleware "github.com/wolfman30/property-match-ai/internal/http/middleware"
	"github.com/wolfman30/property-match-ai/internal/leads"
	"github.com/wolfman30/property-match-ai/pkg/logging"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	LeadsHandler        *leads.Handler
	AdminAuthSecret     string
	MetricsHandler      http.Handler
	CORS                httpmiddleware.CORSOptions
	RateLimiter         *httpmiddleware.RateLimiter
	HealthChecks        map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORS))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	if cfg.ConversationHandler != nil {
		r.Route("/conversations", func(conv chi.Router) {
			if cfg.RateLimiter != nil {
				conv.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
			}
			conv.Post("/start", cfg.ConversationHandler.Start)
			conv.Get("/{id}", cfg.ConversationHandler.Get)
			conv.Post("/{id}/messages", cfg.ConversationHandler.Message)
			conv.Post("/{id}/complete", cfg.ConversationHandler.Complete)
		})
	}

	// Admin routes (protected by JWT)
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.ConversationHandler != nil {
				admin.Get("/conversations/{id}/export", cfg.ConversationHandler.Export)
			}
			if cfg.LeadsHandler != nil {
				admin.Get("/leads", cfg.LeadsHandler.ListLeads)
				admin.Get("/leads/{id}", cfg.LeadsHandler.GetLead)
			}
		})
	}

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		resp := map[string]any{"status": "ok"}
		if len(names) > 0 {
			results := make(map[string]string, len(names))
			for _, name := range names {
				if err := checks[name](ctx); err != nil {
					results[name] = err.Error()
					status = http.StatusServiceUnavailable
					resp["status"] = "degraded"
					continue
				}
				results[name] = "ok"
			}
			resp["checks"] = results
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	}
}
