package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/property-match-ai/cmd/mainconfig"
	"github.com/wolfman30/property-match-ai/internal/api/router"
	"github.com/wolfman30/property-match-ai/internal/app/bootstrap"
	appconfig "github.com/wolfman30/property-match-ai/internal/config"
	"github.com/wolfman30/property-match-ai/internal/conversation"
	httpmiddleware "github.com/wolfman30/property-match-ai/internal/http/middleware"
	"github.com/wolfman30/property-match-ai/internal/leads"
	"github.com/wolfman30/property-match-ai/internal/observability/metrics"
	"github.com/wolfman30/property-match-ai/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting property-match API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"state_store", cfg.StateStore,
		"tool_queue", cfg.ToolQueue,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, cleanup, err := buildServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize API server", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}
	logger.Info("server exited")
}

// buildServer wires the engine, lead capture and router from configuration.
// The returned cleanup closes the connections it opened.
func buildServer(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*http.Server, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*http.Server, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	store, redisClient, err := bootstrap.BuildStateStore(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	checks := map[string]router.HealthCheck{}
	if redisClient != nil {
		closers = append(closers, func() { _ = redisClient.Close() })
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	leadRepo, pool, err := bootstrap.BuildLeadRepository(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	if pool != nil {
		closers = append(closers, pool.Close)
		checks["postgres"] = pool.Ping
	}

	var queues bootstrap.ToolQueues
	if cfg.UseSQS() {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return fail(fmt.Errorf("load aws config: %w", err))
		}
		if queues, err = bootstrap.BuildToolQueues(cfg, mainconfig.NewSQSClient(awsCfg, cfg)); err != nil {
			return fail(err)
		}
	} else if queues, err = bootstrap.BuildToolQueues(cfg, nil); err != nil {
		return fail(err)
	}

	metricsHandler, dialogueMetrics := setupMetrics()
	engine, err := bootstrap.BuildEngine(bootstrap.EngineDeps{
		Store:    store,
		Leads:    leadRepo,
		Metrics:  dialogueMetrics,
		Requests: queues.Requests,
	}, logger)
	if err != nil {
		return fail(err)
	}

	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; admin routes are disabled")
	}

	handler := router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(engine, cfg.MaxMessageChars, logger),
		LeadsHandler:        leads.NewHandler(leadRepo, logger),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		MetricsHandler:      metricsHandler,
		CORS:                httpmiddleware.CORSOptions{AllowedOrigins: cfg.CORSAllowedOrigins, AllowedMethods: cfg.CORSAllowedMethods},
		RateLimiter:         httpmiddleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst),
		HealthChecks:        checks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, cleanup, nil
}

func setupMetrics() (http.Handler, *metrics.DialogueMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewDialogueMetrics(reg)
}
