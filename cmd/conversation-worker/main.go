package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/property-match-ai/cmd/mainconfig"
	"github.com/wolfman30/property-match-ai/internal/app/bootstrap"
	appconfig "github.com/wolfman30/property-match-ai/internal/config"
	"github.com/wolfman30/property-match-ai/internal/conversation"
	"github.com/wolfman30/property-match-ai/internal/events"
	"github.com/wolfman30/property-match-ai/internal/observability/metrics"
	"github.com/wolfman30/property-match-ai/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel).With("component", "conversation-worker")

	if err := run(cfg, logger); err != nil {
		logger.Error("conversation worker failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *appconfig.Config, logger *logging.Logger) error {
	if !cfg.UseSQS() {
		return errors.New("conversation worker requires TOOL_QUEUE=sqs")
	}
	if !cfg.UseRedis() {
		logger.Warn("STATE_STORE is not redis; the worker will not see conversations held by the API")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, redisClient, err := bootstrap.BuildStateStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	leadRepo, pool, err := bootstrap.BuildLeadRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	var dedupe conversation.ResultDeduper = events.NewMemoryProcessedStore()
	if pool != nil {
		defer pool.Close()
		dedupe = events.NewProcessedStore(pool)
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return err
	}
	queues, err := bootstrap.BuildToolQueues(cfg, mainconfig.NewSQSClient(awsCfg, cfg))
	if err != nil {
		return err
	}
	if queues.Results == nil {
		return errors.New("TOOL_RESULT_QUEUE_URL is required")
	}

	engine, err := bootstrap.BuildEngine(bootstrap.EngineDeps{
		Store:    store,
		Leads:    leadRepo,
		Metrics:  metrics.NewDialogueMetrics(prometheus.NewRegistry()),
		Requests: queues.Requests,
	}, logger)
	if err != nil {
		return err
	}

	worker := conversation.NewWorker(
		engine,
		queues.Results,
		logger,
		conversation.WithWorkerCount(cfg.WorkerCount),
		conversation.WithReplySink(conversation.NewLogReplySink(logger)),
		conversation.WithResultDeduper(dedupe),
	)
	worker.Start(ctx)
	logger.Info("conversation worker started", "workers", cfg.WorkerCount)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down conversation worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("conversation worker stopped")
	case <-doneCtx.Done():
		logger.Error("conversation worker shutdown timed out", "error", doneCtx.Err())
	}
	return nil
}
