package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/property-match-ai/internal/config"
	"github.com/wolfman30/property-match-ai/internal/conversation"
	"github.com/wolfman30/property-match-ai/internal/leads"
	"github.com/wolfman30/property-match-ai/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildStateStore picks the conversation store named by STATE_STORE. The redis
// client is returned so callers can close it and health-check it; it is nil for
// the memory store.
func BuildStateStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.Store, *redis.Client, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if !cfg.UseRedis() {
		logger.Info("using in-memory conversation store")
		return conversation.NewMemoryStore(), nil, nil
	}

	client := BuildRedisClient(ctx, cfg, logger, true)
	if client == nil {
		return nil, nil, fmt.Errorf("bootstrap: redis state store unavailable at %s", cfg.RedisAddr)
	}
	logger.Info("using redis conversation store", "addr", cfg.RedisAddr, "ttl", cfg.StateTTL)
	return conversation.NewRedisStore(client, cfg.StateTTL, nil), client, nil
}

// BuildLeadRepository connects to Postgres when DATABASE_URL is set and falls
// back to the in-memory repository otherwise. The pool, when non-nil, must be
// closed by the caller.
func BuildLeadRepository(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (leads.Repository, *pgxpool.Pool, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Info("DATABASE_URL not set; keeping qualified leads in memory")
		return leads.NewInMemoryRepository(), nil, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	logger.Info("connected to postgres for qualified leads")
	return leads.NewPostgresRepository(pool), pool, nil
}
