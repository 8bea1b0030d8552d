package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-appointment-bot/internal/catalog"
	appconfig "github.com/wolfman30/clinic-appointment-bot/internal/config"
	"github.com/wolfman30/clinic-appointment-bot/internal/conversation"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
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

// BuildPostgresPool connects to DATABASE_URL. An empty URL returns nil.
func BuildPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) (*pgxpool.Pool, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: parse database url: %w", err)
	}
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	logger.Info("postgres connected", "max_conns", poolCfg.MaxConns)
	return pool, nil
}

// BuildCatalog loads the doctor catalog from CATALOG_PATH, or the built-in
// catalog when unset, bound to the clinic timezone.
func BuildCatalog(cfg *appconfig.Config) (*catalog.Catalog, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	loc, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: clinic timezone %q: %w", cfg.ClinicTimezone, err)
	}
	cat := catalog.Default()
	if path := strings.TrimSpace(cfg.CatalogPath); path != "" {
		cat, err = catalog.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load catalog: %w", err)
		}
	}
	return cat.WithLocation(loc), nil
}

// BuildTranscripts returns the Redis transcript store, or an in-memory store
// when Redis is not configured.
func BuildTranscripts(redisClient *redis.Client, logger *logging.Logger) conversation.Transcripts {
	if store := conversation.NewTranscriptStore(redisClient, 0); store != nil {
		return store
	}
	if logger != nil {
		logger.Warn("redis not configured; chat transcripts kept in memory")
	}
	return conversation.NewMemoryTranscripts()
}
