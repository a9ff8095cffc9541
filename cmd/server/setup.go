package main

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cardami/internal/config"
	"cardami/internal/identity"
	"cardami/internal/messaging"
	"cardami/internal/repository"
	"cardami/internal/viewstate"
)

const (
	maxRetries = 50
	retryDelay = 3 * time.Second
)

type dependencies struct {
	provider  identity.Provider
	claims    repository.ClaimStore
	views     viewstate.Store
	publisher messaging.ClaimPublisher
	redis     *redis.Client

	closers []func()
}

func (d *dependencies) onClose(fn func()) {
	d.closers = append(d.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (d *dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func setupDependencies(ctx context.Context, cfg *config.Config, log *zap.Logger) (*dependencies, error) {
	deps := &dependencies{}
	fail := func(err error) (*dependencies, error) {
		deps.Close()
		return nil, err
	}

	if cfg.ViewStore == "redis" {
		client, err := setupRedis(cfg)
		if err != nil {
			return fail(err)
		}
		deps.redis = client
		deps.onClose(func() { _ = client.Close() })
	}

	var app *firebase.App
	if cfg.IdentityProvider == "firebase" || cfg.ClaimStore == "firestore" {
		var err error
		app, err = identity.NewFirebaseApp(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsPath)
		if err != nil {
			return fail(err)
		}
		zap.L().Info("Firebase app initialized", zap.String("projectId", cfg.FirebaseProjectID))
	}

	switch cfg.IdentityProvider {
	case "firebase":
		authClient, err := app.Auth(ctx)
		if err != nil {
			return fail(fmt.Errorf("failed to get Firebase Auth client: %w", err))
		}
		verifier, err := identity.NewToolkitVerifier(ctx, cfg.FirebaseAPIKey)
		if err != nil {
			return fail(err)
		}
		deps.provider = identity.NewFirebaseProvider(authClient, verifier, cfg.SessionTTL, log)
	default:
		var revoked identity.Revocations
		if deps.redis != nil {
			revoked = identity.NewRedisRevocations(deps.redis)
		}
		deps.provider = identity.NewLocalProvider(cfg.SessionSecret, cfg.SessionTTL, revoked, log)
		zap.L().Warn("Using the local identity provider; accounts are kept in memory")
	}

	switch cfg.ClaimStore {
	case "firestore":
		client, err := app.Firestore(ctx)
		if err != nil {
			return fail(fmt.Errorf("failed to get Firestore client: %w", err))
		}
		deps.onClose(func() { _ = client.Close() })
		deps.claims = repository.NewFirestoreClaimStore(client, log)
	case "postgres":
		pool, err := setupPostgres(cfg)
		if err != nil {
			return fail(err)
		}
		deps.onClose(pool.Close)
		if err := repository.NewMigrator(pool, log).Up(); err != nil {
			return fail(err)
		}
		deps.claims = repository.NewPgClaimStore(pool, log)
	case "sqlite":
		store, err := repository.NewSQLiteClaimStore(cfg.SQLitePath, log)
		if err != nil {
			return fail(err)
		}
		deps.onClose(func() { _ = store.Close() })
		deps.claims = store
	default:
		deps.claims = repository.NewMemoryStore()
		zap.L().Warn("Using the in-memory claim store; claims are lost on restart")
	}
	zap.L().Info("Claim store ready", zap.String("store", cfg.ClaimStore))

	if deps.redis != nil {
		deps.views = viewstate.NewRedisStore(deps.redis, cfg.ViewStateTTL, log)
	} else {
		deps.views = viewstate.NewMemoryStore(cfg.ViewStateTTL)
	}

	deps.publisher = messaging.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		conn, err := messaging.Connect(ctx, cfg.RabbitMQURL, 10, 5*time.Second, log)
		if err != nil {
			return fail(err)
		}
		deps.onClose(func() { _ = conn.Close() })
		publisher, err := messaging.NewRabbitMQClaimPublisher(conn, log)
		if err != nil {
			return fail(err)
		}
		deps.onClose(func() { _ = publisher.Close() })
		deps.publisher = publisher
	}

	return deps, nil
}

func setupPostgres(cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout

	var lastErr error
	zap.L().Info("Attempting to connect to PostgreSQL", zap.Int("max_retries", maxRetries), zap.Duration("retry_delay", retryDelay))
	for attempt := 1; attempt <= maxRetries; attempt++ {
		connectCtx, connectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
		connectCancel()
		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			err = pool.Ping(pingCtx)
			pingCancel()
			if err == nil {
				zap.L().Info("Connected to PostgreSQL", zap.Int("attempt", attempt))
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err
		zap.L().Warn("PostgreSQL not ready, retrying...", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < maxRetries {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", maxRetries, lastErr)
}

func setupRedis(cfg *config.Config) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	var lastErr error
	zap.L().Info("Attempting to connect to Redis", zap.String("address", opts.Addr), zap.Int("db", opts.DB))
	for attempt := 1; attempt <= maxRetries; attempt++ {
		client := redis.NewClient(opts)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(pingCtx).Err()
		pingCancel()
		if err == nil {
			zap.L().Info("Connected to Redis", zap.Int("attempt", attempt))
			return client, nil
		}
		_ = client.Close()
		lastErr = err
		zap.L().Warn("Redis ping failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < maxRetries {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxRetries, lastErr)
}
