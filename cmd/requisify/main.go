package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/requisify/requisify/pkg/api"
	"github.com/requisify/requisify/pkg/claims"
	"github.com/requisify/requisify/pkg/config"
	"github.com/requisify/requisify/pkg/observability"
	"github.com/requisify/requisify/pkg/secaudit"
	"github.com/requisify/requisify/pkg/session"
	"github.com/requisify/requisify/pkg/tenancy"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx := context.Background()

	db, err := openDatabase(cfg.Database, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to database")

	// The audit trail gets its own handle so a saturated business pool
	// cannot starve security writes
	auditDB := db
	if cfg.Database.AuditURL != "" {
		auditDB, err = openDatabase(cfg.Database, cfg.Database.AuditURL)
		if err != nil {
			return fmt.Errorf("failed to connect to audit database: %w", err)
		}
		defer auditDB.Close()
		logger.Info("Connected to audit database")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:       cfg.Redis.URL,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		MaxRetries: cfg.Redis.MaxRetries,
		PoolSize:   cfg.Redis.PoolSize,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("Connected to redis")

	if err := tenancy.Migrate(ctx, db); err != nil {
		return err
	}

	recorder, err := secaudit.NewDBRecorder(auditDB)
	if err != nil {
		return fmt.Errorf("failed to initialize audit recorder: %w", err)
	}
	verifier, err := api.NewPostgresVerifier(db)
	if err != nil {
		return fmt.Errorf("failed to initialize credential verifier: %w", err)
	}

	directory := tenancy.NewPostgresDirectory(db)
	resolver := tenancy.NewResolver(directory)
	minter := claims.NewMinter(resolver)
	versions := claims.NewVersionStore(redisClient, "tokenver")
	codec := claims.NewTokenCodec([]byte(cfg.Auth.TokenSecret), cfg.Auth.TokenTTL, versions)
	sessions := session.NewRedisStore(redisClient, "session")
	limiter := session.NewLoginLimiter(redisClient, recorder)
	monitor := secaudit.NewMonitor(recorder, secaudit.DefaultThresholds())

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	server := api.NewServer(api.Deps{
		Directory: directory,
		Verifier:  verifier,
		Limiter:   limiter,
		Sessions:  sessions,
		Minter:    minter,
		Codec:     codec,
		Versions:  versions,
		Recorder:  recorder,
		Security:  secaudit.NewHandlers(recorder, monitor),
		Metrics:   metrics,
		TokenTTL:  cfg.Auth.TokenTTL,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics live on a separate listener, off the
	// authenticated surface
	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(db, auditDB, redisClient)
	observability.RegisterHealthRoutes(healthMux, checker)
	if metrics != nil {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(healthServer.Shutdown)
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		return redisClient.Close()
	})

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("API server listening on :%s", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("Health server listening on :%s", cfg.Server.HealthPort)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(shutdown.WaitForShutdown)

	return g.Wait()
}

func openDatabase(cfg config.DatabaseConfig, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(cfg.Timeout)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
