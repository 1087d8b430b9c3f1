package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fernandezvara/dbkit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fernandezvara/agencykit"
	"github.com/fernandezvara/agencykit/internal/config"
	"github.com/fernandezvara/agencykit/internal/httpapi"
)

func main() {
	envFile := flag.String("env-file", ".env", "Optional dotenv file read before the environment")
	issueFor := flag.String("issue-token", "", "Print a bearer token for this username and exit")
	migrateOnly := flag.Bool("migrate-only", false, "Apply migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger, *issueFor, *migrateOnly); err != nil {
		logger.Error("agencyd stopped", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.JSONLogs() {
		return zap.NewProduction()
	}
	zc := zap.NewDevelopmentConfig()
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}

func run(cfg *config.Config, logger *zap.Logger, issueFor string, migrateOnly bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := dbkit.New(dbkit.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := agencykit.NewMetrics(registry)

	service := agencykit.NewService(db,
		agencykit.WithServiceLogger(logger.Named("store")),
		agencykit.WithServiceMetrics(metrics),
	)

	if err := service.ConfigurePool(agencykit.PoolConfig{
		MaxOpenConnections:    cfg.DBMaxOpenConns,
		MaxIdleConnections:    cfg.DBMaxIdleConns,
		ConnectionMaxLifetime: cfg.DBConnLifetime,
		ConnectionMaxIdleTime: cfg.DBConnIdleTime,
	}); err != nil {
		return fmt.Errorf("configure pool: %w", err)
	}

	applied, err := service.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", zap.Strings("ids", applied))
	}
	if migrateOnly {
		return nil
	}

	if cfg.SeedOnStart {
		seeded, err := service.Seed(ctx, agencykit.SeedDataset(), agencykit.SeedUsers())
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("seed", zap.Bool("loaded", seeded))
	}

	issuer := agencykit.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	if issueFor != "" {
		user, err := service.UserByUsername(ctx, issueFor)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		token, err := issuer.Issue(user.Actor())
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Println(token)
		return nil
	}

	router := httpapi.NewRouter(httpapi.Params{
		Logger:   logger.Named("http"),
		Config:   cfg,
		Store:    service,
		Issuer:   issuer,
		Metrics:  metrics,
		Gatherer: registry,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.AppAddr), zap.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
