package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sociomile-gateway/internal/audit"
	"sociomile-gateway/internal/config"
	"sociomile-gateway/internal/credential"
	"sociomile-gateway/internal/metrics"
	"sociomile-gateway/internal/remote"
	"sociomile-gateway/internal/session"
	"sociomile-gateway/pkg/logger"
	"sociomile-gateway/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const sweepInterval = 5 * time.Minute

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logger.New(logger.Options{Env: cfg.App.Env, Service: "gateway"})
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	client, err := remote.New(remote.Options{BaseURL: cfg.Remote.BaseURL, Timeout: cfg.Remote.Timeout})
	if err != nil {
		return fmt.Errorf("remote init failed: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var snapshots session.SnapshotStore = session.NewMemoryStore()
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("redis init failed: %w", err)
		}
		defer rdb.Close()
		snapshots = session.NewRedisStore(rdb, cfg.Redis.KeyPrefix)
		log.Info("session snapshots in redis", "addr", cfg.RedisAddr(), "db", cfg.Redis.DB, "prefix", cfg.Redis.KeyPrefix)
	}

	var events audit.Repository = audit.NewMemoryRepo(0)
	if cfg.PostgresEnabled() {
		db, err := utils.OpenPostgres(ctx, utils.PostgresConfig{DSN: cfg.PostgresDSN()})
		if err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
		defer db.Close()
		repo := audit.NewPostgresRepo(db)
		if err := repo.Migrate(ctx); err != nil {
			return fmt.Errorf("audit migrate failed: %w", err)
		}
		events = repo
		log.Info("auth events in postgres", "host", cfg.DB.Host)
	}

	sessions := session.NewRegistry(session.RegistryOptions{
		Store:   snapshots,
		Fetcher: client,
		Metrics: m,
		Logger:  log,
	})
	go sessions.RunSweeper(ctx, sweepInterval, credential.TTL)

	r := newRouter(routerDeps{
		Log:      log,
		Sessions: sessions,
		Remote:   client,
		Metrics:  m,
		Gatherer: reg,
		Audit:    audit.NewService(events),
		Secure:   cfg.CookieSecure(),
	})

	log.Info("gateway configured", "env", cfg.App.Env, "remote", cfg.Remote.BaseURL)
	return runServer(ctx, log, "gateway", cfg.HTTPAddr(), r)
}
