package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/ledgerdesk/internal/catalog"
	"github.com/JonMunkholm/ledgerdesk/internal/config"
	"github.com/JonMunkholm/ledgerdesk/internal/core"
	"github.com/JonMunkholm/ledgerdesk/internal/logging"
	"github.com/JonMunkholm/ledgerdesk/internal/remote"
	"github.com/JonMunkholm/ledgerdesk/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"api", cfg.Remote.BaseURL,
		"api_max_concurrent", cfg.Remote.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"audit_database", cfg.Database.Enabled(),
	)

	reg, err := catalog.Load(cfg.Remote.CatalogPath)
	if err != nil {
		slog.Error("failed to load catalog", "path", cfg.Remote.CatalogPath, "error", err)
		os.Exit(1)
	}
	slog.Info("collections registered",
		"count", reg.Len(),
		"groups", len(reg.Groups()),
	)
	for _, group := range reg.Groups() {
		slog.Debug("collection group", "group", group, "collections", len(reg.ByGroup(group)))
	}

	client, err := remote.NewClient(cfg.Remote.BaseURL,
		remote.WithAPIKey(cfg.Remote.Token),
		remote.WithTimeout(cfg.Remote.Timeout),
	)
	if err != nil {
		slog.Error("invalid API base URL", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var audit core.AuditSink = core.NewLogAudit(slog.Default(), 0)
	if cfg.Database.Enabled() {
		pool, err := openPool(ctx, &cfg.Database)
		if err != nil {
			slog.Error("failed to connect to audit database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pgAudit, err := core.NewPostgresAudit(ctx, pool)
		if err != nil {
			slog.Error("failed to prepare audit table", "error", err)
			os.Exit(1)
		}
		audit = pgAudit
	} else {
		slog.Info("no audit database configured, auditing to log")
	}

	// Background revalidations outlive the request that started them and
	// stop with this context.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	service := core.NewService(reg, client, audit, core.ServiceConfig{
		FetchTimeout:   cfg.Remote.Timeout,
		MaxConcurrent:  cfg.Remote.MaxConcurrent,
		MaxWait:        cfg.Remote.MaxWaitTime,
		SearchDebounce: cfg.List.SearchDebounce,
		MaxPageSize:    cfg.List.MaxPageSize,
		SessionIdle:    cfg.Session.IdleTimeout,
		BaseContext:    jobCtx,
	})

	server := web.NewServer(service, cfg)

	go service.StartJanitor(jobCtx, core.JanitorConfig{
		CacheIdleTTL:  cfg.Cache.IdleTTL,
		CheckInterval: cfg.Cache.SweepInterval,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		status := service.LimiterStatus()
		if status.Active > 0 {
			slog.Info("waiting for remote calls to complete", "active", status.Active)
		}
		if err := service.Shutdown(shutdownCtx); err != nil {
			slog.Warn("remote calls did not complete in time", "error", err)
		}
		cancelJobs()
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// openPool connects to the audit database with the configured pool limits.
func openPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to audit database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}
