package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/FormRelay/internal/admin"
	"github.com/JonMunkholm/FormRelay/internal/config"
	"github.com/JonMunkholm/FormRelay/internal/core"
	"github.com/JonMunkholm/FormRelay/internal/core/forms"
	"github.com/JonMunkholm/FormRelay/internal/crm"
	"github.com/JonMunkholm/FormRelay/internal/database"
	"github.com/JonMunkholm/FormRelay/internal/logging"
	"github.com/JonMunkholm/FormRelay/internal/metrics"
	"github.com/JonMunkholm/FormRelay/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	metrics.Register()

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"submission_max_concurrent", cfg.Submission.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"audit_debug", cfg.Audit.Debug,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := openPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(pool); err != nil {
			return err
		}
		slog.Info("database migrations applied")
	}
	store := database.NewStore(pool)

	catalog, err := forms.Build(forms.Boards(cfg.Boards))
	if err != nil {
		slog.Warn("form mappings disabled, every form goes to the default board", "error", err)
	} else {
		slog.Info("form mappings registered", "forms", catalog.Len())
	}

	pairs, err := core.ParseSlotPairs(cfg.Capacity.PairedSlots)
	if err != nil {
		return err
	}

	service, err := core.NewService(core.Options{
		Directory: store,
		Capacity:  store,
		Board: crm.New(crm.Config{
			URL:     cfg.CRM.URL,
			FileURL: cfg.CRM.FileURL,
			Token:   cfg.CRM.Token,
			Version: cfg.CRM.Version,
			Timeout: cfg.CRM.Timeout,

			FileHosts: cfg.CRM.FileHosts,
		}),
		Dumper:           core.NewFileDumper(cfg.Audit.Dir, cfg.Audit.Debug),
		DefaultBoardID:   cfg.CRM.DefaultBoard,
		DefaultGroupID:   cfg.CRM.DefaultGroup,
		ChannelBoard:     cfg.Boards.Channels,
		DefaultTimeslots: cfg.Capacity.DefaultTimeslots,
		SlotPairs:        pairs,
		MaxConcurrent:    cfg.Submission.MaxConcurrent,
		MaxWait:          cfg.Submission.MaxWaitTime,
	})
	if err != nil {
		return err
	}

	server := web.NewServer(web.Deps{
		Service:    service,
		Catalog:    catalog,
		Importer:   &admin.Importer{Store: store},
		Health:     store,
		Server:     cfg.Server,
		Rate:       cfg.Rate,
		Security:   cfg.Security,
		Submission: cfg.Submission,
	})

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Prune.Enabled {
		g.Go(func() error {
			core.StartPruneScheduler(gctx, store, core.PruneConfig{
				RetentionDays: cfg.Prune.RetentionDays,
				BatchSize:     cfg.Prune.BatchSize,
				CheckInterval: cfg.Prune.CheckInterval,
			})
			return nil
		})
	}

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop accepting requests, then let in-flight submissions finish.
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for submissions to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("submissions did not complete in time", "error", err)
			}
		}
		return nil
	})

	return g.Wait()
}

// openPool connects to Postgres with the configured pool limits.
func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
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
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
